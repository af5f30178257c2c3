package dto

import (
	"time"

	"plantdiag/internal/models"
)

// timeLayout 响应中的时间格式
const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// PageQuery 分页查询参数，页码从 1 开始
type PageQuery struct {
	Page  int `form:"page" validate:"omitempty,min=1,max=100000"`
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

// LabelResponse 标签响应
type LabelResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Min         float32 `json:"min"`
	Max         float32 `json:"max"`
	Weight      int32   `json:"weight"`
}

// FromLabel 转换标签
func FromLabel(l models.Label) LabelResponse {
	return LabelResponse{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		Min:         l.Min,
		Max:         l.Max,
		Weight:      l.Weight,
	}
}

// FromLabels 批量转换标签
func FromLabels(labels []models.Label) []LabelResponse {
	out := make([]LabelResponse, 0, len(labels))
	for _, l := range labels {
		out = append(out, FromLabel(l))
	}
	return out
}

// RecommendationResponse 建议响应
type RecommendationResponse struct {
	ID          uint    `json:"id"`
	Description *string `json:"description,omitempty"`
	MinSeverity float32 `json:"min_severity"`
	MaxSeverity float32 `json:"max_severity"`
	CategoryID  uint    `json:"category_id"`
	Category    string  `json:"category,omitempty"`
}

// FromRecommendations 批量转换建议
func FromRecommendations(recs []models.Recommendation) []RecommendationResponse {
	out := make([]RecommendationResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecommendationResponse{
			ID:          r.ID,
			Description: r.Description,
			MinSeverity: r.MinSeverity,
			MaxSeverity: r.MaxSeverity,
			CategoryID:  r.CategoryID,
			Category:    r.Category.Name,
		})
	}
	return out
}

// LabelQuery 按名称或严重程度查询标签，两者互斥
type LabelQuery struct {
	Name     string   `form:"name" validate:"omitempty,max=100,excluded_with=Severity"`
	Severity *float32 `form:"severity" validate:"omitempty,severity"`
}

// RecommendationQuery 按严重程度查询建议
type RecommendationQuery struct {
	Severity *float32 `form:"severity" validate:"omitempty,severity"`
}
