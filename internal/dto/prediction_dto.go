package dto

import (
	"plantdiag/internal/models"
	"plantdiag/internal/service"
)

// CreatePredictionForm 上传图片并诊断的表单字段
type CreatePredictionForm struct {
	PlotID  *uint `form:"plot_id" validate:"omitempty,gt=0"`
	LabelID *uint `form:"label_id" validate:"omitempty,gt=0"`
}

// PredictImageRequest 对已上传图片诊断的请求
type PredictImageRequest struct {
	PlotID  *uint `json:"plot_id" validate:"omitempty,gt=0"`
	LabelID *uint `json:"label_id" validate:"omitempty,gt=0"`
}

// MarkResponse 诊断标记响应，不含栅格数据
type MarkResponse struct {
	ID           uint   `json:"id"`
	PredictionID uint   `json:"prediction_id"`
	MarkTypeID   uint   `json:"mark_type_id"`
	MarkType     string `json:"mark_type,omitempty"`
	Size         int    `json:"size"`
	CreatedAt    string `json:"created_at"`
}

// FromMarks 批量转换标记
func FromMarks(marks []models.PredictionMark) []MarkResponse {
	out := make([]MarkResponse, 0, len(marks))
	for _, m := range marks {
		out = append(out, MarkResponse{
			ID:           m.ID,
			PredictionID: m.PredictionID,
			MarkTypeID:   m.MarkTypeID,
			MarkType:     m.MarkType.Name,
			Size:         len(m.Data),
			CreatedAt:    formatTime(m.CreatedAt),
		})
	}
	return out
}

// PredictionResponse 诊断响应
type PredictionResponse struct {
	ID                 uint           `json:"id"`
	UserID             uint           `json:"user_id"`
	ImageID            uint           `json:"image_id"`
	PlotID             *uint          `json:"plot_id"`
	PresenceConfidence float32        `json:"presence_confidence"`
	AbsenceConfidence  float32        `json:"absence_confidence"`
	Severity           float32        `json:"severity"`
	Label              *LabelResponse `json:"label,omitempty"`
	CreatedAt          string         `json:"created_at"`
}

// FromPrediction 转换诊断，Label 未加载时省略
func FromPrediction(p models.Prediction) PredictionResponse {
	resp := PredictionResponse{
		ID:                 p.ID,
		UserID:             p.UserID,
		ImageID:            p.ImageID,
		PlotID:             p.PlotID,
		PresenceConfidence: p.PresenceConfidence,
		AbsenceConfidence:  p.AbsenceConfidence,
		Severity:           p.Severity,
		CreatedAt:          formatTime(p.CreatedAt),
	}
	if p.Label.ID != 0 {
		label := FromLabel(p.Label)
		resp.Label = &label
	}
	return resp
}

// PredictionOutcomeResponse 诊断结果响应
type PredictionOutcomeResponse struct {
	PredictionResponse
	Recommendations []RecommendationResponse `json:"recommendations"`
	Marks           []MarkResponse           `json:"marks"`
}

// FromOutcome 转换诊断结果
func FromOutcome(o *service.PredictionOutcome) PredictionOutcomeResponse {
	resp := PredictionOutcomeResponse{
		PredictionResponse: FromPrediction(*o.Prediction),
		Recommendations:    FromRecommendations(o.Recommendations),
		Marks:              FromMarks(o.Marks),
	}
	if o.Label != nil {
		label := FromLabel(*o.Label)
		resp.Label = &label
	}
	return resp
}

// PredictionListQuery 诊断列表查询参数
type PredictionListQuery struct {
	PageQuery
	Users   []uint `form:"users"`
	Plots   []uint `form:"plots"`
	Labels  []uint `form:"labels"`
	MinDate string `form:"min_date" validate:"omitempty,datetime=2006-01-02"`
	MaxDate string `form:"max_date" validate:"omitempty,datetime=2006-01-02"`
}

// FromPredictions 批量转换诊断
func FromPredictions(items []models.Prediction) []PredictionResponse {
	out := make([]PredictionResponse, 0, len(items))
	for _, p := range items {
		out = append(out, FromPrediction(p))
	}
	return out
}
