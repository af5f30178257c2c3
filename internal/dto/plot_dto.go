package dto

import (
	"plantdiag/internal/models"
	"plantdiag/internal/service"
)

// CreatePlotRequest 创建地块请求，管理员可指定公司
type CreatePlotRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
	CompanyID   *uint   `json:"company_id" validate:"omitempty,gt=0"`
}

// PlotResponse 地块响应
type PlotResponse struct {
	ID          uint    `json:"id"`
	CompanyID   uint    `json:"company_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// FromPlot 转换地块
func FromPlot(p *models.Plot) PlotResponse {
	return PlotResponse{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   formatTime(p.CreatedAt),
	}
}

// DetailedPlotQuery 地块统计查询参数
type DetailedPlotQuery struct {
	PageQuery
	Name   string `form:"name" validate:"max=255"`
	Labels []uint `form:"labels"`
}

// DetailedPlotResponse 地块统计响应
type DetailedPlotResponse struct {
	ID                uint    `json:"id"`
	Name              string  `json:"name"`
	Description       *string `json:"description,omitempty"`
	CreatedAt         string  `json:"created_at"`
	TotalDiagnosis    int64   `json:"total_diagnosis"`
	LastDiagnosis     *string `json:"last_diagnosis"`
	MatchingDiagnosis int64   `json:"matching_diagnosis"`
}

// FromDetailedPlots 批量转换地块统计
func FromDetailedPlots(items []service.DetailedPlot) []DetailedPlotResponse {
	out := make([]DetailedPlotResponse, 0, len(items))
	for _, p := range items {
		out = append(out, DetailedPlotResponse{
			ID:                p.ID,
			Name:              p.Name,
			Description:       p.Description,
			CreatedAt:         formatTime(p.CreatedAt),
			TotalDiagnosis:    p.TotalDiagnosis,
			LastDiagnosis:     formatTimePtr(p.LastDiagnosis),
			MatchingDiagnosis: p.MatchingDiagnosis,
		})
	}
	return out
}

// AssignRequest 批量归属请求
type AssignRequest struct {
	PredictionIDs []uint `json:"prediction_ids" validate:"required,min=1,max=500,dive,gt=0"`
}

// AssignmentStatusResponse 单个诊断的归属结果
type AssignmentStatusResponse struct {
	PredictionID uint   `json:"prediction_id"`
	Status       string `json:"status"`
}

// AssignedPlotResponse 批量归属响应
type AssignedPlotResponse struct {
	PlotID        uint                       `json:"plot_id"`
	PredictionIDs []uint                     `json:"prediction_ids"`
	Results       []AssignmentStatusResponse `json:"results"`
}

// FromAssignedPlot 转换批量归属结果
func FromAssignedPlot(a *service.AssignedPlot) AssignedPlotResponse {
	resp := AssignedPlotResponse{
		PlotID:        a.PlotID,
		PredictionIDs: a.PredictionIDs,
		Results:       make([]AssignmentStatusResponse, 0, len(a.Results)),
	}
	if resp.PredictionIDs == nil {
		resp.PredictionIDs = []uint{}
	}
	for _, r := range a.Results {
		resp.Results = append(resp.Results, AssignmentStatusResponse{PredictionID: r.PredictionID, Status: r.Status})
	}
	return resp
}
