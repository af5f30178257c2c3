package dto

import (
	"plantdiag/internal/models"
	"plantdiag/internal/service"
)

// DashboardQuery 仪表盘查询参数
type DashboardQuery struct {
	Users        []uint `form:"users"`
	Plots        []uint `form:"plots"`
	Labels       []uint `form:"labels"`
	MinDate      string `form:"min_date" validate:"omitempty,datetime=2006-01-02"`
	MaxDate      string `form:"max_date" validate:"omitempty,datetime=2006-01-02"`
	Distribution bool   `form:"distribution"`
}

// LabelCountResponse 某月某标签的诊断数
type LabelCountResponse struct {
	Label LabelResponse `json:"label"`
	Count int64         `json:"count"`
}

// DistributionResponse 某月的标签分布
type DistributionResponse struct {
	Month  string               `json:"month"`
	Labels []LabelCountResponse `json:"labels"`
}

// DashboardResponse 仪表盘汇总响应
type DashboardResponse struct {
	Total        int64                  `json:"total"`
	Plots        int64                  `json:"plots"`
	MeanSeverity float64                `json:"mean_severity"`
	Distribution []DistributionResponse `json:"distribution,omitempty"`
}

// FromDashboardSummary 转换仪表盘汇总
func FromDashboardSummary(s *service.DashboardSummary) DashboardResponse {
	resp := DashboardResponse{
		Total:        s.Total,
		Plots:        s.Plots,
		MeanSeverity: s.MeanSeverity,
	}
	if s.Distribution != nil {
		resp.Distribution = make([]DistributionResponse, 0, len(s.Distribution))
		for _, d := range s.Distribution {
			month := DistributionResponse{Month: d.Month, Labels: make([]LabelCountResponse, 0, len(d.Labels))}
			for _, lc := range d.Labels {
				month.Labels = append(month.Labels, LabelCountResponse{Label: FromLabel(lc.Label), Count: lc.Count})
			}
			resp.Distribution = append(resp.Distribution, month)
		}
	}
	return resp
}

// FilterOption 筛选项
type FilterOption struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// DashboardFiltersResponse 仪表盘筛选项响应
type DashboardFiltersResponse struct {
	Users  []FilterOption  `json:"users"`
	Plots  []FilterOption  `json:"plots"`
	Labels []LabelResponse `json:"labels"`
}

// FromDashboardFilters 转换仪表盘筛选项
func FromDashboardFilters(f *service.DashboardFilters) DashboardFiltersResponse {
	resp := DashboardFiltersResponse{
		Users:  make([]FilterOption, 0, len(f.Users)),
		Plots:  plotOptions(f.Plots),
		Labels: FromLabels(f.Labels),
	}
	for _, u := range f.Users {
		resp.Users = append(resp.Users, FilterOption{ID: u.ID, Name: u.Username})
	}
	return resp
}

func plotOptions(plots []models.Plot) []FilterOption {
	out := make([]FilterOption, 0, len(plots))
	for _, p := range plots {
		out = append(out, FilterOption{ID: p.ID, Name: p.Name})
	}
	return out
}
