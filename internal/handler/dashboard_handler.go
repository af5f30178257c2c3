package handler

import (
	"plantdiag/internal/dto"
	"plantdiag/internal/service"
	"plantdiag/internal/utils"

	"github.com/gin-gonic/gin"
)

// DashboardHandler 仪表盘处理器
type DashboardHandler struct {
	dashboardService *service.DashboardService
	validator        *utils.Validator
}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler(dashboardService *service.DashboardService, validator *utils.Validator) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, validator: validator}
}

// Summary 诊断汇总统计
func (h *DashboardHandler) Summary(c *gin.Context) {
	var q dto.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(&q); err != nil {
		respondError(c, err)
		return
	}

	filter, err := predictionFilter(c, q.Users, q.Plots, q.Labels, q.MinDate, q.MaxDate)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	summary, err := h.dashboardService.Summary(c.Request.Context(), filter, q.Distribution)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, dto.FromDashboardSummary(summary))
}

// Filters 获取可选的筛选项
func (h *DashboardHandler) Filters(c *gin.Context) {
	companyID, err := companyScope(c)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	filters, err := h.dashboardService.Filters(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, dto.FromDashboardFilters(filters))
}
