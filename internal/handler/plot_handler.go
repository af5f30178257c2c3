package handler

import (
	"context"

	"plantdiag/internal/dto"
	"plantdiag/internal/middleware"
	"plantdiag/internal/service"
	"plantdiag/internal/utils"

	"github.com/gin-gonic/gin"
)

// PlotHandler 地块处理器
type PlotHandler struct {
	plotService *service.PlotService
	validator   *utils.Validator
}

// NewPlotHandler 创建地块处理器
func NewPlotHandler(plotService *service.PlotService, validator *utils.Validator) *PlotHandler {
	return &PlotHandler{plotService: plotService, validator: validator}
}

// Create 创建地块
func (h *PlotHandler) Create(c *gin.Context) {
	var req dto.CreatePlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(c, err)
		return
	}

	companyID, _ := middleware.GetCompanyID(c)
	if middleware.IsAdmin(c) && req.CompanyID != nil {
		companyID = *req.CompanyID
	}

	plot, err := h.plotService.CreatePlot(c.Request.Context(), service.CreatePlotInput{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, dto.FromPlot(plot))
}

// Delete 删除地块
func (h *PlotHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.plotService.DeletePlot(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "地块已删除", gin.H{"id": id})
}

// ListDetailed 分页获取地块及诊断统计
func (h *PlotHandler) ListDetailed(c *gin.Context) {
	var q dto.DetailedPlotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(&q); err != nil {
		respondError(c, err)
		return
	}

	companyID, err := companyScope(c)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := h.plotService.ListDetailed(c.Request.Context(), service.DetailedPlotQuery{
		CompanyID: companyID,
		Name:      q.Name,
		LabelIDs:  q.Labels,
		Page:      q.Page,
		Limit:     q.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, dto.FromDetailedPlots(result.Items), result.Total, result.Page, result.Limit)
}

// Assign 将诊断归属到地块
func (h *PlotHandler) Assign(c *gin.Context) {
	h.assignment(c, h.plotService.Assign)
}

// Unassign 将诊断移出地块
func (h *PlotHandler) Unassign(c *gin.Context) {
	h.assignment(c, h.plotService.Unassign)
}

func (h *PlotHandler) assignment(c *gin.Context, apply func(ctx context.Context, plotID uint, ids []uint) (*service.AssignedPlot, error)) {
	plotID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(c, err)
		return
	}

	result, err := apply(c.Request.Context(), plotID, req.PredictionIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, dto.FromAssignedPlot(result))
}
