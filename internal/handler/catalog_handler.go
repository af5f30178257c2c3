package handler

import (
	"plantdiag/internal/dto"
	"plantdiag/internal/models"
	"plantdiag/internal/service"
	"plantdiag/internal/utils"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 标签与建议处理器
type CatalogHandler struct {
	catalogService *service.CatalogService
	validator      *utils.Validator
}

// NewCatalogHandler 创建标签与建议处理器
func NewCatalogHandler(catalogService *service.CatalogService, validator *utils.Validator) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, validator: validator}
}

// Labels 获取标签，name 按名称精确查找，severity 返回区间包含该值的标签
func (h *CatalogHandler) Labels(c *gin.Context) {
	var q dto.LabelQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(&q); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	var (
		labels []models.Label
		err    error
	)
	switch {
	case q.Name != "":
		var label *models.Label
		label, err = h.catalogService.LabelByName(ctx, q.Name)
		if label != nil {
			labels = []models.Label{*label}
		}
	case q.Severity != nil:
		labels, err = h.catalogService.LabelsForSeverity(ctx, *q.Severity)
	default:
		labels, err = h.catalogService.Labels(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.FromLabels(labels))
}

// Recommendations 获取建议，指定 severity 时只返回匹配的建议
func (h *CatalogHandler) Recommendations(c *gin.Context) {
	var q dto.RecommendationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(&q); err != nil {
		respondError(c, err)
		return
	}

	var (
		recs []models.Recommendation
		err  error
	)
	if q.Severity != nil {
		recs, err = h.catalogService.RecommendationsForSeverity(c.Request.Context(), *q.Severity)
	} else {
		recs, err = h.catalogService.Recommendations(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.FromRecommendations(recs))
}
