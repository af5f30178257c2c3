package handler

import (
	"net/http"

	"plantdiag/internal/dto"
	"plantdiag/internal/middleware"
	"plantdiag/internal/service"
	"plantdiag/internal/utils"

	"github.com/gin-gonic/gin"
)

// PredictionHandler 诊断处理器
type PredictionHandler struct {
	predictionService *service.PredictionService
	imageService      *service.ImageService
	validator         *utils.Validator
	maxUpload         int64
}

// NewPredictionHandler 创建诊断处理器
func NewPredictionHandler(
	predictionService *service.PredictionService,
	imageService *service.ImageService,
	validator *utils.Validator,
	maxUpload int64,
) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		imageService:      imageService,
		validator:         validator,
		maxUpload:         maxUpload,
	}
}

// Create 上传图片并诊断
func (h *PredictionHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var form dto.CreatePredictionForm
	if err := c.ShouldBind(&form); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := h.validator.Validate(&form); err != nil {
		respondError(c, err)
		return
	}

	filename, contentType, data, err := readImage(c, "image", h.maxUpload)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	image, err := h.imageService.Upload(c.Request.Context(), userID, filename, contentType, data)
	if err != nil {
		respondError(c, err)
		return
	}

	outcome, err := h.predictionService.Create(c.Request.Context(), service.CreatePredictionInput{
		UserID:  userID,
		ImageID: image.ID,
		LabelID: form.LabelID,
		PlotID:  form.PlotID,
		Image:   data,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, dto.FromOutcome(outcome))
}

// CreateFromImage 对已上传的图片诊断
func (h *PredictionHandler) CreateFromImage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	imageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.PredictImageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(c, err)
		return
	}

	outcome, err := h.predictionService.Create(c.Request.Context(), service.CreatePredictionInput{
		UserID:  userID,
		ImageID: imageID,
		LabelID: req.LabelID,
		PlotID:  req.PlotID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, dto.FromOutcome(outcome))
}

// List 分页获取诊断
func (h *PredictionHandler) List(c *gin.Context) {
	var q dto.PredictionListQuery
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

	result, err := h.predictionService.List(c.Request.Context(), filter, q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, dto.FromPredictions(result.Items), result.Total, result.Page, result.Limit)
}

// Get 获取诊断详情
func (h *PredictionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	outcome, err := h.predictionService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, dto.FromOutcome(outcome))
}

// Marks 获取诊断的标记列表
func (h *PredictionHandler) Marks(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	marks, err := h.predictionService.Marks(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, dto.FromMarks(marks))
}

// MarkData 下载标记的栅格数据
func (h *PredictionHandler) MarkData(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	markID, ok := paramID(c, "mark_id")
	if !ok {
		return
	}

	mark, err := h.predictionService.Mark(c.Request.Context(), id, markID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", mark.Data)
}

// Delete 删除诊断
func (h *PredictionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.predictionService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "诊断已删除", gin.H{"id": id})
}

// Reclassify 按当前标签重新分类(管理员)
func (h *PredictionHandler) Reclassify(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	outcome, err := h.predictionService.Reclassify(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, dto.FromOutcome(outcome))
}
