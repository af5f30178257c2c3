package handler

import (
	"plantdiag/internal/dto"
	"plantdiag/internal/middleware"
	"plantdiag/internal/service"
	"plantdiag/internal/utils"

	"github.com/gin-gonic/gin"
)

// ImageHandler 图片处理器
type ImageHandler struct {
	imageService *service.ImageService
	maxUpload    int64
}

// NewImageHandler 创建图片处理器
func NewImageHandler(imageService *service.ImageService, maxUpload int64) *ImageHandler {
	return &ImageHandler{imageService: imageService, maxUpload: maxUpload}
}

// Upload 上传图片
func (h *ImageHandler) Upload(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

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

	utils.CreatedResponse(c, dto.FromImage(image))
}
