package dto

import "plantdiag/internal/models"

// ImageResponse 图片响应
type ImageResponse struct {
	ID          uint   `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	CreatedAt   string `json:"created_at"`
}

// FromImage 转换图片
func FromImage(img *models.Image) ImageResponse {
	return ImageResponse{
		ID:          img.ID,
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Size:        img.Size,
		CreatedAt:   formatTime(img.CreatedAt),
	}
}
