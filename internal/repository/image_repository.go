package repository

import (
	"context"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// ImageRepository 图片数据访问层
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository 创建图片Repository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create 创建图片记录
func (r *ImageRepository) Create(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// GetByID 根据ID获取图片记录
func (r *ImageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// Delete 删除图片记录
func (r *ImageRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Image{}, id).Error
}
