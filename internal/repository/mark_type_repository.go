package repository

import (
	"context"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// MarkTypeRepository 标记类型数据访问层
type MarkTypeRepository struct {
	db *gorm.DB
}

// NewMarkTypeRepository 创建标记类型Repository
func NewMarkTypeRepository(db *gorm.DB) *MarkTypeRepository {
	return &MarkTypeRepository{db: db}
}

// GetByName 根据名称获取标记类型
func (r *MarkTypeRepository) GetByName(ctx context.Context, name string) (*models.MarkType, error) {
	var markType models.MarkType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&markType).Error; err != nil {
		return nil, err
	}
	return &markType, nil
}

// GetOrCreate 按名称获取标记类型，不存在时创建
func (r *MarkTypeRepository) GetOrCreate(ctx context.Context, name string) (*models.MarkType, error) {
	markType := models.MarkType{Name: name}
	err := r.db.WithContext(ctx).Where(models.MarkType{Name: name}).FirstOrCreate(&markType).Error
	if err != nil {
		return nil, err
	}
	return &markType, nil
}

// Save 保存标记类型
func (r *MarkTypeRepository) Save(ctx context.Context, markType *models.MarkType) error {
	return r.db.WithContext(ctx).Save(markType).Error
}

// GetAll 获取全部标记类型
func (r *MarkTypeRepository) GetAll(ctx context.Context) ([]models.MarkType, error) {
	var markTypes []models.MarkType
	err := r.db.WithContext(ctx).Order("id ASC").Find(&markTypes).Error
	return markTypes, err
}
