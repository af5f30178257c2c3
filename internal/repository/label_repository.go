package repository

import (
	"context"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// LabelRepository 标签数据访问层
type LabelRepository struct {
	db *gorm.DB
}

// NewLabelRepository 创建标签Repository
func NewLabelRepository(db *gorm.DB) *LabelRepository {
	return &LabelRepository{db: db}
}

// Create 创建标签
func (r *LabelRepository) Create(ctx context.Context, label *models.Label) error {
	return r.db.WithContext(ctx).Create(label).Error
}

// GetByID 根据ID获取标签
func (r *LabelRepository) GetByID(ctx context.Context, id uint) (*models.Label, error) {
	var label models.Label
	if err := r.db.WithContext(ctx).First(&label, id).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

// GetByName 根据名称获取标签
func (r *LabelRepository) GetByName(ctx context.Context, name string) (*models.Label, error) {
	var label models.Label
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&label).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

// GetBySeverity 获取区间包含该严重程度的所有标签
func (r *LabelRepository) GetBySeverity(ctx context.Context, severity float32) ([]models.Label, error) {
	var labels []models.Label
	err := r.db.WithContext(ctx).
		Where("min <= ? AND max >= ?", severity, severity).
		Order("min ASC, weight DESC, id ASC").
		Find(&labels).Error
	return labels, err
}

// GetAll 获取全部标签
func (r *LabelRepository) GetAll(ctx context.Context) ([]models.Label, error) {
	var labels []models.Label
	err := r.db.WithContext(ctx).Order("min ASC, id ASC").Find(&labels).Error
	return labels, err
}

// GetByIDs 根据ID列表获取标签
func (r *LabelRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Label, error) {
	var labels []models.Label
	if len(ids) == 0 {
		return labels, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("min ASC, id ASC").Find(&labels).Error
	return labels, err
}

// Update 更新标签
func (r *LabelRepository) Update(ctx context.Context, label *models.Label) error {
	return r.db.WithContext(ctx).Save(label).Error
}

// Delete 删除标签
func (r *LabelRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Label{}, id).Error
}
