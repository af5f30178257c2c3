package repository

import (
	"context"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// RecommendationRepository 防治建议数据访问层
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository 创建防治建议Repository
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create 创建建议
func (r *RecommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	return r.db.WithContext(ctx).Omit("Category").Create(rec).Error
}

// GetByID 根据ID获取建议
func (r *RecommendationRepository) GetByID(ctx context.Context, id uint) (*models.Recommendation, error) {
	var rec models.Recommendation
	if err := r.db.WithContext(ctx).Preload("Category").First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAll 获取全部建议
func (r *RecommendationRepository) GetAll(ctx context.Context) ([]models.Recommendation, error) {
	var recs []models.Recommendation
	err := r.db.WithContext(ctx).
		Preload("Category").
		Order("min_severity ASC, id ASC").
		Find(&recs).Error
	return recs, err
}

// GetBySeverity 获取区间包含该严重程度的所有建议
func (r *RecommendationRepository) GetBySeverity(ctx context.Context, severity float32) ([]models.Recommendation, error) {
	var recs []models.Recommendation
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("min_severity <= ? AND max_severity >= ?", severity, severity).
		Order("min_severity ASC, id ASC").
		Find(&recs).Error
	return recs, err
}

// GetByCategoryAndDescription 根据分类和描述查找建议
func (r *RecommendationRepository) GetByCategoryAndDescription(ctx context.Context, categoryID uint, description string) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND description = ?", categoryID, description).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update 更新建议
func (r *RecommendationRepository) Update(ctx context.Context, rec *models.Recommendation) error {
	return r.db.WithContext(ctx).Omit("Category").Save(rec).Error
}

// Delete 删除建议
func (r *RecommendationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Recommendation{}, id).Error
}
