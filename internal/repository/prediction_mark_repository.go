package repository

import (
	"context"

	"plantdiag/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionMarkRepository 诊断标记数据访问层
type PredictionMarkRepository struct {
	db *gorm.DB
}

// NewPredictionMarkRepository 创建诊断标记Repository
func NewPredictionMarkRepository(db *gorm.DB) *PredictionMarkRepository {
	return &PredictionMarkRepository{db: db}
}

// Create 创建标记
func (r *PredictionMarkRepository) Create(ctx context.Context, mark *models.PredictionMark) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(mark).Error
}

// CreateMany 在同一事务中批量创建标记，全部成功或全部失败
func (r *PredictionMarkRepository) CreateMany(ctx context.Context, marks []models.PredictionMark) error {
	if len(marks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&marks).Error
	})
}

// GetByID 根据ID获取标记
func (r *PredictionMarkRepository) GetByID(ctx context.Context, id uint) (*models.PredictionMark, error) {
	var mark models.PredictionMark
	if err := r.db.WithContext(ctx).Preload("MarkType").First(&mark, id).Error; err != nil {
		return nil, err
	}
	return &mark, nil
}

// GetByPredictionID 获取诊断的全部标记
func (r *PredictionMarkRepository) GetByPredictionID(ctx context.Context, predictionID uint) ([]models.PredictionMark, error) {
	var marks []models.PredictionMark
	err := r.db.WithContext(ctx).
		Preload("MarkType").
		Where("prediction_id = ?", predictionID).
		Order("id ASC").
		Find(&marks).Error
	return marks, err
}

// GetByPredictionsIDs 获取多个诊断的全部标记
func (r *PredictionMarkRepository) GetByPredictionsIDs(ctx context.Context, predictionIDs []uint) ([]models.PredictionMark, error) {
	var marks []models.PredictionMark
	if len(predictionIDs) == 0 {
		return marks, nil
	}
	err := r.db.WithContext(ctx).
		Preload("MarkType").
		Where("prediction_id IN ?", predictionIDs).
		Order("prediction_id ASC, id ASC").
		Find(&marks).Error
	return marks, err
}

// Delete 删除标记
func (r *PredictionMarkRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PredictionMark{}, id).Error
}
