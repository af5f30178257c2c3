package repository

import (
	"context"
	"time"

	"plantdiag/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionRepository 诊断结果数据访问层
type PredictionRepository struct {
	db *gorm.DB
}

// NewPredictionRepository 创建诊断结果Repository
func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Create 创建诊断结果（不含标记）
func (r *PredictionRepository) Create(ctx context.Context, prediction *models.Prediction) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(prediction).Error
}

// CreateWithMarks 在同一事务中写入诊断结果及其全部标记
func (r *PredictionRepository) CreateWithMarks(ctx context.Context, prediction *models.Prediction, marks []models.PredictionMark) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(prediction).Error; err != nil {
			return err
		}
		for i := range marks {
			marks[i].PredictionID = prediction.ID
		}
		return NewPredictionMarkRepository(tx).CreateMany(ctx, marks)
	})
}

// GetByID 根据ID获取诊断结果
func (r *PredictionRepository) GetByID(ctx context.Context, id uint) (*models.Prediction, error) {
	var prediction models.Prediction
	if err := r.db.WithContext(ctx).Preload("Label").First(&prediction, id).Error; err != nil {
		return nil, err
	}
	return &prediction, nil
}

// Update 更新诊断结果
func (r *PredictionRepository) Update(ctx context.Context, prediction *models.Prediction) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(prediction).Error
}

// UpdateLabel 更新诊断标签
func (r *PredictionRepository) UpdateLabel(ctx context.Context, id uint, labelID uint) error {
	return r.db.WithContext(ctx).Model(&models.Prediction{}).Where("id = ?", id).Update("label_id", labelID).Error
}

// Delete 在同一事务中删除诊断结果及其标记
func (r *PredictionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prediction_id = ?", id).Delete(&models.PredictionMark{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Prediction{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List 按条件分页获取诊断结果
func (r *PredictionRepository) List(ctx context.Context, filter PredictionFilter, offset, limit int) ([]models.Prediction, int64, error) {
	var predictions []models.Prediction
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Prediction{}).Scopes(filter.Scope)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Label").
		Order("predictions.created_at DESC, predictions.id DESC").
		Offset(offset).Limit(limit).
		Find(&predictions).Error
	return predictions, total, err
}

// SummaryRow 汇总查询结果
type SummaryRow struct {
	Total        int64
	Plots        int64
	MeanSeverity float64
}

// Summary 统计符合条件的诊断数量、地块数量与平均严重程度
func (r *PredictionRepository) Summary(ctx context.Context, filter PredictionFilter) (*SummaryRow, error) {
	var row SummaryRow
	err := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Scopes(filter.Scope).
		Select("COUNT(*) AS total, COUNT(DISTINCT predictions.plot_id) AS plots, COALESCE(AVG(predictions.severity), 0) AS mean_severity").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LabelTimeRow 诊断的标签与时间
type LabelTimeRow struct {
	LabelID   uint
	CreatedAt time.Time
}

// ListLabelTimes 获取符合条件的诊断的标签与创建时间，按时间升序
func (r *PredictionRepository) ListLabelTimes(ctx context.Context, filter PredictionFilter) ([]LabelTimeRow, error) {
	var rows []LabelTimeRow
	err := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Scopes(filter.Scope).
		Select("predictions.label_id, predictions.created_at").
		Order("predictions.created_at ASC").
		Find(&rows).Error
	return rows, err
}

// SummaryWithLabelTimes 在同一事务中读取汇总与标签时间，两者基于同一快照
func (r *PredictionRepository) SummaryWithLabelTimes(ctx context.Context, filter PredictionFilter) (*SummaryRow, []LabelTimeRow, error) {
	var (
		row  *SummaryRow
		rows []LabelTimeRow
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot := NewPredictionRepository(tx)
		var err error
		if row, err = snapshot.Summary(ctx, filter); err != nil {
			return err
		}
		rows, err = snapshot.ListLabelTimes(ctx, filter)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return row, rows, nil
}

// PlotOwnership 诊断当前所属地块
type PlotOwnership struct {
	ID     uint
	PlotID *uint
}

// GetPlotOwnership 获取诊断ID列表中存在的记录及其当前地块
func (r *PredictionRepository) GetPlotOwnership(ctx context.Context, ids []uint) ([]PlotOwnership, error) {
	var rows []PlotOwnership
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Select("id, plot_id").
		Where("id IN ?", ids).
		Find(&rows).Error
	return rows, err
}

// SetPlot 设置诊断的地块，plotID 为 nil 时清空
func (r *PredictionRepository) SetPlot(ctx context.Context, ids []uint, plotID *uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("id IN ?", ids).
		Update("plot_id", plotID).Error
}

// PlotStatRow 地块统计用的诊断字段
type PlotStatRow struct {
	PlotID    uint
	LabelID   uint
	CreatedAt time.Time
}

// ListPlotStatRows 获取指定地块下的诊断
func (r *PredictionRepository) ListPlotStatRows(ctx context.Context, plotIDs []uint) ([]PlotStatRow, error) {
	var rows []PlotStatRow
	if len(plotIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Select("plot_id, label_id, created_at").
		Where("plot_id IN ?", plotIDs).
		Find(&rows).Error
	return rows, err
}

// ClearPlot 清空仍属于该地块的诊断的地块，返回受影响行数
func (r *PredictionRepository) ClearPlot(ctx context.Context, ids []uint, plotID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("id IN ? AND plot_id = ?", ids, plotID).
		Update("plot_id", nil)
	return result.RowsAffected, result.Error
}
