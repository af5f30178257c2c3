package repository

import (
	"context"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// PlotFilter 地块查询条件
type PlotFilter struct {
	CompanyID *uint
	Name      string
}

// PlotRepository 地块数据访问层
type PlotRepository struct {
	db *gorm.DB
}

// NewPlotRepository 创建地块Repository
func NewPlotRepository(db *gorm.DB) *PlotRepository {
	return &PlotRepository{db: db}
}

// Create 创建地块
func (r *PlotRepository) Create(ctx context.Context, plot *models.Plot) error {
	return r.db.WithContext(ctx).Create(plot).Error
}

// GetByID 根据ID获取地块
func (r *PlotRepository) GetByID(ctx context.Context, id uint) (*models.Plot, error) {
	var plot models.Plot
	if err := r.db.WithContext(ctx).First(&plot, id).Error; err != nil {
		return nil, err
	}
	return &plot, nil
}

// Update 更新地块
func (r *PlotRepository) Update(ctx context.Context, plot *models.Plot) error {
	return r.db.WithContext(ctx).Save(plot).Error
}

// Delete 删除地块，并在同一事务中清空其下诊断的地块
func (r *PlotRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Prediction{}).Where("plot_id = ?", id).Update("plot_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Plot{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List 按条件分页获取地块
func (r *PlotRepository) List(ctx context.Context, filter PlotFilter, offset, limit int) ([]models.Plot, int64, error) {
	var plots []models.Plot
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Plot{})
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Name != "" {
		query = query.Where("name LIKE ?", "%"+filter.Name+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&plots).Error
	return plots, total, err
}

// ListByCompany 获取公司的全部地块
func (r *PlotRepository) ListByCompany(ctx context.Context, companyID uint) ([]models.Plot, error) {
	var plots []models.Plot
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("name ASC").Find(&plots).Error
	return plots, err
}

// GetAll 获取全部地块
func (r *PlotRepository) GetAll(ctx context.Context) ([]models.Plot, error) {
	var plots []models.Plot
	err := r.db.WithContext(ctx).Order("name ASC").Find(&plots).Error
	return plots, err
}
