package repository

import (
	"time"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// PredictionFilter 诊断查询条件
// 各维度之间为 AND，列表内部为 OR，空值表示不限制
type PredictionFilter struct {
	CompanyID *uint
	UserIDs   []uint
	PlotIDs   []uint
	LabelIDs  []uint
	MinDate   *time.Time
	MaxDate   *time.Time
}

// Scope 将查询条件应用到 predictions 表查询上
func (f PredictionFilter) Scope(db *gorm.DB) *gorm.DB {
	if f.CompanyID != nil {
		companyUsers := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.User{}).
			Select("id").
			Where("company_id = ?", *f.CompanyID)
		db = db.Where("predictions.user_id IN (?)", companyUsers)
	}
	if len(f.UserIDs) > 0 {
		db = db.Where("predictions.user_id IN ?", f.UserIDs)
	}
	if len(f.PlotIDs) > 0 {
		db = db.Where("predictions.plot_id IN ?", f.PlotIDs)
	}
	if len(f.LabelIDs) > 0 {
		db = db.Where("predictions.label_id IN ?", f.LabelIDs)
	}
	if f.MinDate != nil {
		db = db.Where("predictions.created_at >= ?", *f.MinDate)
	}
	if f.MaxDate != nil {
		db = db.Where("predictions.created_at <= ?", *f.MaxDate)
	}
	return db
}
