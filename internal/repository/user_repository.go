package repository

import (
	"context"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问层（只读）
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户Repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID 根据ID获取用户
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByCompany 获取公司的全部用户
func (r *UserRepository) ListByCompany(ctx context.Context, companyID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("username ASC").Find(&users).Error
	return users, err
}

// GetAll 获取全部用户
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	return users, err
}
