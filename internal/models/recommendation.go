package models

import (
	"time"
)

// Category 建议分类
type Category struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Category) TableName() string {
	return "categories"
}

// Recommendation 防治建议，区间之间允许重叠
type Recommendation struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	MinSeverity float32   `gorm:"not null" json:"min_severity"`
	MaxSeverity float32   `gorm:"not null" json:"max_severity"`
	CategoryID  uint      `gorm:"not null;index" json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 关联
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName 指定表名
func (Recommendation) TableName() string {
	return "recommendations"
}

// Contains 判断严重程度是否落在建议区间内（两端闭合）
func (r Recommendation) Contains(severity float32) bool {
	return r.MinSeverity <= severity && severity <= r.MaxSeverity
}
