package models

import (
	"time"
)

// Plot 地块
type Plot struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CompanyID   uint      `gorm:"not null;index" json:"company_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Plot) TableName() string {
	return "plots"
}
