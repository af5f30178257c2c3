package models

import (
	"time"
)

// Label 严重程度标签，覆盖 [Min, Max] 闭区间
type Label struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Min         float32   `gorm:"not null" json:"min"`
	Max         float32   `gorm:"not null" json:"max"`
	Weight      int32     `gorm:"default:0" json:"weight"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Label) TableName() string {
	return "labels"
}

// Contains 判断严重程度是否落在标签区间内（两端闭合）
func (l Label) Contains(severity float32) bool {
	return l.Min <= severity && severity <= l.Max
}
