package models

import (
	"time"
)

// 内置标记类型名称
const (
	MarkTypeLeafMask   = "leaf_mask"
	MarkTypeLesionMask = "lesion_mask"
)

// Prediction 诊断结果
type Prediction struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	UserID             uint      `gorm:"not null;index" json:"user_id"`
	ImageID            uint      `gorm:"not null;index" json:"image_id"`
	LabelID            uint      `gorm:"not null;index" json:"label_id"`
	PlotID             *uint     `gorm:"index" json:"plot_id"`
	PresenceConfidence float32   `gorm:"not null" json:"presence_confidence"`
	AbsenceConfidence  float32   `gorm:"not null" json:"absence_confidence"`
	Severity           float32   `gorm:"not null" json:"severity"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// 关联
	Label Label            `gorm:"foreignKey:LabelID" json:"label,omitempty"`
	Marks []PredictionMark `gorm:"foreignKey:PredictionID;constraint:OnDelete:CASCADE" json:"marks,omitempty"`
}

// TableName 指定表名
func (Prediction) TableName() string {
	return "predictions"
}

// MarkType 标记类型（叶片掩膜、病斑掩膜等）
type MarkType struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (MarkType) TableName() string {
	return "mark_types"
}

// PredictionMark 诊断证据，Data 为不透明的栅格数据
type PredictionMark struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Data         []byte    `gorm:"not null" json:"-"`
	MarkTypeID   uint      `gorm:"not null;index" json:"mark_type_id"`
	PredictionID uint      `gorm:"not null;index" json:"prediction_id"`
	CreatedAt    time.Time `json:"created_at"`

	// 关联
	MarkType MarkType `gorm:"foreignKey:MarkTypeID" json:"mark_type,omitempty"`
}

// TableName 指定表名
func (PredictionMark) TableName() string {
	return "prediction_marks"
}
