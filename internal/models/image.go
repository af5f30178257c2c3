package models

import (
	"time"
)

// Image 上传的叶片图片，文件内容保存在文件存储中
type Image struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	Path        string    `gorm:"size:500;not null;uniqueIndex" json:"path"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Size        int       `gorm:"not null" json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (Image) TableName() string {
	return "images"
}
