// Package testutil 提供测试用的数据库与数据构造工具
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"plantdiag/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 创建已迁移的内存 sqlite 数据库，每个测试独立
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Ptr 返回值的指针
func Ptr[T any](v T) *T {
	return &v
}

// SeedLabels 写入三档标签：[0,0.3] [0.3,0.6] [0.6,1]
func SeedLabels(t *testing.T, db *gorm.DB) []models.Label {
	t.Helper()
	labels := []models.Label{
		{Name: "healthy", Min: 0.0, Max: 0.3, Weight: 1},
		{Name: "moderate", Min: 0.3, Max: 0.6, Weight: 2},
		{Name: "severe", Min: 0.6, Max: 1.0, Weight: 3},
	}
	require.NoError(t, db.Create(&labels).Error)
	return labels
}

// SeedUser 写入用户
func SeedUser(t *testing.T, db *gorm.DB, username string, companyID uint) models.User {
	t.Helper()
	user := models.User{Username: username, CompanyID: companyID, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// SeedPlot 写入地块
func SeedPlot(t *testing.T, db *gorm.DB, name string, companyID uint, createdAt time.Time) models.Plot {
	t.Helper()
	plot := models.Plot{Name: name, CompanyID: companyID, CreatedAt: createdAt}
	require.NoError(t, db.Create(&plot).Error)
	return plot
}

// SeedImage 写入图片记录
func SeedImage(t *testing.T, db *gorm.DB, userID uint, path string) models.Image {
	t.Helper()
	image := models.Image{UserID: userID, Filename: "leaf.jpg", Path: path, ContentType: "image/jpeg", Size: 4}
	require.NoError(t, db.Create(&image).Error)
	return image
}

// SeedPrediction 直接写入诊断记录，跳过流水线
func SeedPrediction(t *testing.T, db *gorm.DB, p models.Prediction) models.Prediction {
	t.Helper()
	require.NoError(t, db.Omit("Label", "Marks").Create(&p).Error)
	return p
}

// SeedRecommendations 写入两条区间重叠的建议：[0,0.5] [0.4,1]
func SeedRecommendations(t *testing.T, db *gorm.DB) []models.Recommendation {
	t.Helper()
	category := models.Category{Name: "treatment"}
	require.NoError(t, db.Create(&category).Error)

	recs := []models.Recommendation{
		{Description: Ptr("remove affected leaves"), MinSeverity: 0.0, MaxSeverity: 0.5, CategoryID: category.ID},
		{Description: Ptr("apply fungicide"), MinSeverity: 0.4, MaxSeverity: 1.0, CategoryID: category.ID},
	}
	require.NoError(t, db.Omit("Category").Create(&recs).Error)
	return recs
}
