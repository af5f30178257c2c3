package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"plantdiag/internal/models"

	"gorm.io/gorm"
)

// CatalogService 标签与建议查询
type CatalogService struct {
	labels          LabelStore
	recommendations RecommendationStore
}

// NewCatalogService 创建标签与建议查询服务
func NewCatalogService(labels LabelStore, recommendations RecommendationStore) *CatalogService {
	return &CatalogService{labels: labels, recommendations: recommendations}
}

// Labels 获取全部标签
func (s *CatalogService) Labels(ctx context.Context) ([]models.Label, error) {
	labels, err := s.labels.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取标签失败: %w", err)
	}
	return labels, nil
}

// LabelByName 根据名称获取标签
func (s *CatalogService) LabelByName(ctx context.Context, name string) (*models.Label, error) {
	label, err := s.labels.GetByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 标签 %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("获取标签失败: %w", err)
	}
	return label, nil
}

// LabelsForSeverity 获取区间包含该严重程度的标签，按匹配优先级排序
func (s *CatalogService) LabelsForSeverity(ctx context.Context, severity float32) ([]models.Label, error) {
	if err := checkSeverity(severity); err != nil {
		return nil, err
	}
	labels, err := s.labels.GetBySeverity(ctx, severity)
	if err != nil {
		return nil, fmt.Errorf("获取标签失败: %w", err)
	}
	return labels, nil
}

// Recommendations 获取全部建议
func (s *CatalogService) Recommendations(ctx context.Context) ([]models.Recommendation, error) {
	recs, err := s.recommendations.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取建议失败: %w", err)
	}
	return recs, nil
}

// RecommendationsForSeverity 获取区间包含该严重程度的全部建议
func (s *CatalogService) RecommendationsForSeverity(ctx context.Context, severity float32) ([]models.Recommendation, error) {
	if err := checkSeverity(severity); err != nil {
		return nil, err
	}
	recs, err := s.recommendations.GetBySeverity(ctx, severity)
	if err != nil {
		return nil, fmt.Errorf("获取建议失败: %w", err)
	}
	return recs, nil
}

func checkSeverity(severity float32) error {
	if math.IsNaN(float64(severity)) || severity < 0 || severity > 1 {
		return invalidInput("严重程度必须在 [0,1] 之间: %v", severity)
	}
	return nil
}
