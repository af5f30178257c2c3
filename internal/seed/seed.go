// Package seed 从 YAML 文件导入标签、建议分类、建议与标记类型
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"plantdiag/internal/models"
	"plantdiag/internal/repository"
	"plantdiag/internal/utils"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// File 种子文件
type File struct {
	Labels          []Label          `yaml:"labels" validate:"dive"`
	Categories      []Category       `yaml:"categories" validate:"dive"`
	Recommendations []Recommendation `yaml:"recommendations" validate:"dive"`
	MarkTypes       []MarkType       `yaml:"mark_types" validate:"dive"`
}

// Label 标签
type Label struct {
	Name        string  `yaml:"name" validate:"required,max=100"`
	Description *string `yaml:"description"`
	Min         float32 `yaml:"min" validate:"severity"`
	Max         float32 `yaml:"max" validate:"severity,gtefield=Min"`
	Weight      int32   `yaml:"weight"`
}

// Category 建议分类
type Category struct {
	Name        string  `yaml:"name" validate:"required,max=100"`
	Description *string `yaml:"description"`
}

// Recommendation 建议，按 (分类, 描述) 去重
type Recommendation struct {
	Category    string  `yaml:"category" validate:"required"`
	Description string  `yaml:"description" validate:"required"`
	MinSeverity float32 `yaml:"min_severity" validate:"severity"`
	MaxSeverity float32 `yaml:"max_severity" validate:"severity,gtefield=MinSeverity"`
}

// MarkType 标记类型
type MarkType struct {
	Name        string  `yaml:"name" validate:"required,mark_name"`
	Description *string `yaml:"description"`
}

// Result 导入结果
type Result struct {
	Created int
	Updated int
}

// Load 读取并校验种子文件
func Load(path string, validator *utils.Validator) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取种子文件失败: %w", err)
	}
	return Parse(data, validator)
}

// Parse 解析并校验种子数据，未知字段视为错误
func Parse(data []byte, validator *utils.Validator) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}
	if err := validator.Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Apply 在一个事务中按名称写入或更新种子数据
func Apply(ctx context.Context, db *gorm.DB, f *File, logger logrus.FieldLogger) (*Result, error) {
	result := &Result{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := seeder{
			labels:          repository.NewLabelRepository(tx),
			categories:      repository.NewCategoryRepository(tx),
			recommendations: repository.NewRecommendationRepository(tx),
			markTypes:       repository.NewMarkTypeRepository(tx),
			result:          result,
		}
		for _, l := range f.Labels {
			if err := s.label(ctx, l); err != nil {
				return err
			}
		}
		for _, c := range f.Categories {
			if err := s.category(ctx, c); err != nil {
				return err
			}
		}
		for _, r := range f.Recommendations {
			if err := s.recommendation(ctx, r); err != nil {
				return err
			}
		}
		for _, m := range f.MarkTypes {
			if err := s.markType(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
	}).Info("种子数据已导入")
	return result, nil
}

type seeder struct {
	labels          *repository.LabelRepository
	categories      *repository.CategoryRepository
	recommendations *repository.RecommendationRepository
	markTypes       *repository.MarkTypeRepository
	result          *Result
}

func (s *seeder) label(ctx context.Context, l Label) error {
	existing, err := s.labels.GetByName(ctx, l.Name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.result.Created++
		return s.labels.Create(ctx, &models.Label{
			Name:        l.Name,
			Description: l.Description,
			Min:         l.Min,
			Max:         l.Max,
			Weight:      l.Weight,
		})
	case err != nil:
		return fmt.Errorf("查询标签 %s 失败: %w", l.Name, err)
	}

	existing.Description = l.Description
	existing.Min = l.Min
	existing.Max = l.Max
	existing.Weight = l.Weight
	s.result.Updated++
	return s.labels.Update(ctx, existing)
}

func (s *seeder) category(ctx context.Context, c Category) error {
	existing, err := s.categories.GetByName(ctx, c.Name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.result.Created++
		return s.categories.Create(ctx, &models.Category{Name: c.Name, Description: c.Description})
	case err != nil:
		return fmt.Errorf("查询分类 %s 失败: %w", c.Name, err)
	}

	existing.Description = c.Description
	s.result.Updated++
	return s.categories.Update(ctx, existing)
}

func (s *seeder) recommendation(ctx context.Context, r Recommendation) error {
	category, err := s.categories.GetByName(ctx, r.Category)
	if err != nil {
		return fmt.Errorf("建议引用的分类 %s 不存在: %w", r.Category, err)
	}

	existing, err := s.recommendations.GetByCategoryAndDescription(ctx, category.ID, r.Description)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		description := r.Description
		s.result.Created++
		return s.recommendations.Create(ctx, &models.Recommendation{
			Description: &description,
			MinSeverity: r.MinSeverity,
			MaxSeverity: r.MaxSeverity,
			CategoryID:  category.ID,
		})
	case err != nil:
		return fmt.Errorf("查询建议失败: %w", err)
	}

	existing.MinSeverity = r.MinSeverity
	existing.MaxSeverity = r.MaxSeverity
	s.result.Updated++
	return s.recommendations.Update(ctx, existing)
}

func (s *seeder) markType(ctx context.Context, m MarkType) error {
	existing, err := s.markTypes.GetByName(ctx, m.Name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.result.Created++
		return s.markTypes.Save(ctx, &models.MarkType{Name: m.Name, Description: m.Description})
	case err != nil:
		return fmt.Errorf("查询标记类型 %s 失败: %w", m.Name, err)
	}

	existing.Description = m.Description
	s.result.Updated++
	return s.markTypes.Save(ctx, existing)
}
