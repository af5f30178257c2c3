// Package classifier 将严重程度分数映射为标签与防治建议
//
// 区间均为闭区间 [min, max]。标签区间允许重叠，重叠时按以下顺序选出唯一标签：
// Min 最小者优先，其次 Weight 最大者，最后 ID 最小者。
// 建议区间同样允许重叠，返回所有包含该分数的建议。
package classifier

import (
	"errors"
	"fmt"
	"math"

	"plantdiag/internal/models"
)

// ErrNoMatchingLabel 没有任何标签区间包含该严重程度，说明标签配置存在缺口
var ErrNoMatchingLabel = errors.New("没有匹配的标签")

// ClassifyLabel 为严重程度选出标签
func ClassifyLabel(severity float32, labels []models.Label) (*models.Label, error) {
	var best *models.Label
	if !isNaN(severity) {
		for i := range labels {
			if !labels[i].Contains(severity) {
				continue
			}
			if best == nil || preferred(&labels[i], best) {
				best = &labels[i]
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: severity=%v, 标签数=%d", ErrNoMatchingLabel, severity, len(labels))
	}

	label := *best
	return &label, nil
}

// preferred 判断 a 是否比 b 更适合作为主标签
func preferred(a, b *models.Label) bool {
	if a.Min != b.Min {
		return a.Min < b.Min
	}
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.ID < b.ID
}

// MatchRecommendations 返回所有区间包含该严重程度的建议，保持输入顺序，结果可以为空
func MatchRecommendations(severity float32, recommendations []models.Recommendation) []models.Recommendation {
	matched := make([]models.Recommendation, 0)
	if isNaN(severity) {
		return matched
	}
	for _, rec := range recommendations {
		if rec.Contains(severity) {
			matched = append(matched, rec)
		}
	}
	return matched
}

func isNaN(v float32) bool {
	return math.IsNaN(float64(v))
}
