package service

import (
	"context"
	"fmt"
	"sort"

	"plantdiag/internal/models"
	"plantdiag/internal/repository"

	"golang.org/x/sync/errgroup"
)

// monthLayout 分布统计的月份格式（UTC）
const monthLayout = "2006-01"

// DashboardLabelCount 某月某标签的诊断数
type DashboardLabelCount struct {
	Label models.Label
	Count int64
}

// DashboardDistribution 某月的标签分布
type DashboardDistribution struct {
	Month  string
	Labels []DashboardLabelCount
}

// DashboardSummary 仪表盘汇总
type DashboardSummary struct {
	Total        int64
	Plots        int64
	MeanSeverity float64
	Distribution []DashboardDistribution
}

// DashboardFilters 仪表盘可选的筛选项
type DashboardFilters struct {
	Users  []models.User
	Plots  []models.Plot
	Labels []models.Label
}

// DashboardService 仪表盘统计
type DashboardService struct {
	stats  PredictionStats
	labels LabelStore
	users  UserStore
	plots  PlotStore
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(stats PredictionStats, labels LabelStore, users UserStore, plots PlotStore) *DashboardService {
	return &DashboardService{stats: stats, labels: labels, users: users, plots: plots}
}

// Summary 统计符合条件的诊断，withDistribution 为 true 时附带按月标签分布
func (s *DashboardService) Summary(ctx context.Context, filter repository.PredictionFilter, withDistribution bool) (*DashboardSummary, error) {
	var (
		row  *repository.SummaryRow
		rows []repository.LabelTimeRow
		err  error
	)
	if withDistribution {
		row, rows, err = s.stats.SummaryWithLabelTimes(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("统计标签分布失败: %w", err)
		}
	} else {
		row, err = s.stats.Summary(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("统计诊断失败: %w", err)
		}
	}

	summary := &DashboardSummary{
		Total: row.Total,
		Plots: row.Plots,
	}
	if row.Total > 0 {
		summary.MeanSeverity = row.MeanSeverity
	}

	if withDistribution {
		distribution, err := s.distribution(ctx, rows)
		if err != nil {
			return nil, err
		}
		summary.Distribution = distribution
	}
	return summary, nil
}

// distribution 按月汇总标签数量，月份升序，无数据的月份不输出
func (s *DashboardService) distribution(ctx context.Context, rows []repository.LabelTimeRow) ([]DashboardDistribution, error) {
	distribution := make([]DashboardDistribution, 0)
	if len(rows) == 0 {
		return distribution, nil
	}

	counts := make(map[string]map[uint]int64)
	labelIDs := make([]uint, 0)
	seen := make(map[uint]bool)
	for _, r := range rows {
		month := r.CreatedAt.UTC().Format(monthLayout)
		if counts[month] == nil {
			counts[month] = make(map[uint]int64)
		}
		counts[month][r.LabelID]++
		if !seen[r.LabelID] {
			seen[r.LabelID] = true
			labelIDs = append(labelIDs, r.LabelID)
		}
	}

	labels, err := s.labels.GetByIDs(ctx, labelIDs)
	if err != nil {
		return nil, fmt.Errorf("获取标签失败: %w", err)
	}
	byID := make(map[uint]models.Label, len(labels))
	for _, l := range labels {
		byID[l.ID] = l
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	for _, m := range months {
		entry := DashboardDistribution{Month: m}
		for id, c := range counts[m] {
			label, ok := byID[id]
			if !ok {
				label = models.Label{ID: id}
			}
			entry.Labels = append(entry.Labels, DashboardLabelCount{Label: label, Count: c})
		}
		sort.Slice(entry.Labels, func(i, j int) bool {
			a, b := entry.Labels[i].Label, entry.Labels[j].Label
			if a.Min != b.Min {
				return a.Min < b.Min
			}
			return a.ID < b.ID
		})
		distribution = append(distribution, entry)
	}
	return distribution, nil
}

// Filters 获取仪表盘可选的用户、地块与标签，companyID 为空时返回全部
func (s *DashboardService) Filters(ctx context.Context, companyID *uint) (*DashboardFilters, error) {
	filters := &DashboardFilters{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if companyID != nil {
			filters.Users, err = s.users.ListByCompany(gctx, *companyID)
		} else {
			filters.Users, err = s.users.GetAll(gctx)
		}
		if err != nil {
			return fmt.Errorf("获取用户失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if companyID != nil {
			filters.Plots, err = s.plots.ListByCompany(gctx, *companyID)
		} else {
			filters.Plots, err = s.plots.GetAll(gctx)
		}
		if err != nil {
			return fmt.Errorf("获取地块失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		filters.Labels, err = s.labels.GetAll(gctx)
		if err != nil {
			return fmt.Errorf("获取标签失败: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}
