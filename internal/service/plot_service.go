package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"plantdiag/internal/models"
	"plantdiag/internal/repository"

	"github.com/sirupsen/logrus"
)

// 批量归属的单项结果
const (
	AssignStatusAssigned   = "assigned"
	AssignStatusUnassigned = "unassigned"
	AssignStatusNotFound   = "not_found"
	AssignStatusNotInPlot  = "not_in_plot"
)

// DetailedPlotQuery 地块统计查询，LabelIDs 决定 MatchingDiagnosis 的统计口径
type DetailedPlotQuery struct {
	CompanyID *uint
	Name      string
	LabelIDs  []uint
	Page      int
	Limit     int
}

// DetailedPlot 地块及其诊断统计
type DetailedPlot struct {
	ID                uint
	Name              string
	Description       *string
	CreatedAt         time.Time
	TotalDiagnosis    int64
	LastDiagnosis     *time.Time
	MatchingDiagnosis int64
}

// DetailedPlotPage 地块统计分页结果
type DetailedPlotPage struct {
	Total int64
	Page  int
	Limit int
	Items []DetailedPlot
}

// AssignmentStatus 单个诊断的归属结果
type AssignmentStatus struct {
	PredictionID uint
	Status       string
}

// AssignedPlot 批量归属结果，PredictionIDs 为实际处理成功的诊断
type AssignedPlot struct {
	PlotID        uint
	PredictionIDs []uint
	Results       []AssignmentStatus
}

// CreatePlotInput 创建地块参数
type CreatePlotInput struct {
	CompanyID   uint
	Name        string
	Description *string
}

// PlotService 地块管理与统计
type PlotService struct {
	plots       PlotStore
	assignments PlotAssignments
	logger      logrus.FieldLogger
}

// NewPlotService 创建地块服务
func NewPlotService(plots PlotStore, assignments PlotAssignments, logger logrus.FieldLogger) *PlotService {
	return &PlotService{plots: plots, assignments: assignments, logger: logger}
}

// CreatePlot 创建地块
func (s *PlotService) CreatePlot(ctx context.Context, in CreatePlotInput) (*models.Plot, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("地块名称不能为空")
	}
	if in.CompanyID == 0 {
		return nil, invalidInput("company_id 不能为空")
	}

	plot := &models.Plot{CompanyID: in.CompanyID, Name: name, Description: in.Description}
	if err := s.plots.Create(ctx, plot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return plot, nil
}

// DeletePlot 删除地块并清空其下诊断的地块
func (s *PlotService) DeletePlot(ctx context.Context, id uint) error {
	if err := s.plots.Delete(ctx, id); err != nil {
		return lookupErr(err, "地块", id)
	}
	s.logger.WithField("plot_id", id).Info("地块已删除")
	return nil
}

// ListDetailed 分页获取地块及其诊断统计，按创建时间倒序
func (s *PlotService) ListDetailed(ctx context.Context, q DetailedPlotQuery) (*DetailedPlotPage, error) {
	page, limit, offset := normalizePage(q.Page, q.Limit)

	plots, total, err := s.plots.List(ctx, repository.PlotFilter{CompanyID: q.CompanyID, Name: q.Name}, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("获取地块失败: %w", err)
	}

	ids := make([]uint, 0, len(plots))
	for _, p := range plots {
		ids = append(ids, p.ID)
	}
	rows, err := s.assignments.ListPlotStatRows(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("统计地块诊断失败: %w", err)
	}

	matchLabel := make(map[uint]bool, len(q.LabelIDs))
	for _, id := range q.LabelIDs {
		matchLabel[id] = true
	}

	stats := make(map[uint]*DetailedPlot, len(plots))
	items := make([]DetailedPlot, len(plots))
	for i, p := range plots {
		items[i] = DetailedPlot{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			CreatedAt:   p.CreatedAt,
		}
		stats[p.ID] = &items[i]
	}

	for _, r := range rows {
		item, ok := stats[r.PlotID]
		if !ok {
			continue
		}
		item.TotalDiagnosis++
		if len(matchLabel) == 0 || matchLabel[r.LabelID] {
			item.MatchingDiagnosis++
		}
		if item.LastDiagnosis == nil || r.CreatedAt.After(*item.LastDiagnosis) {
			t := r.CreatedAt
			item.LastDiagnosis = &t
		}
	}

	return &DetailedPlotPage{Total: total, Page: page, Limit: limit, Items: items}, nil
}

// Assign 将诊断归属到地块，已属于其他地块的诊断会被改到该地块
// 不存在的诊断单独报告，不影响其余诊断
func (s *PlotService) Assign(ctx context.Context, plotID uint, predictionIDs []uint) (*AssignedPlot, error) {
	if _, err := s.plots.GetByID(ctx, plotID); err != nil {
		return nil, lookupErr(err, "地块", plotID)
	}

	ids := uniqueIDs(predictionIDs)
	owners, err := s.assignments.GetPlotOwnership(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("获取诊断失败: %w", err)
	}
	existing := make(map[uint]bool, len(owners))
	for _, o := range owners {
		existing[o.ID] = true
	}

	result := &AssignedPlot{PlotID: plotID, PredictionIDs: make([]uint, 0, len(ids))}
	for _, id := range ids {
		if existing[id] {
			result.PredictionIDs = append(result.PredictionIDs, id)
			result.Results = append(result.Results, AssignmentStatus{PredictionID: id, Status: AssignStatusAssigned})
		} else {
			result.Results = append(result.Results, AssignmentStatus{PredictionID: id, Status: AssignStatusNotFound})
		}
	}

	if err := s.assignments.SetPlot(ctx, result.PredictionIDs, &plotID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.WithFields(logrus.Fields{
		"plot_id":  plotID,
		"assigned": len(result.PredictionIDs),
		"missing":  len(ids) - len(result.PredictionIDs),
	}).Info("诊断已归属到地块")
	return result, nil
}

// Unassign 清空诊断的地块，仅处理当前属于该地块的诊断
func (s *PlotService) Unassign(ctx context.Context, plotID uint, predictionIDs []uint) (*AssignedPlot, error) {
	if _, err := s.plots.GetByID(ctx, plotID); err != nil {
		return nil, lookupErr(err, "地块", plotID)
	}

	ids := uniqueIDs(predictionIDs)
	owners, err := s.assignments.GetPlotOwnership(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("获取诊断失败: %w", err)
	}
	current := make(map[uint]*uint, len(owners))
	for _, o := range owners {
		current[o.ID] = o.PlotID
	}

	result := &AssignedPlot{PlotID: plotID, PredictionIDs: make([]uint, 0, len(ids))}
	for _, id := range ids {
		owner, ok := current[id]
		switch {
		case !ok:
			result.Results = append(result.Results, AssignmentStatus{PredictionID: id, Status: AssignStatusNotFound})
		case owner == nil || *owner != plotID:
			result.Results = append(result.Results, AssignmentStatus{PredictionID: id, Status: AssignStatusNotInPlot})
		default:
			result.PredictionIDs = append(result.PredictionIDs, id)
			result.Results = append(result.Results, AssignmentStatus{PredictionID: id, Status: AssignStatusUnassigned})
		}
	}

	if _, err := s.assignments.ClearPlot(ctx, result.PredictionIDs, plotID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return result, nil
}

// uniqueIDs 去重并保持顺序
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
