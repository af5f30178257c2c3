package service

import (
	"context"
	"time"

	"plantdiag/internal/models"
	"plantdiag/internal/repository"
)

// PredictionStore 诊断结果存储
type PredictionStore interface {
	CreateWithMarks(ctx context.Context, prediction *models.Prediction, marks []models.PredictionMark) error
	GetByID(ctx context.Context, id uint) (*models.Prediction, error)
	UpdateLabel(ctx context.Context, id uint, labelID uint) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter repository.PredictionFilter, offset, limit int) ([]models.Prediction, int64, error)
}

// PredictionStats 诊断统计查询
type PredictionStats interface {
	Summary(ctx context.Context, filter repository.PredictionFilter) (*repository.SummaryRow, error)
	SummaryWithLabelTimes(ctx context.Context, filter repository.PredictionFilter) (*repository.SummaryRow, []repository.LabelTimeRow, error)
}

// PlotAssignments 诊断与地块的归属
type PlotAssignments interface {
	GetPlotOwnership(ctx context.Context, ids []uint) ([]repository.PlotOwnership, error)
	SetPlot(ctx context.Context, ids []uint, plotID *uint) error
	ClearPlot(ctx context.Context, ids []uint, plotID uint) (int64, error)
	ListPlotStatRows(ctx context.Context, plotIDs []uint) ([]repository.PlotStatRow, error)
}

// MarkStore 诊断标记读取
type MarkStore interface {
	GetByID(ctx context.Context, id uint) (*models.PredictionMark, error)
	GetByPredictionID(ctx context.Context, predictionID uint) ([]models.PredictionMark, error)
	GetByPredictionsIDs(ctx context.Context, predictionIDs []uint) ([]models.PredictionMark, error)
}

// MarkTypeStore 标记类型
type MarkTypeStore interface {
	GetOrCreate(ctx context.Context, name string) (*models.MarkType, error)
}

// LabelStore 标签
type LabelStore interface {
	GetAll(ctx context.Context) ([]models.Label, error)
	GetByID(ctx context.Context, id uint) (*models.Label, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Label, error)
	GetByName(ctx context.Context, name string) (*models.Label, error)
	GetBySeverity(ctx context.Context, severity float32) ([]models.Label, error)
}

// RecommendationStore 建议
type RecommendationStore interface {
	GetAll(ctx context.Context) ([]models.Recommendation, error)
	GetBySeverity(ctx context.Context, severity float32) ([]models.Recommendation, error)
}

// PlotStore 地块
type PlotStore interface {
	Create(ctx context.Context, plot *models.Plot) error
	GetByID(ctx context.Context, id uint) (*models.Plot, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter repository.PlotFilter, offset, limit int) ([]models.Plot, int64, error)
	ListByCompany(ctx context.Context, companyID uint) ([]models.Plot, error)
	GetAll(ctx context.Context) ([]models.Plot, error)
}

// ImageStore 图片记录
type ImageStore interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, id uint) (*models.Image, error)
	Delete(ctx context.Context, id uint) error
}

// UserStore 用户
type UserStore interface {
	ListByCompany(ctx context.Context, companyID uint) ([]models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
}

// ErrorReporter 错误上报
type ErrorReporter interface {
	CaptureError(err error, component string, tags map[string]string)
}

// PipelineMetrics 流水线指标
type PipelineMetrics interface {
	RecordRun(outcome, stage string)
	ObserveStage(stage string, d time.Duration)
	RecordInferenceAttempt(status string)
	ObserveSeverity(severity float32)
	RecordEventFailure()
}
