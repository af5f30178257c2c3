package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plantdiag/internal/classifier"
	"plantdiag/internal/events"
	"plantdiag/internal/metrics"
	"plantdiag/internal/models"
	"plantdiag/internal/repository"
	"plantdiag/internal/storage"
	"plantdiag/pkg/inference"

	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const pipelineComponent = "prediction_pipeline"

// CreatePredictionInput 创建诊断的输入，Image 为空时从存储读取图片
type CreatePredictionInput struct {
	UserID  uint
	ImageID uint
	LabelID *uint
	PlotID  *uint
	Image   []byte
}

// PredictionOutcome 诊断结果及其标签、建议与标记
type PredictionOutcome struct {
	Prediction      *models.Prediction
	Label           *models.Label
	Recommendations []models.Recommendation
	Marks           []models.PredictionMark
}

// PredictionPage 诊断分页结果
type PredictionPage struct {
	Total int64
	Page  int
	Limit int
	Items []models.Prediction
}

// PredictionServiceOptions 诊断服务配置
type PredictionServiceOptions struct {
	Retry          RetryPolicy
	MarkTypeTTL    time.Duration
	PersistTimeout time.Duration
	PublishTimeout time.Duration
}

// PredictionService 诊断服务，负责诊断流水线及诊断的查询与维护
type PredictionService struct {
	detector        inference.DiseaseDetector
	predictions     PredictionStore
	marks           MarkStore
	markTypeStore   MarkTypeStore
	labels          LabelStore
	recommendations RecommendationStore
	plots           PlotStore
	images          ImageStore
	files           storage.FileStorage
	publisher       events.Publisher
	reporter        ErrorReporter
	metrics         PipelineMetrics
	logger          logrus.FieldLogger
	opts            PredictionServiceOptions

	// 标记类型名称到ID的缓存
	markTypes *cache.Cache
}

// PredictionServiceDeps 诊断服务依赖
type PredictionServiceDeps struct {
	Detector        inference.DiseaseDetector
	Predictions     PredictionStore
	Marks           MarkStore
	MarkTypes       MarkTypeStore
	Labels          LabelStore
	Recommendations RecommendationStore
	Plots           PlotStore
	Images          ImageStore
	Files           storage.FileStorage
	Publisher       events.Publisher
	Reporter        ErrorReporter
	Metrics         PipelineMetrics
	Logger          logrus.FieldLogger
}

// NewPredictionService 创建诊断服务
func NewPredictionService(deps PredictionServiceDeps, opts PredictionServiceOptions) *PredictionService {
	if opts.MarkTypeTTL <= 0 {
		opts.MarkTypeTTL = 10 * time.Minute
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 30 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = (*metrics.PipelineMetrics)(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	return &PredictionService{
		detector:        deps.Detector,
		predictions:     deps.Predictions,
		marks:           deps.Marks,
		markTypeStore:   deps.MarkTypes,
		labels:          deps.Labels,
		recommendations: deps.Recommendations,
		plots:           deps.Plots,
		images:          deps.Images,
		files:           deps.Files,
		publisher:       deps.Publisher,
		reporter:        deps.Reporter,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		opts:            opts,
		markTypes:       cache.New(opts.MarkTypeTTL, 2*opts.MarkTypeTTL),
	}
}

// pipelineRun 一次流水线运行的状态
type pipelineRun struct {
	stage      Stage
	stageStart time.Time
	budget     *retryBudget
	log        logrus.FieldLogger
}

func (s *PredictionService) enter(run *pipelineRun, next Stage) {
	now := time.Now()
	if !run.stageStart.IsZero() {
		s.metrics.ObserveStage(string(run.stage), now.Sub(run.stageStart))
	}
	run.log.WithFields(logrus.Fields{"from": run.stage, "to": next}).Debug("流水线阶段切换")
	run.stage = next
	run.stageStart = now
}

func (s *PredictionService) fail(run *pipelineRun, err error) error {
	stage := run.stage
	s.metrics.ObserveStage(string(stage), time.Since(run.stageStart))
	s.metrics.RecordRun(metrics.OutcomeFailed, string(stage))

	entry := run.log.WithFields(logrus.Fields{"stage": stage, "error": err})
	switch {
	case errors.Is(err, classifier.ErrNoMatchingLabel):
		entry.Error("严重程度没有匹配的标签，请检查标签区间配置")
		s.report(err, stage)
	case errors.Is(err, ErrPersistence):
		entry.Error("诊断写入失败")
		s.report(err, stage)
	default:
		entry.Warn("诊断失败")
	}

	run.stage = StageFailed
	return &PipelineError{Stage: stage, Err: err}
}

func (s *PredictionService) report(err error, stage Stage) {
	if s.reporter == nil {
		return
	}
	s.reporter.CaptureError(err, pipelineComponent, map[string]string{"stage": string(stage)})
}

// Create 执行诊断流水线：推理、分类、持久化
// 持久化开始后不再响应调用方的取消
func (s *PredictionService) Create(ctx context.Context, in CreatePredictionInput) (*PredictionOutcome, error) {
	run := &pipelineRun{
		budget: newRetryBudget(s.opts.Retry.MaxRetries),
		log: s.logger.WithFields(logrus.Fields{
			"user_id":  in.UserID,
			"image_id": in.ImageID,
		}),
	}
	s.enter(run, StageReceived)

	if in.UserID == 0 || in.ImageID == 0 {
		return nil, s.fail(run, invalidInput("user_id 与 image_id 不能为空"))
	}

	image, err := s.images.GetByID(ctx, in.ImageID)
	if err != nil {
		return nil, s.fail(run, lookupErr(err, "图片", in.ImageID))
	}
	if in.PlotID != nil {
		if _, err := s.plots.GetByID(ctx, *in.PlotID); err != nil {
			return nil, s.fail(run, lookupErr(err, "地块", *in.PlotID))
		}
	}

	data := in.Image
	if len(data) == 0 {
		data, err = s.fetchImage(ctx, run, image.Path)
		if err != nil {
			return nil, s.fail(run, err)
		}
	}

	s.enter(run, StageInferring)
	result, err := s.infer(ctx, run, data)
	if err != nil {
		return nil, s.fail(run, err)
	}

	s.enter(run, StageClassifying)
	labels, err := s.labels.GetAll(ctx)
	if err != nil {
		return nil, s.fail(run, fmt.Errorf("获取标签失败: %w", err))
	}
	var label *models.Label
	if in.LabelID != nil {
		label, err = findLabel(labels, *in.LabelID)
	} else {
		label, err = classifier.ClassifyLabel(result.Severity, labels)
	}
	if err != nil {
		return nil, s.fail(run, err)
	}

	recs, err := s.recommendations.GetAll(ctx)
	if err != nil {
		return nil, s.fail(run, fmt.Errorf("获取建议失败: %w", err))
	}
	matched := classifier.MatchRecommendations(result.Severity, recs)

	// 持久化之前的取消不产生任何写入
	if err := ctx.Err(); err != nil {
		return nil, s.fail(run, err)
	}

	s.enter(run, StagePersisting)
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()

	prediction, marks, err := s.persist(persistCtx, in, label, result)
	if err != nil {
		return nil, s.fail(run, err)
	}

	s.enter(run, StageCompleted)
	s.metrics.RecordRun(metrics.OutcomeCompleted, string(StageCompleted))
	s.metrics.ObserveSeverity(result.Severity)
	run.log.WithFields(logrus.Fields{
		"prediction_id": prediction.ID,
		"label":         label.Name,
		"severity":      result.Severity,
	}).Info("诊断完成")

	s.publishCreated(context.WithoutCancel(ctx), prediction, label, matched)

	return &PredictionOutcome{
		Prediction:      prediction,
		Label:           label,
		Recommendations: matched,
		Marks:           marks,
	}, nil
}

// fetchImage 从存储读取图片，失败时按共享预算重试
func (s *PredictionService) fetchImage(ctx context.Context, run *pipelineRun, path string) ([]byte, error) {
	if s.files == nil {
		return nil, invalidInput("未提供图片内容")
	}

	var data []byte
	op := func() error {
		var err error
		data, err = s.files.Download(ctx, path)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrNotFound, err))
		}
		return err
	}

	b := backoff.WithContext(s.opts.Retry.newBackOff(run.budget), ctx)
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		run.log.WithFields(logrus.Fields{"error": err, "wait": wait}).Warn("读取图片失败，准备重试")
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("读取图片失败: %w", err)
	}
	return data, nil
}

// infer 调用推理服务，仅对 Unavailable 按共享预算重试
func (s *PredictionService) infer(ctx context.Context, run *pipelineRun, data []byte) (*inference.PredictionResult, error) {
	var result *inference.PredictionResult
	op := func() error {
		res, err := s.detector.Predict(ctx, data)
		if err != nil {
			if inference.IsRetryable(err) {
				s.metrics.RecordInferenceAttempt("unavailable")
				return err
			}
			s.metrics.RecordInferenceAttempt("invalid_response")
			return backoff.Permanent(err)
		}
		s.metrics.RecordInferenceAttempt("ok")
		result = res
		return nil
	}

	b := backoff.WithContext(s.opts.Retry.newBackOff(run.budget), ctx)
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		run.log.WithFields(logrus.Fields{
			"error":     err,
			"wait":      wait,
			"remaining": run.budget.Remaining(),
		}).Warn("推理服务不可用，准备重试")
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persist 在同一事务中写入诊断与标记
func (s *PredictionService) persist(ctx context.Context, in CreatePredictionInput, label *models.Label, result *inference.PredictionResult) (*models.Prediction, []models.PredictionMark, error) {
	leafTypeID, err := s.markTypeID(ctx, models.MarkTypeLeafMask)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	lesionTypeID, err := s.markTypeID(ctx, models.MarkTypeLesionMask)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	prediction := &models.Prediction{
		UserID:             in.UserID,
		ImageID:            in.ImageID,
		LabelID:            label.ID,
		PlotID:             in.PlotID,
		PresenceConfidence: result.Presence,
		AbsenceConfidence:  result.Absence,
		Severity:           result.Severity,
	}
	marks := []models.PredictionMark{
		{Data: result.LeafMask, MarkTypeID: leafTypeID},
		{Data: result.LesionMask, MarkTypeID: lesionTypeID},
	}

	if err := s.predictions.CreateWithMarks(ctx, prediction, marks); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	prediction.Label = *label
	prediction.Marks = marks
	return prediction, marks, nil
}

// markTypeID 获取标记类型ID，首次使用时创建
func (s *PredictionService) markTypeID(ctx context.Context, name string) (uint, error) {
	if v, ok := s.markTypes.Get(name); ok {
		return v.(uint), nil
	}
	markType, err := s.markTypeStore.GetOrCreate(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("获取标记类型 %s 失败: %w", name, err)
	}
	s.markTypes.Set(name, markType.ID, cache.DefaultExpiration)
	return markType.ID, nil
}

func (s *PredictionService) publishCreated(ctx context.Context, prediction *models.Prediction, label *models.Label, recs []models.Recommendation) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	defer cancel()

	recIDs := make([]uint, 0, len(recs))
	for _, r := range recs {
		recIDs = append(recIDs, r.ID)
	}

	err := s.publisher.PublishPredictionCreated(ctx, events.PredictionCreated{
		PredictionID:      prediction.ID,
		UserID:            prediction.UserID,
		ImageID:           prediction.ImageID,
		PlotID:            prediction.PlotID,
		LabelID:           label.ID,
		LabelName:         label.Name,
		Severity:          prediction.Severity,
		Presence:          prediction.PresenceConfidence,
		Absence:           prediction.AbsenceConfidence,
		RecommendationIDs: recIDs,
		CreatedAt:         prediction.CreatedAt,
	})
	if err != nil {
		s.metrics.RecordEventFailure()
		s.logger.WithFields(logrus.Fields{
			"prediction_id": prediction.ID,
			"error":         err,
		}).Warn("发布诊断事件失败")
	}
}

func findLabel(labels []models.Label, id uint) (*models.Label, error) {
	for i := range labels {
		if labels[i].ID == id {
			label := labels[i]
			return &label, nil
		}
	}
	return nil, notFound("标签", id)
}

// Get 获取诊断及其建议与标记
func (s *PredictionService) Get(ctx context.Context, id uint) (*PredictionOutcome, error) {
	prediction, err := s.predictions.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "诊断", id)
	}

	recs, err := s.recommendations.GetBySeverity(ctx, prediction.Severity)
	if err != nil {
		return nil, fmt.Errorf("获取建议失败: %w", err)
	}
	marks, err := s.marks.GetByPredictionID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("获取诊断标记失败: %w", err)
	}

	label := prediction.Label
	return &PredictionOutcome{
		Prediction:      prediction,
		Label:           &label,
		Recommendations: recs,
		Marks:           marks,
	}, nil
}

// List 按条件分页获取诊断，按创建时间倒序
func (s *PredictionService) List(ctx context.Context, filter repository.PredictionFilter, page, limit int) (*PredictionPage, error) {
	page, limit, offset := normalizePage(page, limit)
	items, total, err := s.predictions.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("获取诊断列表失败: %w", err)
	}
	return &PredictionPage{Total: total, Page: page, Limit: limit, Items: items}, nil
}

// Marks 获取诊断的全部标记
func (s *PredictionService) Marks(ctx context.Context, predictionID uint) ([]models.PredictionMark, error) {
	if _, err := s.predictions.GetByID(ctx, predictionID); err != nil {
		return nil, lookupErr(err, "诊断", predictionID)
	}
	marks, err := s.marks.GetByPredictionID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("获取诊断标记失败: %w", err)
	}
	return marks, nil
}

// Mark 获取诊断的单个标记
func (s *PredictionService) Mark(ctx context.Context, predictionID, markID uint) (*models.PredictionMark, error) {
	mark, err := s.marks.GetByID(ctx, markID)
	if err != nil {
		return nil, lookupErr(err, "标记", markID)
	}
	if mark.PredictionID != predictionID {
		return nil, notFound("标记", markID)
	}
	return mark, nil
}

// MarksForPredictions 批量获取多个诊断的标记，按诊断ID分组
func (s *PredictionService) MarksForPredictions(ctx context.Context, predictionIDs []uint) (map[uint][]models.PredictionMark, error) {
	marks, err := s.marks.GetByPredictionsIDs(ctx, predictionIDs)
	if err != nil {
		return nil, fmt.Errorf("获取诊断标记失败: %w", err)
	}
	grouped := make(map[uint][]models.PredictionMark, len(predictionIDs))
	for _, m := range marks {
		grouped[m.PredictionID] = append(grouped[m.PredictionID], m)
	}
	return grouped, nil
}

// Reclassify 按当前标签配置重新分类诊断
func (s *PredictionService) Reclassify(ctx context.Context, id uint) (*PredictionOutcome, error) {
	prediction, err := s.predictions.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "诊断", id)
	}

	labels, err := s.labels.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取标签失败: %w", err)
	}
	label, err := classifier.ClassifyLabel(prediction.Severity, labels)
	if err != nil {
		s.report(err, StageClassifying)
		return nil, err
	}

	if label.ID != prediction.LabelID {
		if err := s.predictions.UpdateLabel(ctx, id, label.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.logger.WithFields(logrus.Fields{
			"prediction_id": id,
			"from":          prediction.LabelID,
			"to":            label.ID,
		}).Info("诊断已重新分类")
		prediction.LabelID = label.ID
	}
	prediction.Label = *label

	recs, err := s.recommendations.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取建议失败: %w", err)
	}

	return &PredictionOutcome{
		Prediction:      prediction,
		Label:           label,
		Recommendations: classifier.MatchRecommendations(prediction.Severity, recs),
	}, nil
}

// Delete 删除诊断及其全部标记
func (s *PredictionService) Delete(ctx context.Context, id uint) error {
	if err := s.predictions.Delete(ctx, id); err != nil {
		return lookupErr(err, "诊断", id)
	}
	return nil
}
