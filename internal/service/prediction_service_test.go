package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"plantdiag/internal/classifier"
	"plantdiag/internal/models"
	"plantdiag/internal/repository"
	"plantdiag/internal/testutil"
	"plantdiag/pkg/inference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type pipelineFixture struct {
	env    *testEnv
	user   models.User
	image  models.Image
	labels []models.Label
	recs   []models.Recommendation
}

func newPipelineFixture(t *testing.T, maxRetries int, replies ...detectorReply) *pipelineFixture {
	t.Helper()
	env := newTestEnv(t, &fakeDetector{replies: replies}, maxRetries)
	f := &pipelineFixture{env: env}
	f.user = testutil.SeedUser(t, env.db, "alice", 1)
	f.image = testutil.SeedImage(t, env.db, f.user.ID, "images/leaf.jpg")
	f.labels = testutil.SeedLabels(t, env.db)
	f.recs = testutil.SeedRecommendations(t, env.db)
	env.files.objects["images/leaf.jpg"] = []byte("jpeg")
	return f
}

func (f *pipelineFixture) input() CreatePredictionInput {
	return CreatePredictionInput{UserID: f.user.ID, ImageID: f.image.ID, Image: []byte("jpeg")}
}

func TestPredictionService_Create_Completed(t *testing.T) {
	f := newPipelineFixture(t, 3, okResult(0.45))

	out, err := f.env.service.Create(context.Background(), f.input())
	require.NoError(t, err)

	assert.NotZero(t, out.Prediction.ID)
	assert.Equal(t, "moderate", out.Label.Name)
	assert.Equal(t, out.Label.ID, out.Prediction.LabelID)
	assert.InDelta(t, 0.45, out.Prediction.Severity, 1e-6)
	require.Len(t, out.Recommendations, 2)
	require.Len(t, out.Marks, 2)
	for _, m := range out.Marks {
		assert.Equal(t, out.Prediction.ID, m.PredictionID)
	}

	stored, err := f.env.predictions.GetByID(context.Background(), out.Prediction.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderate", stored.Label.Name)
	assert.Equal(t, int64(2), f.env.countRows(t, "prediction_marks"))
	assert.Equal(t, int64(2), f.env.countRows(t, "mark_types"))

	last := f.env.logs.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "诊断完成", last.Message)
}

func TestPredictionService_Create_BoundaryUsesLowestTier(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.3))

	out, err := f.env.service.Create(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, "healthy", out.Label.Name)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, f.recs[0].ID, out.Recommendations[0].ID)
}

func TestPredictionService_Create_ReusesMarkTypes(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.1))

	for i := 0; i < 3; i++ {
		_, err := f.env.service.Create(context.Background(), f.input())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), f.env.countRows(t, "predictions"))
	assert.Equal(t, int64(6), f.env.countRows(t, "prediction_marks"))
	assert.Equal(t, int64(2), f.env.countRows(t, "mark_types"))
}

func TestPredictionService_Create_LoadsImageFromStorage(t *testing.T) {
	f := newPipelineFixture(t, 1, okResult(0.7))
	in := f.input()
	in.Image = nil

	out, err := f.env.service.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "severe", out.Label.Name)
}

func TestPredictionService_Create_ImageMissingInStorage(t *testing.T) {
	f := newPipelineFixture(t, 3, okResult(0.7))
	delete(f.env.files.objects, "images/leaf.jpg")
	in := f.input()
	in.Image = nil

	_, err := f.env.service.Create(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageReceived, stage)
	assert.Equal(t, 0, f.env.detector.Calls())
}

func TestPredictionService_Create_UnavailableLeavesNoRows(t *testing.T) {
	f := newPipelineFixture(t, 2, unavailableReply())

	_, err := f.env.service.Create(context.Background(), f.input())
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrUnavailable)

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageInferring, stage)

	// 首次调用加两次重试
	assert.Equal(t, 3, f.env.detector.Calls())
	assert.Zero(t, f.env.countRows(t, "predictions"))
	assert.Zero(t, f.env.countRows(t, "prediction_marks"))
}

func TestPredictionService_Create_RetriesThenSucceeds(t *testing.T) {
	f := newPipelineFixture(t, 3, unavailableReply(), unavailableReply(), okResult(0.5))

	out, err := f.env.service.Create(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, "moderate", out.Label.Name)
	assert.Equal(t, 3, f.env.detector.Calls())
}

func TestPredictionService_Create_RetryBudgetShared(t *testing.T) {
	f := newPipelineFixture(t, 2, unavailableReply())
	f.env.files.failures = 1
	in := f.input()
	in.Image = nil

	_, err := f.env.service.Create(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrUnavailable)

	// 读取图片消耗一次重试，推理只剩一次
	assert.Equal(t, 2, f.env.detector.Calls())
}

func TestPredictionService_Create_InvalidResponseNotRetried(t *testing.T) {
	f := newPipelineFixture(t, 5, invalidReply())

	_, err := f.env.service.Create(context.Background(), f.input())
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrInvalidResponse)
	assert.False(t, errors.Is(err, inference.ErrUnavailable))
	assert.Equal(t, 1, f.env.detector.Calls())
	assert.Zero(t, f.env.countRows(t, "predictions"))
}

func TestPredictionService_Create_NoMatchingLabel(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.9))
	require.NoError(t, f.env.db.Where("name = ?", "severe").Delete(&models.Label{}).Error)

	_, err := f.env.service.Create(context.Background(), f.input())
	require.Error(t, err)
	assert.ErrorIs(t, err, classifier.ErrNoMatchingLabel)

	stage, _ := FailedStage(err)
	assert.Equal(t, StageClassifying, stage)
	assert.Equal(t, 1, f.env.reporter.Count())
	assert.Zero(t, f.env.countRows(t, "predictions"))
}

func TestPredictionService_Create_LabelsFetchedEachRun(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.9))
	require.NoError(t, f.env.db.Where("name = ?", "severe").Delete(&models.Label{}).Error)

	_, err := f.env.service.Create(context.Background(), f.input())
	require.ErrorIs(t, err, classifier.ErrNoMatchingLabel)

	require.NoError(t, f.env.db.Create(&models.Label{Name: "critical", Min: 0.8, Max: 1.0}).Error)
	out, err := f.env.service.Create(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, "critical", out.Label.Name)
}

func TestPredictionService_Create_ExplicitLabelOverrides(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.1))
	in := f.input()
	in.LabelID = &f.labels[2].ID

	out, err := f.env.service.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "severe", out.Label.Name)
	// 建议仍按严重程度匹配
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, f.recs[0].ID, out.Recommendations[0].ID)

	in.LabelID = testutil.Ptr(uint(999))
	_, err = f.env.service.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPredictionService_Create_ExplicitLabelSkipsClassification(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.9))
	require.NoError(t, f.env.db.Where("name = ?", "severe").Delete(&models.Label{}).Error)

	in := f.input()
	in.LabelID = &f.labels[0].ID
	out, err := f.env.service.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "healthy", out.Label.Name)
	assert.Equal(t, f.labels[0].ID, out.Prediction.LabelID)
	assert.Zero(t, f.env.reporter.Count())
}

func TestPredictionService_Create_NotFoundReferences(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.1))

	in := f.input()
	in.ImageID = 999
	_, err := f.env.service.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrNotFound)

	in = f.input()
	in.PlotID = testutil.Ptr(uint(999))
	_, err = f.env.service.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.env.service.Create(context.Background(), CreatePredictionInput{ImageID: f.image.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, f.env.detector.Calls())
}

func TestPredictionService_Create_PersistenceIsAtomic(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.2))
	err := f.env.db.Callback().Create().Before("gorm:create").Register("test:fail_marks", func(tx *gorm.DB) {
		if tx.Statement.Table == "prediction_marks" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, err = f.env.service.Create(context.Background(), f.input())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	stage, _ := FailedStage(err)
	assert.Equal(t, StagePersisting, stage)
	assert.Zero(t, f.env.countRows(t, "predictions"))
	assert.Zero(t, f.env.countRows(t, "prediction_marks"))
	assert.Equal(t, 1, f.env.reporter.Count())
}

func TestPredictionService_Create_CancelDuringInference(t *testing.T) {
	f := newPipelineFixture(t, 3, unavailableReply())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.env.detector.onCall = cancel

	_, err := f.env.service.Create(ctx, f.input())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.env.detector.Calls())
	assert.Zero(t, f.env.countRows(t, "predictions"))
}

func TestPredictionService_Create_CancelBeforePersisting(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.env.detector.onCall = cancel

	_, err := f.env.service.Create(ctx, f.input())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.env.countRows(t, "predictions"))
}

// cancelingStore 在写入前取消调用方的 context
type cancelingStore struct {
	*repository.PredictionRepository
	cancel context.CancelFunc
}

func (s *cancelingStore) CreateWithMarks(ctx context.Context, p *models.Prediction, marks []models.PredictionMark) error {
	s.cancel()
	return s.PredictionRepository.CreateWithMarks(ctx, p, marks)
}

func TestPredictionService_Create_CancelAfterPersistingStartedIgnored(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.env.service.predictions = &cancelingStore{PredictionRepository: f.env.predictions, cancel: cancel}

	out, err := f.env.service.Create(ctx, f.input())
	require.NoError(t, err)
	assert.NotZero(t, out.Prediction.ID)
	assert.Equal(t, int64(1), f.env.countRows(t, "predictions"))
	assert.Equal(t, int64(2), f.env.countRows(t, "prediction_marks"))
}

func TestPredictionService_GetMarksDelete(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.45))
	ctx := context.Background()

	out, err := f.env.service.Create(ctx, f.input())
	require.NoError(t, err)
	id := out.Prediction.ID

	got, err := f.env.service.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "moderate", got.Label.Name)
	assert.Len(t, got.Recommendations, 2)
	require.Len(t, got.Marks, 2)
	assert.Equal(t, models.MarkTypeLeafMask, got.Marks[0].MarkType.Name)

	marks, err := f.env.service.Marks(ctx, id)
	require.NoError(t, err)
	require.Len(t, marks, 2)

	mark, err := f.env.service.Mark(ctx, id, marks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("lesion"), mark.Data)
	_, err = f.env.service.Mark(ctx, id+1, marks[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	grouped, err := f.env.service.MarksForPredictions(ctx, []uint{id, 999})
	require.NoError(t, err)
	assert.Len(t, grouped[id], 2)
	assert.Empty(t, grouped[999])

	require.NoError(t, f.env.service.Delete(ctx, id))
	assert.Zero(t, f.env.countRows(t, "prediction_marks"))
	assert.ErrorIs(t, f.env.service.Delete(ctx, id), ErrNotFound)

	_, err = f.env.service.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.env.service.Marks(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPredictionService_Reclassify(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.45))
	ctx := context.Background()

	out, err := f.env.service.Create(ctx, f.input())
	require.NoError(t, err)
	require.Equal(t, "moderate", out.Label.Name)

	// 调整标签区间后重新分类
	require.NoError(t, f.env.db.Model(&models.Label{}).Where("name = ?", "severe").Update("min", 0.4).Error)
	require.NoError(t, f.env.db.Model(&models.Label{}).Where("name = ?", "moderate").Update("max", 0.4).Error)

	re, err := f.env.service.Reclassify(ctx, out.Prediction.ID)
	require.NoError(t, err)
	assert.Equal(t, "severe", re.Label.Name)

	stored, err := f.env.predictions.GetByID(ctx, out.Prediction.ID)
	require.NoError(t, err)
	assert.Equal(t, re.Label.ID, stored.LabelID)

	_, err = f.env.service.Reclassify(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPredictionService_List(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.45))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.env.service.Create(ctx, f.input())
		require.NoError(t, err)
	}

	page, err := f.env.service.List(ctx, repository.PredictionFilter{}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 2)

	page, err = f.env.service.List(ctx, repository.PredictionFilter{}, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = f.env.service.List(ctx, repository.PredictionFilter{LabelIDs: []uint{f.labels[0].ID}}, 1, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Equal(t, DefaultPageSize, page.Limit)
}

func TestPredictionService_List_HugePageStaysEmpty(t *testing.T) {
	f := newPipelineFixture(t, 0, okResult(0.45))
	ctx := context.Background()
	_, err := f.env.service.Create(ctx, f.input())
	require.NoError(t, err)

	page, err := f.env.service.List(ctx, repository.PredictionFilter{}, math.MaxInt, MaxPageSize)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, MaxPage, page.Page)
	assert.Empty(t, page.Items)
}
