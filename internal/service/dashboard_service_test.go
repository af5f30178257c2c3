package service

import (
	"context"
	"testing"
	"time"

	"plantdiag/internal/models"
	"plantdiag/internal/repository"
	"plantdiag/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type dashboardFixture struct {
	db      *gorm.DB
	service *DashboardService
	alice   models.User
	bob     models.User
	carol   models.User
	plotA   models.Plot
	plotB   models.Plot
	labels  []models.Label
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	db := testutil.NewDB(t)
	predictions := repository.NewPredictionRepository(db)
	f := &dashboardFixture{
		db: db,
		service: NewDashboardService(
			predictions,
			repository.NewLabelRepository(db),
			repository.NewUserRepository(db),
			repository.NewPlotRepository(db),
		),
	}
	f.alice = testutil.SeedUser(t, db, "alice", 1)
	f.bob = testutil.SeedUser(t, db, "bob", 1)
	f.carol = testutil.SeedUser(t, db, "carol", 2)
	f.plotA = testutil.SeedPlot(t, db, "north", 1, time.Now())
	f.plotB = testutil.SeedPlot(t, db, "south", 1, time.Now())
	f.labels = testutil.SeedLabels(t, db)
	return f
}

func (f *dashboardFixture) seed(t *testing.T, user models.User, plot *models.Plot, label models.Label, severity float32, at time.Time) {
	t.Helper()
	p := models.Prediction{
		UserID:    user.ID,
		ImageID:   1,
		LabelID:   label.ID,
		Severity:  severity,
		CreatedAt: at,
	}
	if plot != nil {
		p.PlotID = &plot.ID
	}
	testutil.SeedPrediction(t, f.db, p)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func TestDashboardService_Summary_Empty(t *testing.T) {
	f := newDashboardFixture(t)

	summary, err := f.service.Summary(context.Background(), repository.PredictionFilter{}, true)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Plots)
	assert.Zero(t, summary.MeanSeverity)
	assert.NotNil(t, summary.Distribution)
	assert.Empty(t, summary.Distribution)
}

func TestDashboardService_Summary_Aggregates(t *testing.T) {
	f := newDashboardFixture(t)
	healthy, moderate, severe := f.labels[0], f.labels[1], f.labels[2]

	f.seed(t, f.alice, &f.plotA, healthy, 0.25, day(2024, 3, 2))
	f.seed(t, f.alice, &f.plotA, moderate, 0.5, day(2024, 3, 20))
	f.seed(t, f.bob, &f.plotB, severe, 0.75, day(2024, 1, 5))
	f.seed(t, f.bob, nil, healthy, 0.25, day(2024, 3, 21))
	f.seed(t, f.carol, nil, severe, 1.0, day(2024, 2, 1))

	summary, err := f.service.Summary(context.Background(), repository.PredictionFilter{}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.Total)
	assert.Equal(t, int64(2), summary.Plots)
	assert.InDelta(t, 0.55, summary.MeanSeverity, 1e-6)
	assert.Nil(t, summary.Distribution)

	companyID := uint(1)
	summary, err = f.service.Summary(context.Background(), repository.PredictionFilter{CompanyID: &companyID}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Total)
	assert.InDelta(t, 0.4375, summary.MeanSeverity, 1e-6)

	require.Len(t, summary.Distribution, 2)
	assert.Equal(t, "2024-01", summary.Distribution[0].Month)
	require.Len(t, summary.Distribution[0].Labels, 1)
	assert.Equal(t, severe.ID, summary.Distribution[0].Labels[0].Label.ID)

	march := summary.Distribution[1]
	assert.Equal(t, "2024-03", march.Month)
	require.Len(t, march.Labels, 2)
	assert.Equal(t, "healthy", march.Labels[0].Label.Name)
	assert.Equal(t, int64(2), march.Labels[0].Count)
	assert.Equal(t, "moderate", march.Labels[1].Label.Name)
	assert.Equal(t, int64(1), march.Labels[1].Count)
}

func TestDashboardService_Summary_Filters(t *testing.T) {
	f := newDashboardFixture(t)
	healthy, moderate, severe := f.labels[0], f.labels[1], f.labels[2]

	f.seed(t, f.alice, &f.plotA, healthy, 0.1, day(2024, 3, 2))
	f.seed(t, f.alice, &f.plotB, moderate, 0.4, day(2024, 4, 2))
	f.seed(t, f.bob, &f.plotB, severe, 0.9, day(2024, 5, 2))
	f.seed(t, f.carol, nil, severe, 0.8, day(2024, 5, 3))

	tests := []struct {
		name   string
		filter repository.PredictionFilter
		total  int64
	}{
		{"users_any_of", repository.PredictionFilter{UserIDs: []uint{f.alice.ID, f.carol.ID}}, 3},
		{"plots_any_of", repository.PredictionFilter{PlotIDs: []uint{f.plotB.ID}}, 2},
		{"labels_any_of", repository.PredictionFilter{LabelIDs: []uint{healthy.ID, severe.ID}}, 3},
		{"date_range", repository.PredictionFilter{MinDate: testutil.Ptr(day(2024, 4, 1)), MaxDate: testutil.Ptr(day(2024, 5, 2))}, 2},
		{"conjunctive", repository.PredictionFilter{UserIDs: []uint{f.alice.ID}, LabelIDs: []uint{severe.ID}}, 0},
		{"company_and_label", repository.PredictionFilter{CompanyID: testutil.Ptr(uint(2)), LabelIDs: []uint{severe.ID}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := f.service.Summary(context.Background(), tt.filter, true)
			require.NoError(t, err)
			assert.Equal(t, tt.total, summary.Total)

			var counted int64
			for _, d := range summary.Distribution {
				for _, l := range d.Labels {
					counted += l.Count
				}
			}
			assert.Equal(t, tt.total, counted)
		})
	}
}

func TestDashboardService_Filters(t *testing.T) {
	f := newDashboardFixture(t)

	companyID := uint(1)
	filters, err := f.service.Filters(context.Background(), &companyID)
	require.NoError(t, err)
	assert.Len(t, filters.Users, 2)
	assert.Len(t, filters.Plots, 2)
	assert.Len(t, filters.Labels, 3)

	filters, err = f.service.Filters(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, filters.Users, 3)
}
