package service

import (
	"context"
	"math"
	"testing"

	"plantdiag/internal/repository"
	"plantdiag/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedLabels(t, db)
	testutil.SeedRecommendations(t, db)
	svc := NewCatalogService(repository.NewLabelRepository(db), repository.NewRecommendationRepository(db))
	ctx := context.Background()

	labels, err := svc.Labels(ctx)
	require.NoError(t, err)
	assert.Len(t, labels, 3)

	label, err := svc.LabelByName(ctx, "moderate")
	require.NoError(t, err)
	assert.Equal(t, float32(0.3), label.Min)
	_, err = svc.LabelByName(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	matched, err := svc.LabelsForSeverity(ctx, 0.3)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "healthy", matched[0].Name)

	recs, err := svc.RecommendationsForSeverity(ctx, 0.45)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, "treatment", recs[0].Category.Name)

	all, err := svc.Recommendations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	for _, bad := range []float32{-0.1, 1.1, float32(math.NaN())} {
		_, err = svc.RecommendationsForSeverity(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.LabelsForSeverity(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}
