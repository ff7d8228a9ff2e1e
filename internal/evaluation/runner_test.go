package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/observability"
	"github.com/zatekoja/recommendation-metrics/internal/metrics"
	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

const floatTolerance = 1e-9

type staticSource struct {
	cases []Case
	err   error
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Load(context.Context) ([]Case, error) {
	return s.cases, s.err
}

func TestRunner_Run(t *testing.T) {
	src := staticSource{cases: []Case{
		{ID: "u1", Actual: []string{"1", "2", "3"}, Predicted: []string{"3", "1", "2"}},
		{ID: "u2", Actual: []string{"1", "2", "3"}, Predicted: []string{"4", "5", "1"}},
	}}
	m, err := observability.InitMetrics()
	require.NoError(t, err)

	report, err := NewRunner(src, Options{K: 3, StrictBatch: true, Workers: 2}, m).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "static", report.Source)
	assert.Equal(t, 3, report.K)
	assert.Equal(t, 2, report.TotalCases)
	assert.Equal(t, 2, report.RecallCases)
	assert.Empty(t, report.Skipped)

	assert.InDelta(t, (1.0+1.0/9.0)/2, report.MAPK, floatTolerance)
	assert.InDelta(t, (1.0+1.0/3.0)/2, report.GlobalPrecision, floatTolerance)
	require.NotNil(t, report.GlobalRecall)
	assert.InDelta(t, (1.0+1.0/3.0)/2, *report.GlobalRecall, floatTolerance)

	require.Len(t, report.Cases, 2)
	assert.InDelta(t, 1.0/9.0, report.Cases[1].APK, floatTolerance)
	require.NotNil(t, report.Cases[1].Recall)
	assert.InDelta(t, 1.0/3.0, *report.Cases[1].Recall, floatTolerance)
}

func TestRunner_EmptyGroundTruthExcludedFromRecall(t *testing.T) {
	src := staticSource{cases: []Case{
		{ID: "u1", Actual: []string{"a"}, Predicted: []string{"a"}},
		{ID: "cold", Actual: []string{}, Predicted: []string{"b"}},
	}}

	report, err := NewRunner(src, Options{K: metrics.DefaultK}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.K)
	assert.Equal(t, []string{"cold"}, report.Skipped)
	assert.Equal(t, 1, report.RecallCases)
	assert.Nil(t, report.Cases[1].Recall)
	// apk of the cold case is defined as 0
	assert.InDelta(t, 0.5, report.MAPK, floatTolerance)
	require.NotNil(t, report.GlobalRecall)
	assert.InDelta(t, 1.0, *report.GlobalRecall, floatTolerance)
}

func TestRunner_NoRecallCases(t *testing.T) {
	src := staticSource{cases: []Case{{ID: "cold", Predicted: []string{"b"}}}}

	report, err := NewRunner(src, Options{K: 1}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.GlobalRecall)
	assert.Equal(t, 0.0, report.MAPK)
}

func TestRunner_EmptySource(t *testing.T) {
	_, err := NewRunner(staticSource{}, Options{K: metrics.DefaultK}, nil).Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrEmptyBatch)
}

func TestRunner_SourceError(t *testing.T) {
	_, err := NewRunner(staticSource{err: errors.New("boom")}, Options{K: metrics.DefaultK}, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunner_InvalidCutoff(t *testing.T) {
	src := staticSource{cases: []Case{{ID: "u1", Actual: []string{"a"}, Predicted: []string{"a"}}}}

	for _, k := range []int{0, -1} {
		report, err := NewRunner(src, Options{K: k}, nil).Run(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrInvalidCutoff, "k=%d", k)
		assert.Nil(t, report)
	}
}

func TestRunner_MissingPredictions(t *testing.T) {
	src := staticSource{cases: []Case{
		{ID: "u1", Actual: []string{"a", "b"}, Predicted: []string{"a", "x"}},
		{ID: "u2", Actual: []string{"c"}},
		{ID: "u3", Actual: []string{"d"}, Predicted: []string{}},
	}}

	t.Run("strict rejects the run", func(t *testing.T) {
		report, err := NewRunner(src, Options{K: 2, StrictBatch: true}, nil).Run(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrMismatchedBatchLength)
		assert.ErrorContains(t, err, "u2")
		assert.Nil(t, report)
	})

	t.Run("lenient drops the case", func(t *testing.T) {
		report, err := NewRunner(src, Options{K: 2}, nil).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, report.TotalCases)
		assert.Equal(t, []string{"u2"}, report.Unmatched)
		require.Len(t, report.Cases, 2)
		assert.Equal(t, "u1", report.Cases[0].ID)
		// an empty list is scored, not dropped
		assert.Equal(t, "u3", report.Cases[1].ID)
		assert.InDelta(t, 0.25, report.MAPK, floatTolerance)
		assert.InDelta(t, 0.25, report.GlobalPrecision, floatTolerance)
		require.NotNil(t, report.GlobalRecall)
		assert.InDelta(t, 0.25, *report.GlobalRecall, floatTolerance)
	})
}

func TestRunner_NoCaseHasPredictions(t *testing.T) {
	src := staticSource{cases: []Case{{ID: "u1", Actual: []string{"a"}}}}

	_, err := NewRunner(src, Options{K: 1}, nil).Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrEmptyBatch)
}
