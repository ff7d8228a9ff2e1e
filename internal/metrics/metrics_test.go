package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

const floatTolerance = 1e-9

// --- Precision tests ---

func TestPrecision_SampleInvocation(t *testing.T) {
	got, err := Precision([]int{1, 2, 3}, []int{1, 2}, 5)
	require.NoError(t, err)
	// Denominator stays k even though only 2 items were predicted
	assert.InDelta(t, 0.4, got, floatTolerance)
}

func TestPrecision_PerfectWhenPredictedEqualsActual(t *testing.T) {
	actual := []string{"a", "b", "c", "d", "e"}
	got, err := Precision(actual, actual, len(actual))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, floatTolerance)
}

func TestPrecision_OnlyTopKCounted(t *testing.T) {
	actual := []string{"a", "b", "c"}
	predicted := []string{"x", "a", "y", "b", "c"}
	got, err := Precision(actual, predicted, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, floatTolerance)
}

func TestPrecision_DuplicatesCollapse(t *testing.T) {
	actual := []int{1, 1, 2}
	predicted := []int{1, 1, 1}
	got, err := Precision(actual, predicted, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, got, floatTolerance)
}

func TestPrecision_EmptyInputs(t *testing.T) {
	got, err := Precision([]int{}, []int{}, DefaultK)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestPrecision_InvalidCutoff(t *testing.T) {
	for _, k := range []int{0, -1} {
		_, err := Precision([]int{1}, []int{1}, k)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCutoff, "k=%d", k)
	}
}

// --- Recall tests ---

func TestRecall_Scenario(t *testing.T) {
	got, err := Recall([]int{1, 2, 3}, []int{1, 2}, 5)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, got, floatTolerance)
}

func TestRecall_AllRelevantInTopK(t *testing.T) {
	actual := []string{"a", "b", "c"}
	predicted := []string{"c", "x", "a", "b", "y"}
	got, err := Recall(actual, predicted, 4)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, floatTolerance)
}

func TestRecall_DenominatorIsDistinctActual(t *testing.T) {
	actual := []string{"a", "a", "b"}
	predicted := []string{"a"}
	got, err := Recall(actual, predicted, DefaultK)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, floatTolerance)
}

func TestRecall_KSmallerThanPredicted(t *testing.T) {
	actual := []string{"a", "b", "c"}
	// "c" sits at rank 5, outside k=3
	predicted := []string{"a", "b", "x", "y", "c"}
	got, err := Recall(actual, predicted, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, got, floatTolerance)
}

func TestRecall_EmptyGroundTruth(t *testing.T) {
	_, err := Recall([]string{}, []string{"a"}, DefaultK)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyGroundTruth))
}

func TestRecall_InvalidCutoff(t *testing.T) {
	_, err := Recall([]string{"a"}, []string{"a"}, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCutoff)
}

// --- APK tests ---

func TestAPK_Table(t *testing.T) {
	tests := []struct {
		name      string
		actual    []int
		predicted []int
		k         int
		want      float64
	}{
		{"all hits reordered", []int{1, 2, 3}, []int{3, 1, 2}, 3, 1.0},
		{"single hit at rank 3", []int{1, 2, 3}, []int{4, 5, 1}, 3, (1.0 / 3.0) / 3.0},
		{"duplicate hit counted once", []int{1}, []int{1, 1}, 2, 1.0},
		{"no hits", []int{1, 2}, []int{3, 4, 5}, 3, 0.0},
		{"hit beyond cutoff ignored", []int{1}, []int{2, 3, 1}, 2, 0.0},
		{"divides by k when actual is larger", []int{1, 2, 3, 4}, []int{1, 2}, 2, 1.0},
		{"interleaved hits", []int{1, 2}, []int{1, 9, 2}, 3, (1.0 + 2.0/3.0) / 2.0},
		{"empty predicted", []int{1, 2}, []int{}, 5, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := APK(tt.actual, tt.predicted, tt.k)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, floatTolerance)
		})
	}
}

func TestAPK_EmptyActualIsZero(t *testing.T) {
	for _, k := range []int{0, 1, DefaultK} {
		got, err := APK([]string{}, []string{"a", "b"}, k)
		require.NoError(t, err, "k=%d", k)
		assert.Equal(t, 0.0, got)
	}
}

func TestAPK_InvalidCutoff(t *testing.T) {
	_, err := APK([]int{1}, []int{1}, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCutoff)
}

func TestAPK_NonIncreasingAsHitMovesLater(t *testing.T) {
	actual := []int{7}
	prev := math.Inf(1)
	for pos := 0; pos < 5; pos++ {
		predicted := []int{100, 101, 102, 103, 104}
		predicted[pos] = 7
		got, err := APK(actual, predicted, 5)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, prev, "position %d", pos)
		prev = got
	}
}

func TestAPK_DoesNotMutateInputs(t *testing.T) {
	actual := []int{3, 1, 2}
	predicted := []int{2, 2, 9, 1}
	_, err := APK(actual, predicted, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, actual)
	assert.Equal(t, []int{2, 2, 9, 1}, predicted)
}
