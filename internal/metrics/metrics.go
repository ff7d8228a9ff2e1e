package metrics

import (
	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

// DefaultK is the cutoff used when the caller has no preference.
const DefaultK = 5

// Precision computes Precision@K: the number of distinct relevant items among the
// first k predictions, divided by k. The denominator stays k even when fewer than
// k items were predicted.
func Precision[T comparable](actual, predicted []T, k int) (float64, error) {
	if k <= 0 {
		return 0, apperrors.NewInvalidCutoffError(k)
	}
	return float64(overlap(toSet(actual), topK(predicted, k))) / float64(k), nil
}

// Recall computes Recall@K: the fraction of distinct relevant items found among
// the first k predictions. An empty ground truth is an error.
func Recall[T comparable](actual, predicted []T, k int) (float64, error) {
	if k <= 0 {
		return 0, apperrors.NewInvalidCutoffError(k)
	}
	relevant := toSet(actual)
	if len(relevant) == 0 {
		return 0, apperrors.NewEmptyGroundTruthError("recall is undefined without relevant items")
	}
	return float64(overlap(relevant, topK(predicted, k))) / float64(len(relevant)), nil
}

// APK computes average precision at k. Each relevant item is credited once, at
// its first position in the ranking; repeated predictions of an item already
// credited add nothing. Returns 0.0 when actual is empty.
func APK[T comparable](actual, predicted []T, k int) (float64, error) {
	if len(actual) == 0 {
		return 0.0, nil
	}
	if k <= 0 {
		return 0, apperrors.NewInvalidCutoffError(k)
	}

	relevant := toSet(actual)
	ranked := topK(predicted, k)
	seen := make(map[T]struct{}, len(ranked))

	hits := 0
	score := 0.0
	for i, p := range ranked {
		_, isRelevant := relevant[p]
		_, dup := seen[p]
		seen[p] = struct{}{}
		if !isRelevant || dup {
			continue
		}
		hits++
		score += float64(hits) / float64(i+1)
	}

	return score / float64(min(len(actual), k)), nil
}

func topK[T comparable](predicted []T, k int) []T {
	if k < len(predicted) {
		return predicted[:k]
	}
	return predicted
}

func toSet[T comparable](items []T) map[T]struct{} {
	set := make(map[T]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// overlap counts the distinct items of ranked that are present in relevant.
func overlap[T comparable](relevant map[T]struct{}, ranked []T) int {
	counted := make(map[T]struct{}, len(ranked))
	for _, p := range ranked {
		if _, ok := relevant[p]; ok {
			counted[p] = struct{}{}
		}
	}
	return len(counted)
}
