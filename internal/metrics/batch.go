package metrics

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

type batchConfig struct {
	allowMismatch bool
	workers       int
}

// BatchOption configures how MAPK, GlobalPrecision and GlobalRecall pair and score lists.
type BatchOption func(*batchConfig)

// AllowMismatchedLength pairs the batches zip-style: only the common prefix is
// scored when the two batches differ in length. Without it a length mismatch is an error.
func AllowMismatchedLength() BatchOption {
	return func(c *batchConfig) {
		c.allowMismatch = true
	}
}

// WithWorkers scores pairs on n goroutines. Values below 2 keep scoring sequential.
// The result does not depend on n.
func WithWorkers(n int) BatchOption {
	return func(c *batchConfig) {
		c.workers = n
	}
}

// MAPK computes mean average precision at k over positionally paired lists.
func MAPK[T comparable](actual, predicted [][]T, k int, opts ...BatchOption) (float64, error) {
	return meanOver(actual, predicted, k, APK[T], opts)
}

// GlobalPrecision is the mean of Precision over positionally paired lists.
func GlobalPrecision[T comparable](actual, predicted [][]T, k int, opts ...BatchOption) (float64, error) {
	return meanOver(actual, predicted, k, Precision[T], opts)
}

// GlobalRecall is the mean of Recall over positionally paired lists. Any pair
// with an empty ground truth fails the whole batch.
func GlobalRecall[T comparable](actual, predicted [][]T, k int, opts ...BatchOption) (float64, error) {
	return meanOver(actual, predicted, k, Recall[T], opts)
}

type scoreFunc[T comparable] func(actual, predicted []T, k int) (float64, error)

func meanOver[T comparable](actual, predicted [][]T, k int, score scoreFunc[T], opts []BatchOption) (float64, error) {
	cfg := batchConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := len(actual)
	if len(predicted) != n {
		if !cfg.allowMismatch {
			return 0, apperrors.NewMismatchedBatchLengthError(len(actual), len(predicted))
		}
		n = min(n, len(predicted))
	}
	if n == 0 {
		return 0, apperrors.NewEmptyBatchError("mean is undefined over an empty batch")
	}

	scores := make([]float64, n)
	scoreAt := func(i int) error {
		s, err := score(actual[i], predicted[i], k)
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		scores[i] = s
		return nil
	}

	if cfg.workers < 2 || n == 1 {
		for i := 0; i < n; i++ {
			if err := scoreAt(i); err != nil {
				return 0, err
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(cfg.workers)
		for i := 0; i < n; i++ {
			g.Go(func() error { return scoreAt(i) })
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	// Reduced in index order so the concurrent path matches the sequential one.
	return stat.Mean(scores, nil), nil
}
