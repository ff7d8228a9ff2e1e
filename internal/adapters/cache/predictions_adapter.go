package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/zatekoja/recommendation-metrics/internal/infrastructure/clients/redis"
	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

// PredictionsAdapter reads served recommendations from Redis. The list for a
// case is stored under keyPrefix+id, best item first.
type PredictionsAdapter struct {
	client    *redisclient.Client
	keyPrefix string
}

// NewPredictionsAdapter creates a new Redis predictions adapter
func NewPredictionsAdapter(client *redisclient.Client, keyPrefix string) *PredictionsAdapter {
	return &PredictionsAdapter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Key returns the Redis key holding the recommendations for id
func (a *PredictionsAdapter) Key(id string) string {
	return a.keyPrefix + id
}

// Predictions fetches the first limit items of every list in one pipeline.
// A limit of zero or less fetches whole lists. Ids without a list are omitted.
func (a *PredictionsAdapter) Predictions(ctx context.Context, ids []string, limit int) (map[string][]string, error) {
	ctx, span := observability.StartSpan(ctx, "PredictionsAdapter.Predictions")
	defer span.End()

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	pipe := a.client.Client().Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(ids))
	for _, id := range ids {
		cmds[id] = pipe.LRange(ctx, a.Key(id), 0, stop)
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			observability.RecordError(span, err)
			return nil, apperrors.NewExternalError("failed to read predictions", err)
		}
	}

	preds := make(map[string][]string, len(cmds))
	missing := 0
	for id, cmd := range cmds {
		items, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return nil, apperrors.NewExternalError("failed to read predictions for "+id, err)
		}
		if len(items) == 0 {
			missing++
			continue
		}
		preds[id] = items
	}

	observability.LoggerFromContext(ctx).Debug().
		Int("requested", len(ids)).
		Int("missing", missing).
		Msg("loaded predictions")
	return preds, nil
}
