package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

// InteractionsAdapter reads ground truth from an interactions table with
// user_id, item_id and relevance columns. Each user is one evaluation case.
type InteractionsAdapter struct {
	client       *postgres.Client
	db           *goqu.Database
	table        string
	minRelevance int64
}

// NewInteractionsAdapter creates a new interactions adapter.
func NewInteractionsAdapter(client *postgres.Client, table string, minRelevance int64) *InteractionsAdapter {
	return &InteractionsAdapter{
		client:       client,
		db:           goqu.New("postgres", client.DB()),
		table:        table,
		minRelevance: minRelevance,
	}
}

// GroundTruth returns the relevant items of every user, in item id order.
func (a *InteractionsAdapter) GroundTruth(ctx context.Context) (map[string][]string, error) {
	ctx, span := observability.StartSpan(ctx, "InteractionsAdapter.GroundTruth")
	defer span.End()

	query, args, err := a.db.From(a.table).
		Select("user_id", "item_id").
		Where(goqu.C("relevance").Gte(a.minRelevance)).
		Order(goqu.C("user_id").Asc(), goqu.C("item_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build ground truth query", err)
	}

	start := time.Now()
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("failed to query ground truth", err)
	}
	defer rows.Close()

	truth := make(map[string][]string)
	for rows.Next() {
		var userID, itemID string
		if err := rows.Scan(&userID, &itemID); err != nil {
			return nil, apperrors.NewInternalError("failed to scan interaction", err)
		}
		truth[userID] = append(truth[userID], itemID)
	}
	if err := rows.Err(); err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("failed to read interactions", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("table", a.table).
		Int("users", len(truth)).
		Dur("elapsed", time.Since(start)).
		Msg("loaded ground truth")
	return truth, nil
}
