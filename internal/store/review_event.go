package store

import (
	"context"
	"fmt"
	"time"

	"goserveph/internal/utils"
	"goserveph/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewEventsTableName = "goserveph.review_events"

var reviewEventColumns = utils.StructTagValues(types.ReviewEvent{})

type ReviewEventRepository struct {
	pool *pgxpool.Pool
}

func NewReviewEventRepository(pool *pgxpool.Pool) *ReviewEventRepository {
	return &ReviewEventRepository{pool: pool}
}

// RecordEvent appends to the staff action log. Events are never updated.
func (r *ReviewEventRepository) RecordEvent(ctx context.Context, event *types.ReviewEvent) error {
	event.ID = utils.NanoID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query, args, err := psql().
		Insert(reviewEventsTableName).
		SetMap(utils.StructToMap(event)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert review event query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record review event")
}

func (r *ReviewEventRepository) EventsByApplication(ctx context.Context, applicationID string) ([]*types.ReviewEvent, error) {
	query, args, err := psql().
		Select(reviewEventColumns...).
		From(reviewEventsTableName).
		Where(sq.Eq{"application_id": applicationID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate review events query: %w", err)
	}

	var events = make([]*types.ReviewEvent, 0)
	err = pgxscan.Select(ctx, r.pool, &events, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to get review events")
	}

	return events, nil
}
