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

const applicationTableName = "goserveph.permit_applications"

var applicationColumns = utils.StructTagValues(types.Application{})

type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

func (r *ApplicationRepository) Application(ctx context.Context, id string) (*types.Application, error) {

	query, args, err := psql().Select(applicationColumns...).From(applicationTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application query: %w", err)
	}

	var app = new(types.Application)
	err = pgxscan.Get(ctx, r.pool, app, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrApplicationNotFound
	}

	return app, nil

}

// Applications returns a permit type's applications in submission order.
func (r *ApplicationRepository) Applications(ctx context.Context, pt types.PermitType, q types.ApplicationQuery) ([]*types.Application, error) {

	builder := psql().Select(applicationColumns...).From(applicationTableName).
		Where(sq.Eq{"permit_type": pt}).
		OrderBy("seq ASC")

	if q.Status != "" {
		builder = builder.Where(sq.Eq{"status": q.Status})
	}

	if q.ApplicationType != "" {
		builder = builder.Where(sq.Expr("LOWER(application_type) = LOWER(?)", q.ApplicationType))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate applications query: %w", err)
	}

	var apps = make([]*types.Application, 0)
	err = pgxscan.Select(ctx, r.pool, &apps, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to list applications")
	}

	return apps, nil
}

func (r *ApplicationRepository) CreateApplication(ctx context.Context, app *types.Application) error {

	now := time.Now()
	prepareNew(app)
	app.ID = utils.ReferenceID(app.PermitType.Prefix())
	app.SubmittedAt = now
	app.LastUpdated = now

	query, args, err := psql().Insert(applicationTableName).SetMap(utils.StructToMap(app)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert application query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create application")

}

// UpdateApplication writes the review fields of an existing application.
// Submitted content and identity are never rewritten.
func (r *ApplicationRepository) UpdateApplication(ctx context.Context, app *types.Application) error {

	query, args, err := psql().Update(applicationTableName).
		Set("status", app.Status).
		Set("assigned_officer", nullable(app.AssignedOfficer)).
		Set("review_comments", nullable(app.ReviewComments)).
		Set("last_updated", app.LastUpdated).
		Where(sq.Eq{"id": app.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update application query for %s: %w", app.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return utils.ErrorWrapOrNil(err, "failed to update application")
	}

	if tag.RowsAffected() == 0 {
		return types.ErrApplicationNotFound
	}

	return nil

}
