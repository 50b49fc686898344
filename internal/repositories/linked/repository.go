package linked

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "ri_linked"

// Repository handles the primary/original link table
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new link repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert records that originalID was folded into primaryID. It reports false
// when the pair already existed.
func (r *Repository) Insert(ctx context.Context, primaryID, originalID int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "linked.Repository.Insert")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto(table).
		Cols("primary_rest_id", "original_rest_id").
		Values(primaryID, originalID).
		OnConflictDoNothing()

	query, args := ib.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"primary_rest_id":  primaryID,
			"original_rest_id": originalID,
		}).Error("Failed to insert link")
		return false, database.WrapQueryError(query, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, database.WrapQueryError(query, err)
	}
	return affected > 0, nil
}

// PrimaryOf returns the newest primary originalID was folded into. ok is false
// when originalID is not an original.
func (r *Repository) PrimaryOf(ctx context.Context, originalID int64) (int64, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "linked.Repository.PrimaryOf")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("primary_rest_id")
	sb.From(table)
	sb.Where(
		sb.Equal("original_rest_id", originalID),
		sb.NotEqual("primary_rest_id", originalID),
	)
	sb.OrderBy("primary_rest_id").Desc()
	sb.Limit(1)

	query, args := sb.Build()
	var primaryID int64
	if err := database.Conn(ctx, r.db).GetContext(ctx, &primaryID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("original_rest_id", originalID).Error("Failed to resolve primary")
		return 0, false, database.WrapQueryError(query, err)
	}

	return primaryID, true, nil
}
