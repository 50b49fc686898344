package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "ri_restaurants"

var columns = []string{"id", "name", "facility_type", "address", "city", "state", "zip", "location", "clean"}

// Repository handles restaurant persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new restaurant repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// primaries selects the ids that appear as a primary in the link table.
func primaries() *sqlbuilder.SelectBuilder {
	sub := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sub.Select("primary_rest_id").From("ri_linked")
	return sub
}

// Get retrieves a restaurant by ID
func (r *Repository) Get(ctx context.Context, id int64) (*models.Restaurant, error) {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var restaurant models.Restaurant
	if err := database.Conn(ctx, r.db).GetContext(ctx, &restaurant, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("restaurant %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get restaurant")
		return nil, database.WrapQueryError(query, err)
	}

	return &restaurant, nil
}

// ListDistinctStates returns every state present among restaurants
func (r *Repository) ListDistinctStates(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.ListDistinctStates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("state").Distinct()
	sb.From(table)
	sb.OrderBy("state")

	query, args := sb.Build()
	var states []string
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &states, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list restaurant states")
		return nil, database.WrapQueryError(query, err)
	}

	return states, nil
}

// ListBlockRows returns the restaurants of a state that are dirty or already a
// primary, ordered by id
func (r *Repository) ListBlockRows(ctx context.Context, state string) ([]models.Restaurant, error) {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.ListBlockRows")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("state", state),
		sb.Or(
			sb.Equal("clean", false),
			sb.In("id", primaries()),
		),
	)
	sb.OrderBy("id")

	return r.list(ctx, sb, "Failed to list block rows")
}

// ListDirty returns every dirty restaurant ordered by id
func (r *Repository) ListDirty(ctx context.Context) ([]models.Restaurant, error) {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.ListDirty")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("clean", false))
	sb.OrderBy("id")

	return r.list(ctx, sb, "Failed to list dirty restaurants")
}

// ListOriginals returns the restaurants folded into primaryID, ordered by id
func (r *Repository) ListOriginals(ctx context.Context, primaryID int64) ([]models.Restaurant, error) {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.ListOriginals")
	defer span.End()

	sub := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sub.Select("original_rest_id").From("ri_linked")
	sub.Where(sub.Equal("primary_rest_id", primaryID))

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.In("id", sub),
		sb.NotEqual("id", primaryID),
	)
	sb.OrderBy("id")

	return r.list(ctx, sb, "Failed to list linked restaurants")
}

func (r *Repository) list(ctx context.Context, sb *sqlbuilder.SelectBuilder, failure string) ([]models.Restaurant, error) {
	query, args := sb.Build()
	restaurants := []models.Restaurant{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &restaurants, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error(failure)
		return nil, database.WrapQueryError(query, err)
	}
	return restaurants, nil
}

// InsertCanonical inserts a synthesized restaurant and returns the id the
// database generated for it
func (r *Repository) InsertCanonical(ctx context.Context, restaurant *models.Restaurant) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.InsertCanonical")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto(table).
		Cols("name", "facility_type", "address", "city", "state", "zip", "location", "clean").
		Values(restaurant.Name, restaurant.FacilityType, restaurant.Address, restaurant.City,
			restaurant.State, restaurant.Zip, restaurant.Location, restaurant.Clean).
		Returning("id")

	query, args := ib.Build()
	var id int64
	if err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", restaurant.Name).Error("Failed to insert canonical restaurant")
		return 0, database.WrapQueryError(query, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":   id,
		"name": restaurant.Name,
	}).Debug("Inserted canonical restaurant")
	return id, nil
}

// MarkClean sets clean=true on ids
func (r *Repository) MarkClean(ctx context.Context, ids []int64) error {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.MarkClean")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("clean", true))
	ub.Where(ub.In("id", database.Int64s(ids)...))

	query, args := ub.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("ids", ids).Error("Failed to mark restaurants clean")
		return database.WrapQueryError(query, err)
	}

	return nil
}

// ReassertPrimariesClean sets clean=true on every dirty primary and returns how
// many rows changed
func (r *Repository) ReassertPrimariesClean(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "restaurant.Repository.ReassertPrimariesClean")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("clean", true))
	ub.Where(
		ub.Equal("clean", false),
		ub.In("id", primaries()),
	)

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassert primaries clean")
		return 0, database.WrapQueryError(query, err)
	}

	return result.RowsAffected()
}
