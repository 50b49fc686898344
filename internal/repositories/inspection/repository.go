package inspection

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

const table = "ri_inspections"

var columns = []string{"id", "risk", "inspection_date", "inspection_type", "results", "violations", "restaurant_id"}

// maxLinkDepth bounds the link chain walk so a cycle cannot recurse forever.
const maxLinkDepth = 64

// propagateQuery points every inspection at the root primary of its restaurant.
// When an original has been linked more than once the newest primary wins.
var propagateQuery = fmt.Sprintf(`
WITH RECURSIVE latest AS (
	SELECT DISTINCT ON (original_rest_id) original_rest_id, primary_rest_id
	FROM ri_linked
	WHERE original_rest_id <> primary_rest_id
	ORDER BY original_rest_id, primary_rest_id DESC
), chain AS (
	SELECT original_rest_id AS origin, primary_rest_id AS target, 1 AS depth
	FROM latest
	UNION ALL
	SELECT chain.origin, latest.primary_rest_id, chain.depth + 1
	FROM chain
	JOIN latest ON latest.original_rest_id = chain.target
	WHERE chain.depth < %d
), roots AS (
	SELECT DISTINCT ON (origin) origin, target
	FROM chain
	ORDER BY origin, depth DESC
)
UPDATE %s AS i
SET restaurant_id = roots.target
FROM roots
WHERE i.restaurant_id = roots.origin
  AND roots.target <> roots.origin`, maxLinkDepth, table)

// Repository handles inspection persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new inspection repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an inspection by ID
func (r *Repository) Get(ctx context.Context, id int64) (*models.Inspection, error) {
	ctx, span := tracing.StartSpan(ctx, "inspection.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var inspection models.Inspection
	if err := database.Conn(ctx, r.db).GetContext(ctx, &inspection, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("inspection %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get inspection")
		return nil, database.WrapQueryError(query, err)
	}

	return &inspection, nil
}

// ListByRestaurant retrieves the inspections referencing a restaurant, newest first
func (r *Repository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]models.Inspection, error) {
	ctx, span := tracing.StartSpan(ctx, "inspection.Repository.ListByRestaurant")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("restaurant_id", restaurantID))
	sb.OrderBy("inspection_date DESC", "id")

	query, args := sb.Build()
	inspections := []models.Inspection{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &inspections, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("restaurant_id", restaurantID).Error("Failed to list inspections")
		return nil, database.WrapQueryError(query, err)
	}

	return inspections, nil
}

// PropagateToPrimaries rewrites inspection foreign keys from originals to their
// root primary in one statement and returns the number of rewritten rows
func (r *Repository) PropagateToPrimaries(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "inspection.Repository.PropagateToPrimaries")
	defer span.End()

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, propagateQuery)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to propagate inspection foreign keys")
		return 0, database.WrapQueryError(propagateQuery, err)
	}

	return result.RowsAffected()
}
