package linkage

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Store is the storage collaborator a clean pass runs against. Implementations
// must be safe for concurrent use when block workers are enabled; each InTx call
// runs on its own connection.
type Store interface {
	// ListDistinctStates returns every state value present among restaurants.
	ListDistinctStates(ctx context.Context) ([]string, error)
	// BlockRows returns, in ascending id order, the restaurants of state that are
	// dirty or already a primary in the link table.
	BlockRows(ctx context.Context, state string) ([]models.Restaurant, error)
	// AllDirtyRows returns every dirty restaurant in ascending id order.
	AllDirtyRows(ctx context.Context) ([]models.Restaurant, error)
	// InsertCanonicalRestaurant inserts r and returns its generated id from the same statement.
	InsertCanonicalRestaurant(ctx context.Context, r *models.Restaurant) (int64, error)
	// InsertLink records (primaryID, originalID). It reports false when the pair already existed.
	InsertLink(ctx context.Context, primaryID, originalID int64) (bool, error)
	// MarkClean sets clean=true on ids.
	MarkClean(ctx context.Context, ids []int64) error
	// PropagateInspectionForeignKeys points every inspection at the root primary
	// of its restaurant and returns the number of rewritten inspections.
	PropagateInspectionForeignKeys(ctx context.Context) (int64, error)
	// ReassertPrimariesClean sets clean=true on every restaurant that is a primary.
	ReassertPrimariesClean(ctx context.Context) (int64, error)
	// InTx runs fn in one transaction, committed only when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
