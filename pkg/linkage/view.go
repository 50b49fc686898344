package linkage

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ViewReader is the read side needed to resolve a linked view.
type ViewReader interface {
	// RestaurantByInspection returns the restaurant an inspection references,
	// or a not-found error.
	RestaurantByInspection(ctx context.Context, inspectionID int64) (models.Restaurant, error)
	// Restaurant returns one restaurant, or a not-found error.
	Restaurant(ctx context.Context, id int64) (models.Restaurant, error)
	// PrimaryOf returns the primary an original was folded into. ok is false
	// when id is not an original.
	PrimaryOf(ctx context.Context, id int64) (primaryID int64, ok bool, err error)
	// Originals returns the restaurants folded into primaryID, ordered by id.
	Originals(ctx context.Context, primaryID int64) ([]models.Restaurant, error)
}

// ResolveLinkedView returns the root primary of the restaurant an inspection
// references, together with every original folded into that primary. Dirty and
// unlinked restaurants resolve to themselves with no linked rows.
func ResolveLinkedView(ctx context.Context, reader ViewReader, inspectionID int64) (*models.LinkedView, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.ResolveLinkedView")
	defer span.End()

	restaurant, err := reader.RestaurantByInspection(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if !restaurant.Clean {
		return &models.LinkedView{Primary: restaurant, Linked: []models.Restaurant{}}, nil
	}

	primary := restaurant
	seen := map[int64]bool{restaurant.ID: true}
	for {
		next, ok, err := reader.PrimaryOf(ctx, primary.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if seen[next] {
			return nil, fmt.Errorf("link cycle at restaurant %d", next)
		}
		seen[next] = true
		if primary, err = reader.Restaurant(ctx, next); err != nil {
			return nil, err
		}
	}

	linked, err := reader.Originals(ctx, primary.ID)
	if err != nil {
		return nil, err
	}
	if linked == nil {
		linked = []models.Restaurant{}
	}
	return &models.LinkedView{Primary: primary, Linked: linked}, nil
}
