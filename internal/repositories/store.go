// Package repositories holds the Postgres repositories of the ri_* tables and
// the Store the linkage core runs against.
package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/inspection"
	"github.com/Ramsey-B/clover/internal/repositories/linked"
	"github.com/Ramsey-B/clover/internal/repositories/restaurant"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/models"
)

var (
	_ linkage.Store      = (*Store)(nil)
	_ linkage.ViewReader = (*Store)(nil)
)

// Store runs linkage against Postgres. Every InTx call begins its own
// transaction, so concurrent block workers each hold a separate pooled
// connection.
type Store struct {
	db          database.DB
	Restaurants *restaurant.Repository
	Inspections *inspection.Repository
	Links       *linked.Repository
}

// NewStore creates a Store over db.
func NewStore(db database.DB, logger ectologger.Logger) *Store {
	return &Store{
		db:          db,
		Restaurants: restaurant.NewRepository(db, logger),
		Inspections: inspection.NewRepository(db, logger),
		Links:       linked.NewRepository(db, logger),
	}
}

func (s *Store) ListDistinctStates(ctx context.Context) ([]string, error) {
	return s.Restaurants.ListDistinctStates(ctx)
}

func (s *Store) BlockRows(ctx context.Context, state string) ([]models.Restaurant, error) {
	return s.Restaurants.ListBlockRows(ctx, state)
}

func (s *Store) AllDirtyRows(ctx context.Context) ([]models.Restaurant, error) {
	return s.Restaurants.ListDirty(ctx)
}

func (s *Store) InsertCanonicalRestaurant(ctx context.Context, r *models.Restaurant) (int64, error) {
	return s.Restaurants.InsertCanonical(ctx, r)
}

func (s *Store) InsertLink(ctx context.Context, primaryID, originalID int64) (bool, error) {
	return s.Links.Insert(ctx, primaryID, originalID)
}

func (s *Store) MarkClean(ctx context.Context, ids []int64) error {
	return s.Restaurants.MarkClean(ctx, ids)
}

func (s *Store) PropagateInspectionForeignKeys(ctx context.Context) (int64, error) {
	return s.Inspections.PropagateToPrimaries(ctx)
}

func (s *Store) ReassertPrimariesClean(ctx context.Context) (int64, error) {
	return s.Restaurants.ReassertPrimariesClean(ctx)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, s.db, fn)
}

func (s *Store) RestaurantByInspection(ctx context.Context, inspectionID int64) (models.Restaurant, error) {
	insp, err := s.Inspections.Get(ctx, inspectionID)
	if err != nil {
		return models.Restaurant{}, err
	}
	return s.Restaurant(ctx, insp.RestaurantID)
}

func (s *Store) Restaurant(ctx context.Context, id int64) (models.Restaurant, error) {
	r, err := s.Restaurants.Get(ctx, id)
	if err != nil {
		return models.Restaurant{}, err
	}
	return *r, nil
}

func (s *Store) PrimaryOf(ctx context.Context, id int64) (int64, bool, error) {
	return s.Links.PrimaryOf(ctx, id)
}

func (s *Store) Originals(ctx context.Context, primaryID int64) ([]models.Restaurant, error) {
	return s.Restaurants.ListOriginals(ctx, primaryID)
}

// RestaurantDetail returns a restaurant with the inspections that reference it.
func (s *Store) RestaurantDetail(ctx context.Context, id int64) (*models.RestaurantDetail, error) {
	r, err := s.Restaurants.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inspections, err := s.Inspections.ListByRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.RestaurantDetail{Restaurant: *r, Inspections: inspections}, nil
}
