package linkage

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// memStore is an in-memory Store. Transactions are serialized and roll back by
// restoring a snapshot.
type memStore struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	nextID      int64
	restaurants map[int64]models.Restaurant
	links       map[models.Link]bool
	inspections map[int64]int64

	// fail, when set, is consulted before every write. A non-nil error fails the call.
	fail func(op string) error
	// canonicalID overrides the id returned by InsertCanonicalRestaurant.
	canonicalID *int64
	calls       map[string]int
}

func newMemStore(rows ...models.Restaurant) *memStore {
	s := &memStore{
		restaurants: make(map[int64]models.Restaurant),
		links:       make(map[models.Link]bool),
		inspections: make(map[int64]int64),
		calls:       make(map[string]int),
	}
	for _, r := range rows {
		s.restaurants[r.ID] = r
		if r.ID > s.nextID {
			s.nextID = r.ID
		}
	}
	return s
}

func (s *memStore) addInspection(id, restaurantID int64) {
	s.inspections[id] = restaurantID
}

func (s *memStore) check(op string) error {
	s.calls[op]++
	if s.fail != nil {
		return s.fail(op)
	}
	return nil
}

func (s *memStore) sorted(keep func(models.Restaurant) bool) []models.Restaurant {
	out := []models.Restaurant{}
	for _, r := range s.restaurants {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) isPrimary(id int64) bool {
	for l := range s.links {
		if l.PrimaryID == id {
			return true
		}
	}
	return false
}

func (s *memStore) ListDistinctStates(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("list_states"); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var states []string
	for _, r := range s.restaurants {
		if !seen[r.State] {
			seen[r.State] = true
			states = append(states, r.State)
		}
	}
	sort.Strings(states)
	return states, nil
}

func (s *memStore) BlockRows(ctx context.Context, state string) ([]models.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("block_rows"); err != nil {
		return nil, err
	}
	return s.sorted(func(r models.Restaurant) bool {
		return r.State == state && (!r.Clean || s.isPrimary(r.ID))
	}), nil
}

func (s *memStore) AllDirtyRows(ctx context.Context) ([]models.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("all_dirty"); err != nil {
		return nil, err
	}
	return s.sorted(func(r models.Restaurant) bool { return !r.Clean }), nil
}

func (s *memStore) InsertCanonicalRestaurant(ctx context.Context, r *models.Restaurant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("insert_canonical"); err != nil {
		return 0, err
	}
	if s.canonicalID != nil {
		return *s.canonicalID, nil
	}
	s.nextID++
	row := *r
	row.ID = s.nextID
	s.restaurants[row.ID] = row
	return row.ID, nil
}

func (s *memStore) InsertLink(ctx context.Context, primaryID, originalID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("insert_link"); err != nil {
		return false, err
	}
	l := models.Link{PrimaryID: primaryID, OriginalID: originalID}
	if s.links[l] {
		return false, nil
	}
	s.links[l] = true
	return true, nil
}

func (s *memStore) MarkClean(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("mark_clean"); err != nil {
		return err
	}
	for _, id := range ids {
		r := s.restaurants[id]
		r.Clean = true
		s.restaurants[id] = r
	}
	return nil
}

// root follows the newest primary of each original until it reaches a restaurant
// that is not an original.
func (s *memStore) root(id int64) int64 {
	seen := map[int64]bool{id: true}
	for {
		next := int64(0)
		for l := range s.links {
			if l.OriginalID == id && l.PrimaryID != id && l.PrimaryID > next {
				next = l.PrimaryID
			}
		}
		if next == 0 || seen[next] {
			return id
		}
		seen[next] = true
		id = next
	}
}

func (s *memStore) PropagateInspectionForeignKeys(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("propagate"); err != nil {
		return 0, err
	}
	var n int64
	for id, rid := range s.inspections {
		if root := s.root(rid); root != rid {
			s.inspections[id] = root
			n++
		}
	}
	return n, nil
}

func (s *memStore) ReassertPrimariesClean(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("reassert"); err != nil {
		return 0, err
	}
	var n int64
	for id, r := range s.restaurants {
		if !r.Clean && s.isPrimary(id) {
			r.Clean = true
			s.restaurants[id] = r
			n++
		}
	}
	return n, nil
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	nextID := s.nextID
	restaurants := make(map[int64]models.Restaurant, len(s.restaurants))
	for k, v := range s.restaurants {
		restaurants[k] = v
	}
	links := make(map[models.Link]bool, len(s.links))
	for k, v := range s.links {
		links[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.nextID = nextID
		s.restaurants = restaurants
		s.links = links
		s.mu.Unlock()
		return err
	}
	return nil
}

// primaryOf returns the primaries recorded for original, ascending.
func (s *memStore) primariesOf(original int64) []int64 {
	var out []int64
	for l := range s.links {
		if l.OriginalID == original {
			out = append(out, l.PrimaryID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *memStore) RestaurantByInspection(ctx context.Context, inspectionID int64) (models.Restaurant, error) {
	rid, ok := s.inspections[inspectionID]
	if !ok {
		return models.Restaurant{}, ErrNotFound
	}
	return s.Restaurant(ctx, rid)
}

func (s *memStore) Restaurant(ctx context.Context, id int64) (models.Restaurant, error) {
	r, ok := s.restaurants[id]
	if !ok {
		return models.Restaurant{}, ErrNotFound
	}
	return r, nil
}

func (s *memStore) PrimaryOf(ctx context.Context, id int64) (int64, bool, error) {
	primaries := s.primariesOf(id)
	for i := len(primaries) - 1; i >= 0; i-- {
		if primaries[i] != id {
			return primaries[i], true, nil
		}
	}
	return 0, false, nil
}

func (s *memStore) Originals(ctx context.Context, primaryID int64) ([]models.Restaurant, error) {
	return s.sorted(func(r models.Restaurant) bool {
		return r.ID != primaryID && s.links[models.Link{PrimaryID: primaryID, OriginalID: r.ID}]
	}), nil
}

func failOn(op string, err error) func(string) error {
	return func(got string) error {
		if got == op {
			return err
		}
		return nil
	}
}

// failOnCall fails op on its nth call.
func failOnCall(s *memStore, op string, n int, err error) func(string) error {
	return func(got string) error {
		if got == op && s.calls[op] == n {
			return err
		}
		return nil
	}
}

var (
	errBoom   = errors.New("connection reset by peer")
	errNoRows = sql.ErrNoRows
)

func restaurant(id int64, name, address, state, zip string) models.Restaurant {
	return models.Restaurant{
		ID:           id,
		Name:         name,
		FacilityType: "Restaurant",
		Address:      address,
		City:         "Waterloo",
		State:        state,
		Zip:          zip,
	}
}

func scenarioRows() []models.Restaurant {
	return []models.Restaurant{
		restaurant(1, "Matt's Burgers", "1547 Ora Dr.", "IA", "50701"),
		restaurant(2, "Mat's Burger Joint", "1547 Odera Street", "IA", "50701"),
		restaurant(3, "Linh's Diner", "12 Prospect Blvd.", "IA", "50701"),
	}
}
