package linkage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []ClusterEvent
	err    error
	after  func()
}

func (o *recordingObserver) ClusterLinked(ctx context.Context, event ClusterEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	if o.after != nil {
		o.after()
	}
	return o.err
}

// memberSets returns each cluster's full membership, primary excluded when it
// was synthesized.
func memberSets(res *PassResult) [][]int64 {
	var out [][]int64
	for _, c := range res.Clusters {
		members := append([]int64{}, c.Originals...)
		if !c.Synthesized {
			members = append(members, c.PrimaryID)
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func TestRunCleanPass_Scenario(t *testing.T) {
	tests := []struct {
		mode      Mode
		primary   int64
		linked    int
		originals []int64
	}{
		{mode: ModeNaive, primary: 2, linked: 1, originals: []int64{1}},
		{mode: ModeBlocked, primary: 4, linked: 2, originals: []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			store := newMemStore(scenarioRows()...)
			store.addInspection(100, 1)
			store.addInspection(101, 2)
			store.addInspection(102, 3)

			res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), store, tt.mode)
			require.NoError(t, err)

			assert.Equal(t, StatusOK, res.Status)
			assert.Equal(t, OutcomeCompleted, res.Outcome)
			assert.Equal(t, StateDone, res.State)
			assert.Equal(t, tt.mode, res.Mode)
			assert.NotEmpty(t, res.RunID)
			assert.Equal(t, 1, res.ClustersFormed)
			assert.Equal(t, tt.linked, res.RecordsLinked)
			assert.Equal(t, 3, res.RecordsEvaluated)
			assert.Empty(t, res.RejectedIDs)
			require.Len(t, res.Clusters, 1)
			assert.Equal(t, tt.primary, res.Clusters[0].PrimaryID)
			assert.Equal(t, tt.originals, res.Clusters[0].Originals)
			assert.Equal(t, "50701", res.Clusters[0].Zip)

			for _, id := range []int64{1, 2, 3} {
				assert.True(t, store.restaurants[id].Clean, "restaurant %d clean", id)
			}
			assert.Equal(t, tt.primary, store.inspections[100])
			assert.Equal(t, tt.primary, store.inspections[101])
			assert.Equal(t, int64(3), store.inspections[102])
			assert.Equal(t, int64(len(tt.originals)), res.InspectionsUpdated)
		})
	}
}

func TestRunCleanPass_NaiveAndBlockedAgree(t *testing.T) {
	rows := append(scenarioRows(),
		restaurant(4, "Joe's Grill", "10 Main St", "IA", "50702"),
		restaurant(5, "Joe's Grille", "10 Main St", "IA", "50702"),
		restaurant(6, "Joe's Grill", "10 Main St", "IA", "50703"),
		restaurant(7, "Ann's Cafe", "22 Elm Ave", "NE", "68102"),
		restaurant(8, "Ann's Cafe", "22 Elm Ave", "NE", "68102"),
		restaurant(9, "Ann's Cafe", "22 Elm Ave", "NE", "68102"),
	)

	naive, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), newMemStore(rows...), ModeNaive)
	require.NoError(t, err)
	blocked, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), newMemStore(rows...), ModeBlocked)
	require.NoError(t, err)

	want := [][]int64{{1, 2}, {4, 5}, {7, 8, 9}}
	assert.Equal(t, want, memberSets(naive))
	assert.Equal(t, want, memberSets(blocked))
	assert.Equal(t, naive.ClustersFormed, blocked.ClustersFormed)
}

func TestRunCleanPass_Idempotent(t *testing.T) {
	for _, mode := range []Mode{ModeNaive, ModeBlocked} {
		t.Run(string(mode), func(t *testing.T) {
			store := newMemStore(scenarioRows()...)
			store.addInspection(100, 1)
			o := NewOrchestrator(testLogger())

			first, err := o.RunCleanPass(context.Background(), store, mode)
			require.NoError(t, err)
			assert.Equal(t, 1, first.ClustersFormed)
			links := len(store.links)
			rows := len(store.restaurants)

			second, err := o.RunCleanPass(context.Background(), store, mode)
			require.NoError(t, err)
			assert.Equal(t, StatusOK, second.Status)
			assert.Equal(t, OutcomeNoWork, second.Outcome)
			assert.Zero(t, second.ClustersFormed)
			assert.Zero(t, second.RecordsLinked)
			assert.Zero(t, second.InspectionsUpdated, "propagation is a fixed point")
			assert.Len(t, store.links, links)
			assert.Len(t, store.restaurants, rows)
		})
	}
}

func TestRunCleanPass_NoWork(t *testing.T) {
	for _, mode := range []Mode{ModeNaive, ModeBlocked} {
		t.Run(string(mode), func(t *testing.T) {
			res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), newMemStore(), mode)
			require.NoError(t, err)
			assert.Equal(t, StatusOK, res.Status)
			assert.Equal(t, OutcomeNoWork, res.Outcome)
			assert.Equal(t, StateDone, res.State)
			assert.NotNil(t, res.RejectedIDs)
			assert.NotNil(t, res.Clusters)
		})
	}
}

func TestRunCleanPass_InvalidMode(t *testing.T) {
	res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), newMemStore(), Mode("scaling"))
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, OutcomeAborted, res.Outcome)
	assert.Equal(t, StateFailed, res.State)
}

func TestRunCleanPass_PartialFailureKeepsCommittedClusters(t *testing.T) {
	rows := []models.Restaurant{
		restaurant(1, "Joe's Grill", "10 Main St", "IA", "50701"),
		restaurant(2, "Joe's Grill", "10 Main St", "IA", "50701"),
		restaurant(3, "Ann's Cafe", "22 Elm Ave", "IA", "50702"),
		restaurant(4, "Ann's Cafe", "22 Elm Ave", "IA", "50702"),
	}

	tests := []struct {
		mode      Mode
		failAfter int
		linked    int
	}{
		{mode: ModeNaive, failAfter: 2, linked: 1},
		{mode: ModeBlocked, failAfter: 3, linked: 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			store := newMemStore(rows...)
			store.fail = failOnCall(store, "insert_link", tt.failAfter, errBoom)

			res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), store, tt.mode)

			var se *StorageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "insert link", se.Op)
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, OutcomeAborted, res.Outcome)
			assert.Equal(t, StateFailed, res.State)
			assert.Contains(t, res.Error, errBoom.Error())
			assert.Equal(t, 1, res.ClustersFormed)
			assert.Equal(t, tt.linked, res.RecordsLinked)

			assert.True(t, store.restaurants[1].Clean)
			assert.True(t, store.restaurants[2].Clean)
			assert.False(t, store.restaurants[3].Clean)
			assert.False(t, store.restaurants[4].Clean)
			assert.Len(t, store.links, tt.linked)
			assert.Zero(t, store.calls["propagate"], "propagation does not run after a failure")
		})
	}
}

func TestRunCleanPass_StorageErrorBeforeClustering(t *testing.T) {
	store := newMemStore(scenarioRows()...)
	store.fail = failOn("list_states", errBoom)

	res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), store, ModeBlocked)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list distinct states", se.Op)
	assert.Equal(t, OutcomeAborted, res.Outcome)
	assert.Zero(t, res.ClustersFormed)
}

func TestRunCleanPass_IdentityResolutionAborts(t *testing.T) {
	store := newMemStore(scenarioRows()...)
	zero := int64(0)
	store.canonicalID = &zero

	res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), store, ModeBlocked)

	var ire *IdentityResolutionError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, StatusError, res.Status)
	assert.Empty(t, store.links)
}

func TestRunCleanPass_Cancellation(t *testing.T) {
	rows := []models.Restaurant{
		restaurant(1, "Joe's Grill", "10 Main St", "IA", "50701"),
		restaurant(2, "Joe's Grill", "10 Main St", "IA", "50701"),
		restaurant(3, "Ann's Cafe", "22 Elm Ave", "IA", "50702"),
		restaurant(4, "Ann's Cafe", "22 Elm Ave", "IA", "50702"),
	}

	for _, mode := range []Mode{ModeNaive, ModeBlocked} {
		t.Run(string(mode), func(t *testing.T) {
			store := newMemStore(rows...)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			obs := &recordingObserver{after: cancel}

			res, err := NewOrchestrator(testLogger(), WithObservers(obs)).RunCleanPass(ctx, store, mode)

			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, OutcomeAborted, res.Outcome)
			assert.Equal(t, 1, res.ClustersFormed)
			assert.True(t, store.restaurants[1].Clean)
			assert.False(t, store.restaurants[3].Clean)
			assert.False(t, store.restaurants[4].Clean)
		})
	}
}

func TestRunCleanPass_RejectsInvalidRows(t *testing.T) {
	rows := append(scenarioRows(),
		restaurant(4, "", "1547 Ora Dr.", "IA", "50701"),
		restaurant(5, "Matt's Burgers", "1547 Ora Dr.", "IA", ""),
	)

	for _, mode := range []Mode{ModeNaive, ModeBlocked} {
		t.Run(string(mode), func(t *testing.T) {
			store := newMemStore(rows...)

			res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), store, mode)
			require.NoError(t, err)
			assert.Equal(t, []int64{4, 5}, res.RejectedIDs)
			assert.Equal(t, 1, res.ClustersFormed)
			assert.False(t, store.restaurants[4].Clean)
			assert.False(t, store.restaurants[5].Clean)
		})
	}
}

func TestRunCleanPass_BlockWorkers(t *testing.T) {
	var rows []models.Restaurant
	for i := 0; i < 20; i++ {
		zip := fmt.Sprintf("5%04d", i)
		rows = append(rows,
			restaurant(int64(2*i+1), "Joe's Grill", "10 Main St", "IA", zip),
			restaurant(int64(2*i+2), "Joe's Grill", "10 Main St", "IA", zip),
		)
	}
	store := newMemStore(rows...)
	obs := &recordingObserver{}

	res, err := NewOrchestrator(testLogger(), WithBlockWorkers(4), WithObservers(obs)).
		RunCleanPass(context.Background(), store, ModeBlocked)
	require.NoError(t, err)

	assert.Equal(t, 20, res.ClustersFormed)
	assert.Equal(t, 40, res.RecordsLinked)
	assert.Len(t, obs.events, 20)
	assert.Len(t, store.restaurants, 60)
	for _, r := range rows {
		assert.True(t, store.restaurants[r.ID].Clean)
	}
}

func TestRunCleanPass_BlockWorkerFailureStopsPass(t *testing.T) {
	var rows []models.Restaurant
	for i := 0; i < 10; i++ {
		zip := fmt.Sprintf("5%04d", i)
		rows = append(rows,
			restaurant(int64(2*i+1), "Joe's Grill", "10 Main St", "IA", zip),
			restaurant(int64(2*i+2), "Joe's Grill", "10 Main St", "IA", zip),
		)
	}
	store := newMemStore(rows...)
	store.fail = failOnCall(store, "insert_canonical", 3, errBoom)

	res, err := NewOrchestrator(testLogger(), WithBlockWorkers(3)).RunCleanPass(context.Background(), store, ModeBlocked)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StatusError, res.Status)
	assert.Less(t, res.ClustersFormed, 10)
	assert.Len(t, store.links, 2*res.ClustersFormed)
}

func TestRunCleanPass_Observers(t *testing.T) {
	store := newMemStore(scenarioRows()...)
	failing := &recordingObserver{err: errors.New("broker unavailable")}
	recording := &recordingObserver{}

	res, err := NewOrchestrator(testLogger(), WithObservers(failing, nil, recording)).
		RunCleanPass(context.Background(), store, ModeBlocked)
	require.NoError(t, err, "observer failures never fail the pass")
	assert.Equal(t, StatusOK, res.Status)

	require.Len(t, recording.events, 1)
	event := recording.events[0]
	assert.Equal(t, res.RunID, event.RunID)
	assert.Equal(t, ModeBlocked, event.Mode)
	assert.Equal(t, int64(4), event.PrimaryID)
	assert.Equal(t, []int64{1, 2}, event.Originals)
	require.NotNil(t, event.Canonical)
	assert.Equal(t, int64(4), event.Canonical.ID)
	assert.Equal(t, "IA", event.State)
	assert.Equal(t, "50701", event.Zip)
	assert.Len(t, failing.events, 1)
}

func TestRunCleanPass_TransitivePropagation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(scenarioRows()...)
	store.addInspection(100, 1)
	o := NewOrchestrator(testLogger())

	_, err := o.RunCleanPass(ctx, store, ModeBlocked)
	require.NoError(t, err)
	assert.Equal(t, int64(4), store.inspections[100])

	store.restaurants[10] = restaurant(10, "Matt's Burger Joint", "1547 Ora Dr.", "IA", "50701")
	store.nextID = 10
	store.addInspection(101, 10)

	res, err := o.RunCleanPass(ctx, store, ModeBlocked)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ClustersFormed)
	assert.Equal(t, []int64{4, 10}, res.Clusters[0].Originals)
	assert.Equal(t, int64(11), store.inspections[100])
	assert.Equal(t, int64(11), store.inspections[101])
	assert.Equal(t, int64(2), res.InspectionsUpdated)
}

func TestRunCleanPass_BlockedReassertsPrimaries(t *testing.T) {
	// a primary that validation keeps out of clustering is never marked clean
	// by the persister
	primary := restaurant(2, "Joe's Grill", "10 Main St", "IA", "")
	store := newMemStore(primary)
	store.links[models.Link{PrimaryID: 2, OriginalID: 1}] = true

	res, err := NewOrchestrator(testLogger()).RunCleanPass(context.Background(), store, ModeBlocked)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, res.RejectedIDs)
	assert.True(t, store.restaurants[2].Clean)
	assert.Equal(t, 1, store.calls["reassert"])
}
