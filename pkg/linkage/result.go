package linkage

import (
	"sort"
	"sync"
	"time"
)

// Status is the coarse result of a pass.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Outcome distinguishes an empty pass from a completed or aborted one.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoWork    Outcome = "no_work"
	OutcomeAborted   Outcome = "aborted"
)

// ClusterSummary is one cluster formed during a pass.
type ClusterSummary struct {
	PrimaryID   int64   `json:"primary_id"`
	Originals   []int64 `json:"originals"`
	Synthesized bool    `json:"synthesized"`
	State       string  `json:"state"`
	Zip         string  `json:"zip"`
}

// PassResult reports a clean pass. Counters include every cluster committed
// before a failure.
type PassResult struct {
	RunID              string           `json:"run_id"`
	Mode               Mode             `json:"mode"`
	Status             Status           `json:"status"`
	Outcome            Outcome          `json:"outcome"`
	State              State            `json:"state"`
	ClustersFormed     int              `json:"clusters_formed"`
	RecordsLinked      int              `json:"records_linked"`
	RecordsEvaluated   int              `json:"records_evaluated"`
	InspectionsUpdated int64            `json:"inspections_updated"`
	RejectedIDs        []int64          `json:"rejected_ids"`
	Clusters           []ClusterSummary `json:"clusters"`
	Error              string           `json:"error,omitempty"`
	StartedAt          time.Time        `json:"started_at"`
	FinishedAt         time.Time        `json:"finished_at"`
}

// passRun is the mutable state of one pass, shared by its block workers.
type passRun struct {
	mu       sync.Mutex
	machine  *machine
	result   *PassResult
	rejected map[int64]bool
}

func newPassRun(runID string, mode Mode) *passRun {
	return &passRun{
		machine: newMachine(),
		result: &PassResult{
			RunID:       runID,
			Mode:        mode,
			State:       StateIdle,
			RejectedIDs: []int64{},
			Clusters:    []ClusterSummary{},
			StartedAt:   time.Now().UTC(),
		},
		rejected: make(map[int64]bool),
	}
}

func (r *passRun) to(s State) error {
	return r.machine.to(s)
}

func (r *passRun) reject(errs []*ValidationError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ve := range errs {
		r.rejected[ve.RecordID] = true
	}
}

func (r *passRun) evaluated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.RecordsEvaluated += n
}

func (r *passRun) record(c *Cluster, p Persisted, state, zip string) {
	if !p.Formed {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.ClustersFormed++
	r.result.RecordsLinked += p.Linked
	r.result.Clusters = append(r.result.Clusters, ClusterSummary{
		PrimaryID:   c.PrimaryID,
		Originals:   c.Originals(),
		Synthesized: c.Canonical != nil,
		State:       state,
		Zip:         zip,
	})
}

func (r *passRun) finish(err error) *PassResult {
	if err != nil {
		_ = r.machine.to(StateFailed)
	} else {
		_ = r.machine.to(StateDone)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.result
	res.FinishedAt = time.Now().UTC()
	res.State = r.machine.current()
	for id := range r.rejected {
		res.RejectedIDs = append(res.RejectedIDs, id)
	}
	sort.Slice(res.RejectedIDs, func(i, j int) bool { return res.RejectedIDs[i] < res.RejectedIDs[j] })

	switch {
	case err != nil:
		res.Status = StatusError
		res.Outcome = OutcomeAborted
		res.Error = err.Error()
	case res.RecordsEvaluated == 0:
		res.Status = StatusOK
		res.Outcome = OutcomeNoWork
	default:
		res.Status = StatusOK
		res.Outcome = OutcomeCompleted
	}
	return res
}
