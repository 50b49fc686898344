package linkage

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/similarity"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Orchestrator runs clean passes: blocking (blocked mode only), clustering,
// linking and foreign-key propagation.
type Orchestrator struct {
	scorer      *similarity.Scorer
	validator   *RecordValidator
	builder     *Builder
	partitioner *Partitioner
	persister   *Persister
	propagator  *Propagator
	observers   []ClusterObserver
	workers     int
	logger      ectologger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithScorer replaces the default similarity scorer.
func WithScorer(scorer *similarity.Scorer) Option {
	return func(o *Orchestrator) {
		if scorer != nil {
			o.scorer = scorer
		}
	}
}

// WithObservers registers observers notified after each committed cluster.
func WithObservers(observers ...ClusterObserver) Option {
	return func(o *Orchestrator) {
		for _, obs := range observers {
			if obs != nil {
				o.observers = append(o.observers, obs)
			}
		}
	}
}

// WithBlockWorkers sets how many (state, zip) blocks are clustered concurrently
// in blocked mode.
func WithBlockWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(logger ectologger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scorer:  similarity.NewScorer(),
		workers: 1,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.validator = NewRecordValidator()
	o.builder = NewBuilder(o.scorer)
	o.partitioner = NewPartitioner(o.validator, logger)
	o.persister = NewPersister(logger)
	o.propagator = NewPropagator(logger)
	return o
}

// RunCleanPass runs one pass against store. The result is always returned; the
// error is non-nil exactly when the result's status is error. Clusters committed
// before a failure or cancellation stay committed.
func (o *Orchestrator) RunCleanPass(ctx context.Context, store Store, mode Mode) (*PassResult, error) {
	runID := uuid.New().String()
	ctx = appctx.SetRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "linkage.Orchestrator.RunCleanPass")
	defer span.End()

	run := newPassRun(runID, mode)
	log := o.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": runID,
		"mode":   mode,
	})
	log.Info("Starting clean pass")

	var err error
	switch mode {
	case ModeNaive:
		err = o.runNaive(ctx, store, run)
	case ModeBlocked:
		err = o.runBlocked(ctx, store, run)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if err == nil {
		err = o.propagate(ctx, store, run, mode)
	}

	res := run.finish(err)
	duration := res.FinishedAt.Sub(res.StartedAt)
	metrics.RecordCleanPass(string(mode), string(res.Outcome), duration.Seconds())
	metrics.RecordClusters(string(mode), res.ClustersFormed, res.RecordsLinked, len(res.RejectedIDs))
	metrics.RecordPropagatedInspections(res.InspectionsUpdated)

	fields := map[string]any{
		"outcome":             res.Outcome,
		"state":               res.State,
		"clusters_formed":     res.ClustersFormed,
		"records_linked":      res.RecordsLinked,
		"records_evaluated":   res.RecordsEvaluated,
		"inspections_updated": res.InspectionsUpdated,
		"rejected":            len(res.RejectedIDs),
		"duration":            duration.Round(time.Millisecond).String(),
	}
	if err != nil {
		log.WithError(err).WithFields(fields).Error("Clean pass aborted")
		return res, err
	}
	log.WithFields(fields).Info("Clean pass finished")
	return res, nil
}

func (o *Orchestrator) runNaive(ctx context.Context, store Store, run *passRun) error {
	if err := run.to(StateClustering); err != nil {
		return err
	}

	seeds := make(map[int64]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := store.AllDirtyRows(ctx)
		if err != nil {
			return newStorageError("fetch dirty rows", err)
		}
		candidates, rejected := o.validator.Filter(rows)
		run.reject(rejected)
		if len(candidates) == 0 {
			return nil
		}

		cluster := o.builder.Naive(candidates)
		seed := cluster.Members[0].ID
		if seeds[seed] {
			return newStorageError("mark clean", fmt.Errorf("restaurant %d is still dirty after it was clustered", seed))
		}
		seeds[seed] = true

		if err := run.to(StateLinking); err != nil {
			return err
		}
		persisted, err := o.persister.PersistNaive(ctx, store, cluster)
		if err != nil {
			return err
		}
		run.evaluated(len(cluster.Members))
		run.record(cluster, persisted, cluster.Members[0].State, cluster.Members[0].Zip)
		if persisted.Formed {
			o.notify(ctx, run, cluster, cluster.Members[0].State, cluster.Members[0].Zip)
		}
		if err := run.to(StateClustering); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) runBlocked(ctx context.Context, store Store, run *passRun) error {
	if err := run.to(StateBlocking); err != nil {
		return err
	}

	states, err := o.partitioner.States(ctx, store)
	if err != nil {
		return err
	}

	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := run.to(StateBlocking); err != nil {
			return err
		}

		partition, err := o.partitioner.Materialize(ctx, store, state)
		if err != nil {
			return err
		}
		run.reject(partition.Rejected)

		if err := run.to(StateClustering); err != nil {
			return err
		}
		if err := o.clusterBlocks(ctx, store, run, partition.Blocks()); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) clusterBlocks(ctx context.Context, store Store, run *passRun, blocks []*Block) error {
	if o.workers <= 1 {
		for _, b := range blocks {
			if err := o.clusterBlock(ctx, store, run, b); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, b := range blocks {
		g.Go(func() error {
			return o.clusterBlock(gctx, store, run, b)
		})
	}
	return g.Wait()
}

func (o *Orchestrator) clusterBlock(ctx context.Context, store Store, run *passRun, b *Block) error {
	ctx, span := tracing.StartSpan(ctx, "linkage.Orchestrator.clusterBlock")
	defer span.End()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates := b.Candidates()
		if len(candidates) == 0 {
			return nil
		}

		cluster := o.builder.Blocked(b.State, candidates)
		b.Resolve(cluster.MemberIDs()...)

		if err := run.to(StateLinking); err != nil {
			return err
		}
		persisted, err := o.persister.PersistBlocked(ctx, store, cluster)
		if err != nil {
			return err
		}
		run.evaluated(len(cluster.DirtyIDs()))
		run.record(cluster, persisted, b.State, b.Zip)
		if persisted.Formed {
			o.notify(ctx, run, cluster, b.State, b.Zip)
		}
		if err := run.to(StateClustering); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) propagate(ctx context.Context, store Store, run *passRun, mode Mode) error {
	if err := run.to(StatePropagating); err != nil {
		return err
	}
	updated, err := o.propagator.Propagate(ctx, store, mode)
	run.mu.Lock()
	run.result.InspectionsUpdated = updated
	run.mu.Unlock()
	return err
}

func (o *Orchestrator) notify(ctx context.Context, run *passRun, c *Cluster, state, zip string) {
	if len(o.observers) == 0 {
		return
	}
	event := ClusterEvent{
		RunID:     run.result.RunID,
		Mode:      run.result.Mode,
		PrimaryID: c.PrimaryID,
		Originals: c.Originals(),
		Canonical: c.Canonical,
		State:     state,
		Zip:       zip,
	}
	for _, obs := range o.observers {
		if err := obs.ClusterLinked(ctx, event); err != nil {
			o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"primary_id": c.PrimaryID,
				"observer":   fmt.Sprintf("%T", obs),
			}).Warn("Cluster observer failed")
		}
	}
}
