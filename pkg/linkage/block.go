package linkage

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Block is the working set of one (state, zip) key. It is owned by a single
// worker for the duration of a pass.
type Block struct {
	State    string
	Zip      string
	rows     []models.Restaurant
	resolved map[int64]bool
}

func newBlock(state, zip string) *Block {
	return &Block{State: state, Zip: zip, resolved: make(map[int64]bool)}
}

// Candidates returns the block's unresolved rows in ascending id order.
func (b *Block) Candidates() []models.Restaurant {
	out := make([]models.Restaurant, 0, len(b.rows)-len(b.resolved))
	for _, r := range b.rows {
		if !b.resolved[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// Resolve removes ids from the block's candidates.
func (b *Block) Resolve(ids ...int64) {
	for _, id := range ids {
		b.resolved[id] = true
	}
}

// Len is the number of rows materialized into the block.
func (b *Block) Len() int {
	return len(b.rows)
}

// Partition holds the blocks of one state, keyed by zip.
type Partition struct {
	State    string
	blocks   map[string]*Block
	zips     []string
	Rejected []*ValidationError
}

// Zips returns the block keys of the partition in ascending order.
func (p *Partition) Zips() []string {
	return p.zips
}

// Block returns the block for zip, or nil.
func (p *Partition) Block(zip string) *Block {
	return p.blocks[zip]
}

// Blocks returns every block in zip order.
func (p *Partition) Blocks() []*Block {
	out := make([]*Block, 0, len(p.zips))
	for _, zip := range p.zips {
		out = append(out, p.blocks[zip])
	}
	return out
}

// Partitioner groups candidate rows into (state, zip) blocks.
type Partitioner struct {
	validator *RecordValidator
	logger    ectologger.Logger
}

// NewPartitioner creates a Partitioner.
func NewPartitioner(validator *RecordValidator, logger ectologger.Logger) *Partitioner {
	return &Partitioner{validator: validator, logger: logger}
}

// States lists the states to partition.
func (p *Partitioner) States(ctx context.Context, store Store) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Partitioner.States")
	defer span.End()

	states, err := store.ListDistinctStates(ctx)
	if err != nil {
		return nil, newStorageError("list distinct states", err)
	}
	return states, nil
}

// Materialize loads the candidate rows of state (dirty rows plus established
// primaries) and indexes them by zip. Rows that fail validation are left out.
func (p *Partitioner) Materialize(ctx context.Context, store Store, state string) (*Partition, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Partitioner.Materialize")
	defer span.End()

	rows, err := store.BlockRows(ctx, state)
	if err != nil {
		return nil, newStorageError("materialize block", err)
	}

	valid, rejected := p.validator.Filter(rows)
	partition := &Partition{
		State:    state,
		blocks:   make(map[string]*Block),
		Rejected: rejected,
	}
	for _, r := range valid {
		b, ok := partition.blocks[r.Zip]
		if !ok {
			b = newBlock(state, r.Zip)
			partition.blocks[r.Zip] = b
			partition.zips = append(partition.zips, r.Zip)
		}
		b.rows = append(b.rows, r)
	}
	sort.Strings(partition.zips)
	for _, b := range partition.blocks {
		sort.SliceStable(b.rows, func(i, j int) bool { return b.rows[i].ID < b.rows[j].ID })
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"state":    state,
		"rows":     len(valid),
		"blocks":   len(partition.zips),
		"rejected": len(rejected),
	}).Debug("Materialized state partition")

	return partition, nil
}
