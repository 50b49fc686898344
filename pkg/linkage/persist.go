package linkage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Persisted describes what a cluster wrote.
type Persisted struct {
	// Formed is true when the cluster produced link rows.
	Formed bool
	// Linked counts link rows inserted; pairs that already existed are not counted.
	Linked int
}

// Persister writes cluster membership to the link table and flips clean flags.
// Every cluster is one transaction.
type Persister struct {
	logger ectologger.Logger
}

// NewPersister creates a Persister.
func NewPersister(logger ectologger.Logger) *Persister {
	return &Persister{logger: logger}
}

// PersistNaive links every non-primary member to the elected primary and marks
// all members clean, primary included.
func (p *Persister) PersistNaive(ctx context.Context, store Store, c *Cluster) (Persisted, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Persister.PersistNaive")
	defer span.End()

	originals := c.Originals()
	linked := 0
	err := store.InTx(ctx, func(ctx context.Context) error {
		for _, id := range originals {
			inserted, err := store.InsertLink(ctx, c.PrimaryID, id)
			if err != nil {
				return newStorageError("insert link", err)
			}
			if inserted {
				linked++
			}
		}
		if err := store.MarkClean(ctx, c.MemberIDs()); err != nil {
			return newStorageError("mark clean", err)
		}
		return nil
	})
	if err != nil {
		p.logFailure(ctx, c, err)
		return Persisted{}, newStorageError("commit cluster", err)
	}

	return Persisted{Formed: len(originals) > 0, Linked: linked}, nil
}

// PersistBlocked inserts the synthesized canonical row and links every member to
// it when the cluster has at least two members and at least one dirty member.
// Dirty members are marked clean in either case.
func (p *Persister) PersistBlocked(ctx context.Context, store Store, c *Cluster) (Persisted, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Persister.PersistBlocked")
	defer span.End()

	dirty := c.DirtyIDs()
	formed := len(c.Members) >= 2 && len(dirty) > 0
	if !formed && len(dirty) == 0 {
		return Persisted{}, nil
	}

	linked := 0
	err := store.InTx(ctx, func(ctx context.Context) error {
		if formed {
			id, err := store.InsertCanonicalRestaurant(ctx, c.Canonical)
			if errors.Is(err, sql.ErrNoRows) {
				return &IdentityResolutionError{Err: err}
			}
			if err != nil {
				return newStorageError("insert canonical restaurant", err)
			}
			if id <= 0 {
				return &IdentityResolutionError{}
			}
			c.PrimaryID = id
			c.Canonical.ID = id

			for _, m := range c.Members {
				inserted, err := store.InsertLink(ctx, id, m.ID)
				if err != nil {
					return newStorageError("insert link", err)
				}
				if inserted {
					linked++
				}
			}
		}
		if err := store.MarkClean(ctx, dirty); err != nil {
			return newStorageError("mark clean", err)
		}
		return nil
	})
	if err != nil {
		c.PrimaryID = 0
		if c.Canonical != nil {
			c.Canonical.ID = 0
		}
		p.logFailure(ctx, c, err)
		return Persisted{}, newStorageError("commit cluster", err)
	}

	return Persisted{Formed: formed, Linked: linked}, nil
}

func (p *Persister) logFailure(ctx context.Context, c *Cluster, err error) {
	fields := map[string]any{
		"members": c.MemberIDs(),
	}
	var se *StorageError
	if errors.As(err, &se) {
		fields["op"] = se.Op
		if se.Query != "" {
			fields["query"] = se.Query
		}
	}
	p.logger.WithContext(ctx).WithError(err).WithFields(fields).Error("Failed to persist cluster")
}
