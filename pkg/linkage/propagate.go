package linkage

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Propagator rewrites inspection foreign keys from originals to their primaries.
type Propagator struct {
	logger ectologger.Logger
}

// NewPropagator creates a Propagator.
func NewPropagator(logger ectologger.Logger) *Propagator {
	return &Propagator{logger: logger}
}

// Propagate runs the bulk foreign-key rewrite. The blocked path also re-asserts
// clean=true on every primary.
func (p *Propagator) Propagate(ctx context.Context, store Store, mode Mode) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Propagator.Propagate")
	defer span.End()

	updated, err := store.PropagateInspectionForeignKeys(ctx)
	if err != nil {
		return 0, newStorageError("propagate inspection foreign keys", err)
	}

	if mode == ModeBlocked {
		reasserted, err := store.ReassertPrimariesClean(ctx)
		if err != nil {
			return updated, newStorageError("reassert primaries clean", err)
		}
		if reasserted > 0 {
			p.logger.WithContext(ctx).WithField("restaurants", reasserted).Warn("Primaries were still dirty after linking")
		}
	}

	p.logger.WithContext(ctx).WithField("inspections", updated).Debug("Propagated inspection foreign keys")
	return updated, nil
}
