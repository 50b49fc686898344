package linkage

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ClusterEvent describes one committed cluster.
type ClusterEvent struct {
	RunID     string
	Mode      Mode
	PrimaryID int64
	Originals []int64
	// Canonical is set when the primary was synthesized.
	Canonical *models.Restaurant
	State     string
	Zip       string
}

// ClusterObserver is notified after a cluster commits. Observer errors are
// logged and never fail the pass.
type ClusterObserver interface {
	ClusterLinked(ctx context.Context, event ClusterEvent) error
}
