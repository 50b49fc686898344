// Package events publishes linkage events to Kafka
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Publisher writes a keyed event. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, payload any) error
}

// Emitter turns committed clusters into restaurant.linked events
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

var _ linkage.ClusterObserver = (*Emitter)(nil)

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// ClusterLinked emits a restaurant.linked event keyed by the primary id
func (e *Emitter) ClusterLinked(ctx context.Context, cluster linkage.ClusterEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ClusterLinked")
	defer span.End()

	event := &RestaurantLinkedEvent{
		BaseEvent: BaseEvent{
			EventType:     EventTypeRestaurantLinked,
			SchemaVersion: SchemaVersion,
			Timestamp:     time.Now().UTC(),
			CorrelationID: appctx.GetRequestID(ctx),
		},
		RunID:     cluster.RunID,
		Mode:      string(cluster.Mode),
		PrimaryID: cluster.PrimaryID,
		Originals: cluster.Originals,
		State:     cluster.State,
		Zip:       cluster.Zip,
		Canonical: cluster.Canonical,
	}

	key := strconv.FormatInt(cluster.PrimaryID, 10)
	if err := e.publisher.Publish(ctx, key, string(EventTypeRestaurantLinked), event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit restaurant.linked event")
		return err
	}

	return nil
}
