package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// linkCypher upserts the primary and its originals and points every original
// at the primary.
const linkCypher = `
MERGE (p:Restaurant {id: $primary_id})
SET p += $primary
WITH p
UNWIND $originals AS original_id
MERGE (o:Restaurant {id: original_id})
MERGE (o)-[r:LINKED_TO]->(p)
SET r.run_id = $run_id, r.mode = $mode
`

// writer is the part of Client the projector uses.
type writer interface {
	ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error)
}

// Projector mirrors committed clusters as (original)-[:LINKED_TO]->(primary)
// edges
type Projector struct {
	client writer
	logger ectologger.Logger
}

var _ linkage.ClusterObserver = (*Projector)(nil)

// NewProjector creates a new link projector
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// ClusterLinked writes the cluster's edges in one transaction
func (p *Projector) ClusterLinked(ctx context.Context, event linkage.ClusterEvent) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ClusterLinked")
	defer span.End()

	params := linkParams(event)
	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, linkCypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("primary_id", event.PrimaryID).Error("Failed to project links")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_id": event.PrimaryID,
		"originals":  len(event.Originals),
	}).Debug("Projected links")
	return nil
}

func linkParams(event linkage.ClusterEvent) map[string]any {
	primary := map[string]any{
		"state":       event.State,
		"zip":         event.Zip,
		"synthesized": event.Canonical != nil,
	}
	if c := event.Canonical; c != nil {
		primary["name"] = c.Name
		primary["address"] = c.Address
		primary["city"] = c.City
	}

	originals := make([]any, len(event.Originals))
	for i, id := range event.Originals {
		originals[i] = id
	}

	return map[string]any{
		"primary_id": event.PrimaryID,
		"primary":    primary,
		"originals":  originals,
		"run_id":     event.RunID,
		"mode":       string(event.Mode),
	}
}
