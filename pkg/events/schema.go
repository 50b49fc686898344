package events

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// EventTypeRestaurantLinked is emitted once per committed cluster
	EventTypeRestaurantLinked EventType = "restaurant.linked"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// RestaurantLinkedEvent reports originals folded into a primary restaurant
type RestaurantLinkedEvent struct {
	BaseEvent
	RunID     string             `json:"run_id"`
	Mode      string             `json:"mode"`
	PrimaryID int64              `json:"primary_id"`
	Originals []int64            `json:"originals"`
	State     string             `json:"state"`
	Zip       string             `json:"zip"`
	Canonical *models.Restaurant `json:"canonical,omitempty"`
}
