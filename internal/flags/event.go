package flags

import "time"

// EventType names an engine notification.
type EventType string

// Engine notifications.
const (
	EventStateChanged      EventType = "migration-state-changed"
	EventCategoryEnabled   EventType = "category-enabled"
	EventCategoryDisabled  EventType = "category-disabled"
	EventEmergencyRollback EventType = "emergency-rollback"
)

// Event is emitted to subscribers after a mutation has been applied and
// persisted. Fields not relevant to Type are empty.
type Event struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	State         MigrationState `json:"state,omitempty"`
	PreviousState MigrationState `json:"previousState,omitempty"`
	Category      Category       `json:"category,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// Subscriber receives engine events synchronously. It must not block and
// must not mutate the engine.
type Subscriber func(Event)
