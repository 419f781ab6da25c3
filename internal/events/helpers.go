package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event type constants
const (
	TypeSwarmStatus      = "swarm.status_changed"
	TypeMetricsGenerated = "metrics.generated"
	TypeRefreshRequested = "metrics.refresh_requested"
)

// BaseEvent carries the envelope shared by every event
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a new base event with defaults
func NewBaseEvent(eventType, source string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   "1.0",
	}
}

// SanitizeUTF8 drops invalid UTF-8 sequences; feed titles are not always clean
func SanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
