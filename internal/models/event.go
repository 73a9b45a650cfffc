package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a raw webhook event ingested for a store (raw_events table). Read-only here.
type Event struct {
	ID              uuid.UUID       `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Platform        string          `json:"platform"`
	EventType       string          `json:"event_type"`
	Entity          string          `json:"entity"`
	ExternalEventID string          `json:"external_event_id"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	StoreID         uuid.UUID       `json:"store_id"`
}
