package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Severities lists the valid alert severities, lowest first.
var Severities = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Alert is an operational alert raised for a store.
// Resolved is nullable in the store; nil counts as open.
type Alert struct {
	ID              uuid.UUID `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Severity        string    `json:"severity"`
	AlertType       string    `json:"alert_type"`
	Message         string    `json:"message"`
	Platform        string    `json:"platform"`
	Resolved        *bool     `json:"resolved"`
	RelatedEntityID *string   `json:"related_entity_id,omitempty"`
	StoreID         uuid.UUID `json:"store_id"`
}

// IsOpen reports whether the alert still needs attention.
func (a Alert) IsOpen() bool {
	return a.Resolved == nil || !*a.Resolved
}
