package webhook

import (
	"encoding/json"
	"time"
)

// EventTypeWildcard is a special filter that matches all event types
const EventTypeWildcard = "*"

// WebhookEvent represents a registry event to be delivered to clients
type WebhookEvent struct {
	// EventID is a unique identifier for this event (ULID for time-sortable uniqueness)
	EventID string `json:"event_id"`
	// EventType is the registry event type (e.g. "area.registered")
	EventType string `json:"event_type"`
	// TxID identifies the invocation that produced the event
	TxID string `json:"tx_id"`
	// Digest is the hex SHA-256 of the canonicalized event payload
	Digest string `json:"digest"`
	// Timestamp is when the event was generated
	Timestamp time.Time `json:"timestamp"`
	// Data contains the event-specific payload
	Data json.RawMessage `json:"data"`
}

// DeliveryResult represents the result of a webhook delivery attempt
type DeliveryResult struct {
	// Success indicates whether the delivery was successful
	Success bool
	// StatusCode is the HTTP status code returned by the webhook endpoint
	StatusCode int
	// Body is the response body (limited to 4KB)
	Body string
	// Error contains error details if delivery failed
	Error string
}
