package messaging

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
)

// EventHandler is called for each registry event received from the broker.
// Returning an error leaves the message unacknowledged for redelivery.
type EventHandler func(event *domain.Event) error

// Subscriber defines the interface for consuming registry events
type Subscriber interface {
	// SubscribeEvents delivers each registry event to handler until ctx is
	// cancelled or the subscription fails
	SubscribeEvents(ctx context.Context, handler EventHandler) error

	// Close closes the connection and cleans up resources
	Close()
}
