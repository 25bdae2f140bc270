package messaging

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
)

// Publisher defines the interface for publishing registry events to the
// message broker
type Publisher interface {
	// PublishEvent publishes a registry event
	PublishEvent(ctx context.Context, event *domain.Event) error
	// Close closes the connection
	Close()
	// CloseChan returns a channel that is closed when the publisher is closed
	CloseChan() <-chan struct{}
}
