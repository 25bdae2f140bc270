package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/biorbit/biorbit/internal/adapter"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/logger"
	"github.com/biorbit/biorbit/internal/messaging"
)

// eventSubjects covers every registry event subject
const eventSubjects = "biorbit.events.>"

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
	closed     chan struct{}
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	closed := make(chan struct{})

	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
			close(closed)
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	if err := ensureStream(js, cfg.StreamName); err != nil {
		nc.Close()
		return nil, err
	}

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
		closed:     closed,
	}, nil
}

// ensureStream provisions the event stream so a fresh deployment's first
// publish or consumer setup does not depend on external provisioning
func ensureStream(js adapter.JetStream, streamName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{eventSubjects},
	}); err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", streamName, err)
	}
	return nil
}

// PublishEvent publishes a registry event to NATS JetStream
func (p *publisher) PublishEvent(ctx context.Context, event *domain.Event) error {
	logger.Debug("Publishing registry event",
		zap.String("event_id", event.EventID),
		zap.String("type", string(event.Type)))

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := buildSubject(event)

	_, err = p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// buildSubject constructs the NATS subject for an event.
// Format: biorbit.events.{event_type}, e.g. biorbit.events.area.registered
func buildSubject(event *domain.Event) string {
	return fmt.Sprintf("biorbit.events.%s", event.Type)
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}

// CloseChan returns a channel closed when the NATS connection closes
func (p *publisher) CloseChan() <-chan struct{} {
	return p.closed
}
