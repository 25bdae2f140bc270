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

// SubscriberConfig holds the configuration for a durable JetStream consumer
type SubscriberConfig struct {
	Config
	ConsumerName   string
	AckWaitTimeout time.Duration
	MaxDeliver     int
}

type subscriber struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	json   adapter.JSON
	config SubscriberConfig
}

// NewSubscriber creates a durable NATS JetStream subscriber for registry events
func NewSubscriber(cfg SubscriberConfig, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Subscriber, error) {
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

	return &subscriber{
		nc:     nc,
		js:     js,
		json:   jsonAdapter,
		config: cfg,
	}, nil
}

// SubscribeEvents consumes registry events until ctx is cancelled. Handler
// errors leave the message unacknowledged so JetStream redelivers it.
func (s *subscriber) SubscribeEvents(ctx context.Context, handler messaging.EventHandler) error {
	consumerConfig := jetstream.ConsumerConfig{
		Durable:       s.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.config.AckWaitTimeout,
		MaxDeliver:    s.config.MaxDeliver,
		FilterSubject: eventSubjects,
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, s.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 100)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming registry events")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping event subscription")
			return ctx.Err()
		case msg := <-msgChan:
			s.handleMessage(msg, handler)
		}
	}
}

// handleMessage parses one message and runs the handler with ack semantics
func (s *subscriber) handleMessage(msg adapter.Message, handler messaging.EventHandler) {
	var event domain.Event
	if err := s.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"))
		// Terminate message for unparseable data
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	if err := handler(&event); err != nil {
		logger.Error(err, zap.String("message", "Failed to handle event"),
			zap.String("event_id", event.EventID))
		// NAK to retry
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}
}

// Close closes the NATS connection
func (s *subscriber) Close() {
	if s.nc == nil {
		return
	}

	s.nc.Close()
}
