// Package bridge consumes committed registry events from the message broker
// and fans them out to registered webhook observers with signed payloads,
// bounded concurrency and retried delivery.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/biorbit/biorbit/internal/adapter"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/logger"
	"github.com/biorbit/biorbit/internal/messaging"
	"github.com/biorbit/biorbit/internal/store"
	"github.com/biorbit/biorbit/internal/store/schema"
	"github.com/biorbit/biorbit/internal/webhook"
)

const (
	defaultWorkerPoolSize  = 10
	defaultWorkerQueueSize = 1000
	maxResponseBodyBytes   = 4 * 1024
)

// Config holds the configuration for the event bridge
type Config struct {
	WorkerPoolSize       int
	WorkerQueueSize      int
	DeliveryTimeout      time.Duration
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// Bridge defines the interface for the event bridge
type Bridge interface {
	// Run starts the event bridge
	Run(ctx context.Context) error
	// Close closes the bridge and cleans up resources
	Close()
}

type bridge struct {
	subscriber messaging.Subscriber
	store      store.Store
	httpClient adapter.HTTPClient
	json       adapter.JSON
	clock      adapter.Clock
	pool       pond.Pool
	config     Config
}

// NewBridge creates a new event bridge
func NewBridge(
	cfg Config,
	subscriber messaging.Subscriber,
	st store.Store,
	httpClient adapter.HTTPClient,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
) Bridge {
	return &bridge{
		subscriber: subscriber,
		store:      st,
		httpClient: httpClient,
		json:       jsonAdapter,
		clock:      clock,
		config:     cfg,
	}
}

// Run starts the event bridge
func (b *bridge) Run(ctx context.Context) error {
	workerPoolSize := b.config.WorkerPoolSize
	if workerPoolSize == 0 {
		workerPoolSize = defaultWorkerPoolSize
	}
	workerQueueSize := b.config.WorkerQueueSize
	if workerQueueSize == 0 {
		workerQueueSize = defaultWorkerQueueSize
	}

	b.pool = pond.NewPool(
		workerPoolSize,
		pond.WithQueueSize(workerQueueSize),
		pond.WithContext(ctx),
	)

	logger.Info("Starting event bridge",
		zap.Int("workers", workerPoolSize),
		zap.Int("queue_size", workerQueueSize))

	defer func() {
		logger.Info("Shutting down delivery worker pool",
			zap.Uint64("submitted", b.pool.SubmittedTasks()),
			zap.Uint64("waiting", b.pool.WaitingTasks()))

		b.pool.StopAndWait()

		logger.Info("Delivery worker pool shutdown complete",
			zap.Uint64("total_completed", b.pool.CompletedTasks()),
			zap.Uint64("total_failed", b.pool.FailedTasks()))
	}()

	return b.subscriber.SubscribeEvents(ctx, func(event *domain.Event) error {
		return b.handleEvent(ctx, event)
	})
}

// handleEvent fans one committed event out to every matching observer.
// Returning an error leaves the message unacknowledged for redelivery.
func (b *bridge) handleEvent(ctx context.Context, event *domain.Event) error {
	clients, err := b.store.ListActiveWebhookClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list webhook clients: %w", err)
	}

	logger.Info("Received registry event",
		zap.String("event_id", event.EventID),
		zap.String("type", string(event.Type)),
		zap.String("tx_id", event.TxID))

	webhookEvent := webhook.WebhookEvent{
		EventID:   event.EventID,
		EventType: string(event.Type),
		TxID:      event.TxID,
		Digest:    event.Digest,
		Timestamp: event.Timestamp,
		Data:      event.Payload,
	}

	for _, client := range clients {
		if !clientWantsEvent(client, string(event.Type)) {
			continue
		}

		payload, err := b.json.Marshal(webhookEvent)
		if err != nil {
			return fmt.Errorf("failed to marshal webhook event: %w", err)
		}

		delivery := &schema.WebhookDelivery{
			ClientID:       client.ClientID,
			EventID:        event.EventID,
			EventType:      string(event.Type),
			Payload:        payload,
			DeliveryStatus: schema.WebhookDeliveryStatusPending,
		}
		if err := b.store.CreateWebhookDelivery(ctx, delivery); err != nil {
			return fmt.Errorf("failed to create delivery record: %w", err)
		}

		c := client
		b.pool.Submit(func() {
			b.deliver(ctx, c, webhookEvent, delivery)
		})
	}

	return nil
}

// clientWantsEvent checks the client's event filters against the event type
func clientWantsEvent(client *schema.WebhookClient, eventType string) bool {
	var filters []string
	if err := json.Unmarshal(client.EventFilters, &filters); err != nil {
		logger.Warn("Invalid event filters, skipping client",
			zap.String("client_id", client.ClientID))
		return false
	}

	for _, f := range filters {
		if f == webhook.EventTypeWildcard || f == eventType {
			return true
		}
	}
	return false
}

// deliver posts the signed payload to one client, retrying with exponential
// backoff up to the client's attempt ceiling, and records the outcome.
func (b *bridge) deliver(ctx context.Context, client *schema.WebhookClient, event webhook.WebhookEvent, delivery *schema.WebhookDelivery) {
	attempts := 0

	operation := func() error {
		attempts++
		result, err := b.attemptDelivery(ctx, client, event)

		now := b.clock.Now().UTC()
		delivery.Attempts = attempts
		delivery.LastAttemptAt = &now
		if result.StatusCode != 0 {
			status := result.StatusCode
			delivery.ResponseStatus = &status
		}

		if err != nil {
			delivery.ErrorMessage = err.Error()
			if uerr := b.store.UpdateWebhookDelivery(ctx, delivery); uerr != nil {
				logger.Error(uerr, zap.String("message", "Failed to update delivery record"))
			}
			return err
		}

		delivery.DeliveryStatus = schema.WebhookDeliveryStatusSuccess
		delivery.ErrorMessage = ""
		if uerr := b.store.UpdateWebhookDelivery(ctx, delivery); uerr != nil {
			logger.Error(uerr, zap.String("message", "Failed to update delivery record"))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	if b.config.RetryInitialInterval > 0 {
		bo.InitialInterval = b.config.RetryInitialInterval
	}
	if b.config.RetryMaxInterval > 0 {
		bo.MaxInterval = b.config.RetryMaxInterval
	}
	bo.MaxElapsedTime = 0

	maxRetries := uint64(0)
	if client.RetryMaxAttempts > 1 {
		maxRetries = uint64(client.RetryMaxAttempts - 1)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
	if err != nil {
		delivery.DeliveryStatus = schema.WebhookDeliveryStatusFailed
		if uerr := b.store.UpdateWebhookDelivery(ctx, delivery); uerr != nil {
			logger.Error(uerr, zap.String("message", "Failed to update delivery record"))
		}
		logger.Error(err,
			zap.String("message", "Webhook delivery abandoned"),
			zap.String("client_id", client.ClientID),
			zap.String("event_id", event.EventID),
			zap.Int("attempts", attempts))
		return
	}

	logger.Info("Webhook delivered",
		zap.String("client_id", client.ClientID),
		zap.String("event_id", event.EventID),
		zap.Int("attempts", attempts))
}

// attemptDelivery performs a single signed HTTP delivery attempt
func (b *bridge) attemptDelivery(ctx context.Context, client *schema.WebhookClient, event webhook.WebhookEvent) (webhook.DeliveryResult, error) {
	payload, signature, timestamp, err := webhook.GenerateSignedPayload(client.WebhookSecret, event)
	if err != nil {
		// Unsignable payloads never become signable; stop retrying
		return webhook.DeliveryResult{Success: false, Error: err.Error()},
			backoff.Permanent(fmt.Errorf("failed to generate signed payload: %w", err))
	}

	headers := map[string]string{
		"Content-Type":         "application/json",
		"X-Webhook-Signature":  signature,
		"X-Webhook-Event-ID":   event.EventID,
		"X-Webhook-Event-Type": event.EventType,
		"X-Webhook-Timestamp":  fmt.Sprintf("%d", timestamp),
		"User-Agent":           "Biorbit-Webhook/1.0",
	}

	deliveryCtx := ctx
	if b.config.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		deliveryCtx, cancel = context.WithTimeout(ctx, b.config.DeliveryTimeout)
		defer cancel()
	}

	resp, err := b.httpClient.PostWithHeadersNoRetry(deliveryCtx, client.WebhookURL, headers, bytes.NewReader(payload))
	if err != nil {
		return webhook.DeliveryResult{Success: false, Error: err.Error()}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", zap.Error(err), zap.String("url", client.WebhookURL))
		}
	}()

	// Cap the response body read to keep misbehaving endpoints harmless
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		respBody = []byte{}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		return webhook.DeliveryResult{Success: false, StatusCode: resp.StatusCode, Body: string(respBody)}, err
	}

	return webhook.DeliveryResult{Success: true, StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}

// Close closes the bridge and cleans up resources
func (b *bridge) Close() {
	b.subscriber.Close()
}
