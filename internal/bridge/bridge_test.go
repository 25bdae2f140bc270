package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biorbit/biorbit/internal/adapter"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/logger"
	"github.com/biorbit/biorbit/internal/messaging"
	"github.com/biorbit/biorbit/internal/store"
	"github.com/biorbit/biorbit/internal/store/schema"
	"github.com/biorbit/biorbit/internal/webhook"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeSubscriber replays a fixed batch of events through the handler
type fakeSubscriber struct {
	events []*domain.Event
}

func (s *fakeSubscriber) SubscribeEvents(ctx context.Context, handler messaging.EventHandler) error {
	for _, ev := range s.events {
		if err := handler(ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeSubscriber) Close() {}

type recordedRequest struct {
	url     string
	headers map[string]string
	body    []byte
}

// fakeHTTPClient returns scripted status codes per successive call and
// records every request it sees
type fakeHTTPClient struct {
	mu       sync.Mutex
	statuses []int
	requests []recordedRequest
}

func (c *fakeHTTPClient) PostWithHeadersNoRetry(ctx context.Context, url string, headers map[string]string, body io.Reader) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	c.requests = append(c.requests, recordedRequest{url: url, headers: headers, body: raw})

	status := http.StatusOK
	if len(c.statuses) > 0 {
		status = c.statuses[0]
		if len(c.statuses) > 1 {
			c.statuses = c.statuses[1:]
		}
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("ok")),
	}, nil
}

func (c *fakeHTTPClient) recorded() []recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]recordedRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// recordingStore captures delivery audit rows created by the bridge. The
// bridge mutates the same record across attempts, so the captured pointers
// hold the final outcome once the worker pool drains.
type recordingStore struct {
	store.Store

	mu         sync.Mutex
	deliveries []*schema.WebhookDelivery
}

func (s *recordingStore) CreateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error {
	s.mu.Lock()
	s.deliveries = append(s.deliveries, delivery)
	s.mu.Unlock()
	return s.Store.CreateWebhookDelivery(ctx, delivery)
}

func (s *recordingStore) created() []*schema.WebhookDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.WebhookDelivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

const testSecret = "746573742d7365637265742d6b6579"

func testClient(t *testing.T, st store.Store, filters []string, maxAttempts int, active bool) *schema.WebhookClient {
	t.Helper()
	raw, err := json.Marshal(filters)
	require.NoError(t, err)
	client := &schema.WebhookClient{
		ClientID:         uuid.NewString(),
		WebhookURL:       "https://observer.example.com/hooks",
		WebhookSecret:    testSecret,
		EventFilters:     raw,
		IsActive:         active,
		RetryMaxAttempts: maxAttempts,
	}
	require.NoError(t, st.CreateWebhookClient(context.Background(), client))
	return client
}

func soldEvent(t *testing.T) *domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(ulid.Make().String(), domain.EventImageSold, uuid.NewString(), time.Now().UTC(), map[string]string{
		"image_id": "0",
		"buyer":    "0x00000000000000000000000000000000000000A1",
	})
	require.NoError(t, err)
	return ev
}

func newTestBridge(subscriber messaging.Subscriber, st store.Store, httpClient adapter.HTTPClient) Bridge {
	return NewBridge(Config{
		WorkerPoolSize:       2,
		WorkerQueueSize:      16,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
	}, subscriber, st, httpClient, adapter.NewJSON(), adapter.NewClock())
}

func TestClientWantsEvent(t *testing.T) {
	filters := func(t *testing.T, list []string) schema.WebhookClient {
		raw, err := json.Marshal(list)
		require.NoError(t, err)
		return schema.WebhookClient{EventFilters: raw}
	}

	wildcard := filters(t, []string{"*"})
	assert.True(t, clientWantsEvent(&wildcard, "image.sold"))

	exact := filters(t, []string{"area.registered", "image.sold"})
	assert.True(t, clientWantsEvent(&exact, "image.sold"))
	assert.False(t, clientWantsEvent(&exact, "image.minted"))

	malformed := schema.WebhookClient{EventFilters: []byte("not-json")}
	assert.False(t, clientWantsEvent(&malformed, "image.sold"))
}

func TestBridgeDeliversToMatchingClients(t *testing.T) {
	st := &recordingStore{Store: store.NewMemoryStore()}
	ctx := context.Background()

	wildcardClient := testClient(t, st, []string{"*"}, 1, true)
	testClient(t, st, []string{"area.registered"}, 1, true)
	testClient(t, st, []string{"*"}, 1, false)

	event := soldEvent(t)
	httpClient := &fakeHTTPClient{}
	b := newTestBridge(&fakeSubscriber{events: []*domain.Event{event}}, st, httpClient)

	require.NoError(t, b.Run(ctx))

	requests := httpClient.recorded()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, wildcardClient.WebhookURL, req.url)
	assert.Equal(t, "application/json", req.headers["Content-Type"])
	assert.Equal(t, event.EventID, req.headers["X-Webhook-Event-ID"])
	assert.Equal(t, "image.sold", req.headers["X-Webhook-Event-Type"])

	// The recipient must be able to verify the payload with its secret
	timestamp, err := strconv.ParseInt(req.headers["X-Webhook-Timestamp"], 10, 64)
	require.NoError(t, err)
	ok, err := webhook.VerifySignature(testSecret, req.headers["X-Webhook-Signature"], timestamp, event.EventID, req.body)
	require.NoError(t, err)
	assert.True(t, ok)

	deliveries := st.created()
	require.Len(t, deliveries, 1)
	delivery := deliveries[0]
	assert.Equal(t, wildcardClient.ClientID, delivery.ClientID)
	assert.Equal(t, event.EventID, delivery.EventID)
	assert.Equal(t, schema.WebhookDeliveryStatusSuccess, delivery.DeliveryStatus)
	assert.Equal(t, 1, delivery.Attempts)
	require.NotNil(t, delivery.ResponseStatus)
	assert.Equal(t, http.StatusOK, *delivery.ResponseStatus)
	assert.NotNil(t, delivery.LastAttemptAt)
}

func TestBridgeRetriesFailedDeliveries(t *testing.T) {
	st := &recordingStore{Store: store.NewMemoryStore()}
	client := testClient(t, st, []string{"image.sold"}, 5, true)

	httpClient := &fakeHTTPClient{statuses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusOK}}
	b := newTestBridge(&fakeSubscriber{events: []*domain.Event{soldEvent(t)}}, st, httpClient)

	require.NoError(t, b.Run(context.Background()))

	require.Len(t, httpClient.recorded(), 3)

	deliveries := st.created()
	require.Len(t, deliveries, 1)
	assert.Equal(t, client.ClientID, deliveries[0].ClientID)
	assert.Equal(t, schema.WebhookDeliveryStatusSuccess, deliveries[0].DeliveryStatus)
	assert.Equal(t, 3, deliveries[0].Attempts)
	assert.Empty(t, deliveries[0].ErrorMessage)
}

func TestBridgeAbandonsAfterMaxAttempts(t *testing.T) {
	st := &recordingStore{Store: store.NewMemoryStore()}
	testClient(t, st, []string{"*"}, 2, true)

	httpClient := &fakeHTTPClient{statuses: []int{http.StatusInternalServerError}}
	b := newTestBridge(&fakeSubscriber{events: []*domain.Event{soldEvent(t)}}, st, httpClient)

	require.NoError(t, b.Run(context.Background()))

	require.Len(t, httpClient.recorded(), 2)

	deliveries := st.created()
	require.Len(t, deliveries, 1)
	assert.Equal(t, schema.WebhookDeliveryStatusFailed, deliveries[0].DeliveryStatus)
	assert.Equal(t, 2, deliveries[0].Attempts)
	assert.Equal(t, "HTTP 500", deliveries[0].ErrorMessage)
	require.NotNil(t, deliveries[0].ResponseStatus)
	assert.Equal(t, http.StatusInternalServerError, *deliveries[0].ResponseStatus)
}

func TestBridgeFansOutMultipleEvents(t *testing.T) {
	st := &recordingStore{Store: store.NewMemoryStore()}
	testClient(t, st, []string{"*"}, 1, true)

	events := []*domain.Event{soldEvent(t), soldEvent(t), soldEvent(t)}
	httpClient := &fakeHTTPClient{}
	b := newTestBridge(&fakeSubscriber{events: events}, st, httpClient)

	require.NoError(t, b.Run(context.Background()))

	assert.Len(t, httpClient.recorded(), 3)
	deliveries := st.created()
	require.Len(t, deliveries, 3)
	for _, d := range deliveries {
		assert.Equal(t, schema.WebhookDeliveryStatusSuccess, d.DeliveryStatus)
	}
}
