package jetstream

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biorbit/biorbit/internal/adapter"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeConn struct {
	closed bool
}

func (c *fakeConn) Close()               { c.closed = true }
func (c *fakeConn) LastError() error     { return nil }
func (c *fakeConn) ConnectedUrl() string { return "nats://fake:4222" }

type fakeJetStream struct {
	streams   []natsjs.StreamConfig
	streamErr error
	subjects  []string
}

func (j *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
	j.subjects = append(j.subjects, subject)
	return &natsjs.PubAck{}, nil
}

func (j *fakeJetStream) CreateOrUpdateStream(ctx context.Context, cfg natsjs.StreamConfig) error {
	j.streams = append(j.streams, cfg)
	return j.streamErr
}

func (j *fakeJetStream) CreateOrUpdateConsumer(ctx context.Context, stream string, cfg natsjs.ConsumerConfig) (adapter.Consumer, error) {
	return nil, errors.New("not implemented")
}

func (j *fakeJetStream) Consumer(ctx context.Context, stream string, consumer string) (adapter.Consumer, error) {
	return nil, errors.New("not implemented")
}

type fakeNatsJetStream struct {
	conn *fakeConn
	js   *fakeJetStream
}

func (n *fakeNatsJetStream) Connect(url string, options ...nats.Option) (adapter.NatsConn, adapter.JetStream, error) {
	return n.conn, n.js, nil
}

func testConfig() Config {
	return Config{
		URL:            "nats://fake:4222",
		StreamName:     "REGISTRY_EVENTS",
		MaxReconnects:  1,
		ReconnectWait:  time.Millisecond,
		ConnectionName: "test",
	}
}

func TestNewPublisherEnsuresStream(t *testing.T) {
	fake := &fakeNatsJetStream{conn: &fakeConn{}, js: &fakeJetStream{}}

	pub, err := NewPublisher(testConfig(), fake, adapter.NewJSON())
	require.NoError(t, err)
	defer pub.Close()

	require.Len(t, fake.js.streams, 1)
	assert.Equal(t, "REGISTRY_EVENTS", fake.js.streams[0].Name)
	assert.Equal(t, []string{"biorbit.events.>"}, fake.js.streams[0].Subjects)
}

func TestNewPublisherStreamFailureClosesConnection(t *testing.T) {
	fake := &fakeNatsJetStream{conn: &fakeConn{}, js: &fakeJetStream{streamErr: errors.New("no jetstream")}}

	_, err := NewPublisher(testConfig(), fake, adapter.NewJSON())
	require.Error(t, err)
	assert.True(t, fake.conn.closed)
}

func TestNewSubscriberEnsuresStream(t *testing.T) {
	fake := &fakeNatsJetStream{conn: &fakeConn{}, js: &fakeJetStream{}}

	sub, err := NewSubscriber(SubscriberConfig{
		Config:         testConfig(),
		ConsumerName:   "event-bridge",
		AckWaitTimeout: time.Second,
		MaxDeliver:     3,
	}, fake, adapter.NewJSON())
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, fake.js.streams, 1)
	assert.Equal(t, "REGISTRY_EVENTS", fake.js.streams[0].Name)
}

func TestPublishEventSubject(t *testing.T) {
	fake := &fakeNatsJetStream{conn: &fakeConn{}, js: &fakeJetStream{}}

	pub, err := NewPublisher(testConfig(), fake, adapter.NewJSON())
	require.NoError(t, err)
	defer pub.Close()

	ev, err := domain.NewEvent(ulid.Make().String(), domain.EventImageSold, uuid.NewString(), time.Now().UTC(), map[string]string{"image_id": "0"})
	require.NoError(t, err)

	require.NoError(t, pub.PublishEvent(context.Background(), ev))
	assert.Equal(t, []string{"biorbit.events.image.sold"}, fake.js.subjects)
}