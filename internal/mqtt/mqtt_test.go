package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

// fakeClient records publishes and subscribes; other methods panic via the nil embedded interface.
type fakeClient struct {
	pahomqtt.Client

	mu         sync.Mutex
	published  map[string][]byte
	subscribed []string
	err        error
	subErr     error
}

func (c *fakeClient) Subscribe(topic string, _ byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = append(c.subscribed, topic)
	return doneToken{err: c.subErr}
}

func (c *fakeClient) subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.subscribed...)
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.published == nil {
		c.published = make(map[string][]byte)
	}
	c.published[topic] = payload.([]byte)
	return doneToken{err: c.err}
}

func (c *fakeClient) get(topic string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.published[topic]
	return p, ok
}

var received = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

func TestDecodeMessage_FlatPayload(t *testing.T) {
	msg, err := DecodeMessage("nursery-1", []byte(`{"temperature":36.6,"prediction":"hungry","isAlarmActive":true,"confidence":"0.9","extra":{"a":1},"gone":null}`), received)
	require.NoError(t, err)

	assert.Equal(t, "nursery-1", msg.DeviceID)
	assert.Nil(t, msg.Notification)
	assert.Equal(t, map[string]string{
		"temperature":   "36.6",
		"prediction":    "hungry",
		"isAlarmActive": "true",
		"confidence":    "0.9",
	}, msg.Data)
	assert.Equal(t, received, msg.ReceivedAt)
}

func TestDecodeMessage_Envelope(t *testing.T) {
	payload := `{"notification":{"title":"Baby crying","body":"Check the nursery"},"data":{"temperature":"37.1","device_id":"crib-7"}}`
	msg, err := DecodeMessage("", []byte(payload), received)
	require.NoError(t, err)

	require.NotNil(t, msg.Notification)
	require.NotNil(t, msg.Notification.Title)
	assert.Equal(t, "Baby crying", *msg.Notification.Title)
	assert.Equal(t, "37.1", msg.Data["temperature"])
	assert.Equal(t, "crib-7", msg.DeviceID)
}

func TestDecodeMessage_NotificationFieldPresence(t *testing.T) {
	msg, err := DecodeMessage("nursery-1", []byte(`{"notification":{"title":"","body":null},"data":{}}`), received)
	require.NoError(t, err)

	require.NotNil(t, msg.Notification)
	require.NotNil(t, msg.Notification.Title)
	assert.Equal(t, "", *msg.Notification.Title)
	assert.Nil(t, msg.Notification.Body)
}

func TestDecodeMessage_EmptyObject(t *testing.T) {
	msg, err := DecodeMessage("nursery-1", []byte(`{}`), received)
	require.NoError(t, err)
	assert.Empty(t, msg.Data)
}

func TestDecodeMessage_Invalid(t *testing.T) {
	_, err := DecodeMessage("nursery-1", []byte(`not json`), received)
	assert.Error(t, err)

	_, err = DecodeMessage("nursery-1", []byte(`{"data":"flat string"}`), received)
	assert.Error(t, err)
}

func TestExtractDeviceID(t *testing.T) {
	assert.Equal(t, "nursery-1", extractDeviceID("infant/nursery-1/messages", 1))
	assert.Equal(t, "nursery-1", extractDeviceID("home/infant/nursery-1/messages", 2))
	assert.Equal(t, "", extractDeviceID("messages", 1))
	assert.Equal(t, "", extractDeviceID("infant/nursery-1", 5))
}

func TestDeviceSegment(t *testing.T) {
	assert.Equal(t, 1, deviceSegment("infant/+/messages"))
	assert.Equal(t, 2, deviceSegment("home/infant/+/messages"))
	assert.Equal(t, 0, deviceSegment("+/push"))
	assert.Equal(t, defaultDeviceSegment, deviceSegment("infant/nursery-1/messages"))
	assert.Equal(t, defaultDeviceSegment, deviceSegment(""))
}

func TestFormatTopic(t *testing.T) {
	assert.Equal(t, "infant/nursery-1/notifications", formatTopic("infant/{device_id}/notifications", "nursery-1"))
	assert.Equal(t, "infant/all/notifications", formatTopic("infant/{device_id}/notifications", ""))
}

func TestSubscriber_DispatchEnqueues(t *testing.T) {
	ch := make(chan *models.InboundMessage, 1)
	sub := NewSubscriber(nil, SubscriberConfig{MessagesTopic: "infant/+/messages"}, ch, zap.NewNop())

	ok := sub.Dispatch("infant/nursery-1/messages", []byte(`{"temperature":"36.6"}`))
	require.True(t, ok)

	msg := <-ch
	assert.Equal(t, "nursery-1", msg.DeviceID)
	assert.Equal(t, "36.6", msg.Data["temperature"])
}

func TestSubscriber_DispatchUsesPatternWildcard(t *testing.T) {
	ch := make(chan *models.InboundMessage, 1)
	sub := NewSubscriber(nil, SubscriberConfig{MessagesTopic: "home/infant/+/messages"}, ch, zap.NewNop())

	require.True(t, sub.Dispatch("home/infant/nursery-1/messages", []byte(`{}`)))
	msg := <-ch
	assert.Equal(t, "nursery-1", msg.DeviceID)
}

func TestClient_ReconnectResubscribes(t *testing.T) {
	client := &fakeClient{}
	sub := NewSubscriber(client, SubscriberConfig{MessagesTopic: "infant/+/messages"}, make(chan *models.InboundMessage, 1), zap.NewNop())
	require.NoError(t, sub.SubscribeAll())

	c := &Client{client: client, logger: zap.NewNop()}
	c.AddOnConnect(sub.Resubscribe)

	// two reconnects after the initial subscribe
	c.handleConnect(client)
	c.handleConnect(client)

	assert.Equal(t, []string{"infant/+/messages", "infant/+/messages", "infant/+/messages"}, client.subscriptions())
}

func TestSubscriber_ResubscribeLogsFailure(t *testing.T) {
	client := &fakeClient{subErr: errors.New("not authorized")}
	sub := NewSubscriber(client, SubscriberConfig{MessagesTopic: "infant/+/messages"}, make(chan *models.InboundMessage, 1), zap.NewNop())

	assert.NotPanics(t, func() { sub.Resubscribe(client) })
	assert.Len(t, client.subscriptions(), 1)
}

func TestSubscriber_DispatchDropsWhenFull(t *testing.T) {
	ch := make(chan *models.InboundMessage)
	sub := NewSubscriber(nil, SubscriberConfig{EnqueueTimeout: 10 * time.Millisecond}, ch, nil)

	assert.False(t, sub.Dispatch("infant/nursery-1/messages", []byte(`{}`)))
	assert.False(t, sub.Dispatch("infant/nursery-1/messages", []byte(`broken`)))
}

func TestPublisher_NotifyAndPublish(t *testing.T) {
	client := &fakeClient{}
	ch := make(chan *models.Notification, 1)
	pub := NewPublisher(client, PublisherConfig{NotificationTopic: "infant/{device_id}/notifications"}, ch, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Start(ctx)

	n := models.Notification{AlertID: "alert-1", DeviceID: "nursery-1", Title: "Baby crying"}
	require.NoError(t, pub.Notify(ctx, n))

	require.Eventually(t, func() bool {
		_, ok := client.get("infant/nursery-1/notifications")
		return ok
	}, time.Second, 10*time.Millisecond)

	raw, _ := client.get("infant/nursery-1/notifications")
	var got models.Notification
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "alert-1", got.AlertID)
	assert.Equal(t, "Baby crying", got.Title)
}

func TestPublisher_ReportsPublishFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	ch := make(chan *models.Notification, 1)
	pub := NewPublisher(client, PublisherConfig{NotificationTopic: "infant/{device_id}/notifications"}, ch, zap.NewNop())

	type failure struct {
		n   models.Notification
		err error
	}
	failures := make(chan failure, 1)
	pub.OnPublishFailure(func(n models.Notification, err error) {
		failures <- failure{n: n, err: err}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Start(ctx)

	require.NoError(t, pub.Notify(ctx, models.Notification{AlertID: "alert-1", DeviceID: "nursery-1"}))

	select {
	case f := <-failures:
		assert.Equal(t, "alert-1", f.n.AlertID)
		assert.Equal(t, "nursery-1", f.n.DeviceID)
		assert.ErrorContains(t, f.err, "not connected")
	case <-time.After(time.Second):
		t.Fatal("publish failure was not reported")
	}
}

func TestPublisher_NotifyQueueFull(t *testing.T) {
	ch := make(chan *models.Notification)
	pub := NewPublisher(&fakeClient{}, PublisherConfig{EnqueueTimeout: 10 * time.Millisecond}, ch, nil)

	err := pub.Notify(context.Background(), models.Notification{AlertID: "alert-1"})
	assert.True(t, errors.Is(err, ErrQueueFull))
}
