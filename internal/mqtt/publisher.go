package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// ErrQueueFull is returned by Notify when the notification channel stays full.
var ErrQueueFull = errors.New("mqtt: notification queue full")

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client
	logger *zap.Logger

	// Input channel (read by publisher, written by Notify)
	NotificationChan chan *models.Notification

	// Topic pattern
	notificationTopic string // e.g., "infant/{device_id}/notifications"
	enqueueTimeout    time.Duration

	onFailure func(models.Notification, error)
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	NotificationTopic string // e.g., "infant/{device_id}/notifications"
	EnqueueTimeout    time.Duration
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	notificationChan chan *models.Notification,
	logger *zap.Logger,
) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EnqueueTimeout <= 0 {
		config.EnqueueTimeout = time.Second
	}
	return &Publisher{
		client:            client,
		logger:            logger,
		NotificationChan:  notificationChan,
		notificationTopic: config.NotificationTopic,
		enqueueTimeout:    config.EnqueueTimeout,
	}
}

// OnPublishFailure sets fn to receive every notification the broker did not
// accept. Set it before Start.
func (p *Publisher) OnPublishFailure(fn func(models.Notification, error)) {
	p.onFailure = fn
}

// Notify queues n for publishing. It implements alarm.Notifier.
func (p *Publisher) Notify(ctx context.Context, n models.Notification) error {
	select {
	case p.NotificationChan <- &n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.enqueueTimeout):
		return ErrQueueFull
	}
}

// Start begins publishing notifications from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("MQTT Publisher: Context cancelled, shutting down...")
			return

		case n, ok := <-p.NotificationChan:
			if !ok {
				p.logger.Info("MQTT Publisher: Notification channel closed, shutting down...")
				return
			}

			if err := p.publishNotification(n); err != nil {
				p.logger.Error("Error publishing notification", zap.String("alert_id", n.AlertID), zap.Error(err))
				if p.onFailure != nil {
					p.onFailure(*n, err)
				}
			}
		}
	}
}

// publishNotification publishes a notification to the device topic
func (p *Publisher) publishNotification(n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	topic := formatTopic(p.notificationTopic, n.DeviceID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish notification: %w", token.Error())
	}

	p.logger.Info("Published notification",
		zap.String("alert_id", n.AlertID),
		zap.String("topic", topic))
	return nil
}
