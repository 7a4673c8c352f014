package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// Subscriber handles MQTT subscriptions and writes messages to channels
type Subscriber struct {
	client mqtt.Client
	logger *zap.Logger

	// Output channel (written by subscriber, read by the monitor service)
	MessageChan chan *models.InboundMessage

	messagesTopic  string
	deviceSegment  int
	enqueueTimeout time.Duration
	now            func() time.Time
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	MessagesTopic  string // e.g., "infant/+/messages"
	EnqueueTimeout time.Duration
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	messageChan chan *models.InboundMessage,
	logger *zap.Logger,
) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EnqueueTimeout <= 0 {
		config.EnqueueTimeout = time.Second
	}
	return &Subscriber{
		client:         client,
		logger:         logger,
		MessageChan:    messageChan,
		messagesTopic:  config.MessagesTopic,
		deviceSegment:  deviceSegment(config.MessagesTopic),
		enqueueTimeout: config.EnqueueTimeout,
		now:            time.Now,
	}
}

// SubscribeAll subscribes to all configured topics
func (s *Subscriber) SubscribeAll() error {
	if s.messagesTopic == "" {
		return fmt.Errorf("no messages topic configured")
	}

	return s.subscribe(s.client)
}

// Resubscribe restores the subscription after a reconnect. It is meant to be
// registered with Client.AddOnConnect.
func (s *Subscriber) Resubscribe(client mqtt.Client) {
	if s.messagesTopic == "" {
		return
	}
	if err := s.subscribe(client); err != nil {
		s.logger.Error("Failed to resubscribe after reconnect", zap.Error(err))
	}
}

func (s *Subscriber) subscribe(client mqtt.Client) error {
	token := client.Subscribe(s.messagesTopic, 1, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to messages topic: %w", token.Error())
	}
	s.logger.Info("Subscribed to messages topic", zap.String("topic", s.messagesTopic))
	return nil
}

// handleMessage decodes a push message and writes it to the channel
func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	s.Dispatch(msg.Topic(), msg.Payload())
}

// Dispatch decodes payload received on topic and enqueues it. It reports
// whether the message reached the channel.
func (s *Subscriber) Dispatch(topic string, payload []byte) bool {
	// Device ID sits where the pattern has its "+" (infant/+/messages)
	deviceID := extractDeviceID(topic, s.deviceSegment)

	inbound, err := DecodeMessage(deviceID, payload, s.now())
	if err != nil {
		s.logger.Warn("Error decoding push message", zap.String("topic", topic), zap.Error(err))
		return false
	}

	s.logger.Debug("Received push message",
		zap.String("device_id", inbound.DeviceID),
		zap.Int("fields", len(inbound.Data)))

	// Write to channel (non-blocking with timeout)
	select {
	case s.MessageChan <- &inbound:
		return true
	case <-time.After(s.enqueueTimeout):
		s.logger.Warn("Message channel full, dropping message", zap.String("device_id", inbound.DeviceID))
		return false
	}
}
