package mqtt

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Client manages the MQTT connection (low-level connection management only)
// For subscribing and publishing, use Subscriber and Publisher respectively
type Client struct {
	client mqtt.Client
	config ClientConfig
	logger *zap.Logger

	mu    sync.Mutex
	hooks []func(mqtt.Client)
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient creates a new MQTT client connection
func NewClient(config ClientConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		logger.Debug("MQTT: Received message on unhandled topic", zap.String("topic", msg.Topic()))
	})
	c := &Client{
		config: config,
		logger: logger,
	}

	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT: Connection lost", zap.Error(err))
	})
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	c.client = mqtt.NewClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("MQTT Client: Connected to broker", zap.String("broker", config.Broker))

	return c, nil
}

// AddOnConnect registers fn to run after every later (re)connect. With a
// clean session the broker forgets subscriptions when the link drops, so
// subscribers register here to restore them.
func (c *Client) AddOnConnect(fn func(mqtt.Client)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// handleConnect runs on paho's own goroutine, so hooks may block on tokens.
func (c *Client) handleConnect(client mqtt.Client) {
	c.logger.Info("MQTT: Connection established")

	c.mu.Lock()
	hooks := append([]func(mqtt.Client){}, c.hooks...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(client)
	}
}

// GetNativeClient returns the underlying paho MQTT client
// This is used by Subscriber and Publisher
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close closes the MQTT client connection
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT Client: Disconnected")
}
