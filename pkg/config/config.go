package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Service
	ServiceName string
	LogLevel    string
	LogFormat   string

	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicMessages      string
	MQTTTopicNotifications string

	// HTTP / WebSocket surface
	HTTPAddr        string
	AllowedOrigins  []string
	AlarmAckTimeout time.Duration

	// ClickHouse Configuration
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string

	// Store
	SubscriberQueueSize int

	// Alarm routing
	NotificationChannelID string
	AlarmOnlyWhenActive   bool
	EnqueueTimeout        time.Duration
	MessageChannelSize    int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "infant-guardian"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "infant-guardian"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		MQTTTopicMessages:      getEnv("MQTT_TOPIC_MESSAGES", "infant/+/messages"),
		MQTTTopicNotifications: getEnv("MQTT_TOPIC_NOTIFICATIONS", "infant/{device_id}/notifications"),

		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS"),
		AlarmAckTimeout: getEnvDuration("ALARM_ACK_TIMEOUT", 3*time.Second),

		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "infant"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),

		SubscriberQueueSize: getEnvInt("SUBSCRIBER_QUEUE_SIZE", 256),

		NotificationChannelID: getEnv("NOTIFICATION_CHANNEL_ID", "fcm_alarm_channel"),
		AlarmOnlyWhenActive:   getEnvBool("ALARM_ONLY_WHEN_ACTIVE", false),
		EnqueueTimeout:        getEnvDuration("ENQUEUE_TIMEOUT", time.Second),
		MessageChannelSize:    getEnvInt("MESSAGE_CHANNEL_SIZE", 100),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue <= 0 {
		log.Printf("Warning: failed to parse %s as positive int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}

// getEnvList splits a comma separated value, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
