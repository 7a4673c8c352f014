package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// DecodeMessage parses an inbound push payload. Two shapes are accepted:
//
//	{"notification":{"title":..,"body":..},"data":{"temperature":"36.6",..}}
//	{"temperature":"36.6","prediction":"hungry",..}
//
// Scalar values that are not strings are converted to their string form so
// the ingestor sees the same flat string map either way.
func DecodeMessage(deviceID string, payload []byte, receivedAt time.Time) (models.InboundMessage, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return models.InboundMessage{}, fmt.Errorf("failed to decode push payload: %w", err)
	}

	msg := models.InboundMessage{
		DeviceID:   deviceID,
		Data:       make(map[string]string),
		ReceivedAt: receivedAt,
	}

	dataRaw, isEnvelope := raw["data"]
	notifRaw, hasNotification := raw["notification"]
	if !isEnvelope && !hasNotification {
		if err := flatten(raw, msg.Data); err != nil {
			return models.InboundMessage{}, err
		}
		return msg, nil
	}

	if hasNotification && !isNull(notifRaw) {
		var n models.NotificationContent
		if err := json.Unmarshal(notifRaw, &n); err != nil {
			return models.InboundMessage{}, fmt.Errorf("failed to decode notification block: %w", err)
		}
		msg.Notification = &n
	}

	if isEnvelope && !isNull(dataRaw) {
		var data map[string]json.RawMessage
		dec := json.NewDecoder(bytes.NewReader(dataRaw))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return models.InboundMessage{}, fmt.Errorf("failed to decode data block: %w", err)
		}
		if err := flatten(data, msg.Data); err != nil {
			return models.InboundMessage{}, err
		}
	}

	if id, ok := msg.Data["device_id"]; ok && msg.DeviceID == "" {
		msg.DeviceID = id
	}

	return msg, nil
}

func flatten(in map[string]json.RawMessage, out map[string]string) error {
	for key, value := range in {
		s, ok, err := scalarString(value)
		if err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		if ok {
			out[key] = s
		}
	}
	return nil
}

// scalarString reports false for null, objects and arrays; those keys are dropped.
func scalarString(value json.RawMessage) (string, bool, error) {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return "", false, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{', '[':
		return "", false, nil
	case 't', 'f':
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	default:
		return trimmed, true, nil
	}
}

func isNull(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "null"
}

// defaultDeviceSegment is used when the pattern has no "+" wildcard.
const defaultDeviceSegment = 1

// deviceSegment returns the index of the first "+" level in a topic pattern.
// Example: "home/infant/+/messages" -> 2
func deviceSegment(pattern string) int {
	for i, level := range strings.Split(pattern, "/") {
		if level == "+" {
			return i
		}
	}
	return defaultDeviceSegment
}

// extractDeviceID extracts device ID from MQTT topic level idx
// Example: ("infant/nursery-1/messages", 1) -> "nursery-1"
func extractDeviceID(topic string, idx int) string {
	parts := strings.Split(topic, "/")
	if idx >= 0 && idx < len(parts) {
		return parts[idx]
	}
	return ""
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	if deviceID == "" {
		deviceID = "all"
	}
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
