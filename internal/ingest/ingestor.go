package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// Payload keys recognized in an inbound message.
const (
	KeyTemperature = "temperature"
	KeyPrediction  = "prediction"
	KeyConfidence  = "confidence"
	KeyTimestamp   = "timestamp"
	KeyAlarmActive = "isAlarmActive"
	KeyTitle       = "title"
	KeyBody        = "body"
)

// DefaultAlertTitle is used when neither the notification block nor the
// data payload carries a title.
const DefaultAlertTitle = "Monitoring Alert"

// Publisher receives every snapshot the ingestor builds.
type Publisher interface {
	Publish(models.MonitoringSnapshot)
}

// Ingestor turns raw push payloads into snapshots and publishes them.
type Ingestor struct {
	store  Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewIngestor creates an ingestor publishing to store.
func NewIngestor(store Publisher, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: store, logger: logger, now: time.Now}
}

// Ingest parses payload and replaces the store value with the result.
func (in *Ingestor) Ingest(payload map[string]string) models.MonitoringSnapshot {
	snap := in.parse(payload)
	in.store.Publish(snap)
	return snap
}

// Parse builds a snapshot from payload. It never fails: every field falls
// back to its default on its own when absent or malformed.
func Parse(payload map[string]string) models.MonitoringSnapshot {
	return (&Ingestor{logger: zap.NewNop()}).parse(payload)
}

func (in *Ingestor) parse(payload map[string]string) models.MonitoringSnapshot {
	snap := models.DefaultSnapshot()

	if raw, ok := payload[KeyTemperature]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			snap.Sensors.Temperature = &v
		} else {
			in.logger.Debug("Ignoring malformed temperature", zap.String("value", raw))
		}
	}

	if label, ok := payload[KeyPrediction]; ok {
		snap.Cry.Label = label
	}

	if raw, ok := payload[KeyConfidence]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && v >= 0 && v <= 1 {
			snap.Cry.Confidence = v
		} else {
			in.logger.Debug("Ignoring malformed confidence", zap.String("value", raw))
		}
	}

	if ts, ok := payload[KeyTimestamp]; ok {
		snap.Cry.ObservedAt = ts
	}

	// only a case-insensitive "true" enables the alarm
	if raw, ok := payload[KeyAlarmActive]; ok {
		snap.AlarmActive = strings.EqualFold(strings.TrimSpace(raw), "true")
	}

	return snap
}

// BuildAlert assembles the alarm-screen payload for msg.
func (in *Ingestor) BuildAlert(msg models.InboundMessage, snap models.MonitoringSnapshot) models.Alert {
	dataJSON := EncodeData(msg.Data)

	var notifTitle, notifBody *string
	if msg.Notification != nil {
		notifTitle, notifBody = msg.Notification.Title, msg.Notification.Body
	}
	title := firstPresent(notifTitle, msg.Data, KeyTitle, DefaultAlertTitle)
	body := firstPresent(notifBody, msg.Data, KeyBody, dataJSON)

	createdAt := msg.ReceivedAt
	if createdAt.IsZero() {
		createdAt = in.now()
	}

	return models.Alert{
		ID:        uuid.NewString(),
		DeviceID:  msg.DeviceID,
		Title:     title,
		Body:      body,
		DataJSON:  dataJSON,
		Snapshot:  snap,
		CreatedAt: createdAt,
	}
}

// firstPresent picks the notification value, then data[key], then def. Only
// absence falls through; an empty string still wins.
func firstPresent(notif *string, data map[string]string, key, def string) string {
	if notif != nil {
		return *notif
	}
	if v, ok := data[key]; ok {
		return v
	}
	return def
}

// EncodeData renders the data payload as a JSON object, "{}" when empty.
func EncodeData(data map[string]string) string {
	if len(data) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
