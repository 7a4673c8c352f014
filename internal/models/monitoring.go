package models

import "time"

// Defaults used when a payload field is absent or malformed.
const (
	DefaultCryLabel      = "unknown"
	DefaultCryConfidence = 0.0
)

// SensorReading holds the latest sensor values pushed by the monitor.
type SensorReading struct {
	Temperature *float64 `json:"temperature"` // Celsius, nil when no reading yet
}

// CryDetection is the cry classifier result attached to a push message.
type CryDetection struct {
	Label      string  `json:"prediction"`
	Confidence float64 `json:"confidence"` // 0-1
	ObservedAt string  `json:"timestamp"`
}

// MonitoringSnapshot is one complete monitoring state. A new snapshot always
// replaces the previous one as a whole.
type MonitoringSnapshot struct {
	Sensors     SensorReading `json:"sensors"`
	Cry         CryDetection  `json:"babyCry"`
	AlarmActive bool          `json:"isAlarmActive"`
}

// DefaultSnapshot returns the all-defaults snapshot.
func DefaultSnapshot() MonitoringSnapshot {
	return MonitoringSnapshot{
		Cry: CryDetection{
			Label:      DefaultCryLabel,
			Confidence: DefaultCryConfidence,
		},
	}
}

// Temperature returns the temperature and whether a reading is present.
func (s MonitoringSnapshot) Temperature() (float64, bool) {
	if s.Sensors.Temperature == nil {
		return 0, false
	}
	return *s.Sensors.Temperature, true
}

// Clone returns a copy that shares no memory with s.
func (s MonitoringSnapshot) Clone() MonitoringSnapshot {
	if s.Sensors.Temperature != nil {
		t := *s.Sensors.Temperature
		s.Sensors.Temperature = &t
	}
	return s
}

// NotificationContent is the optional display block of a push message. A nil
// field is absent; an empty string is a value.
type NotificationContent struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

// InboundMessage is one push message as received from the transport.
type InboundMessage struct {
	DeviceID     string               `json:"device_id,omitempty"`
	Notification *NotificationContent `json:"notification,omitempty"`
	Data         map[string]string    `json:"data"`
	ReceivedAt   time.Time            `json:"received_at"`
}

// Alert carries everything needed to open the alarm screen.
type Alert struct {
	ID        string             `json:"id"`
	DeviceID  string             `json:"device_id,omitempty"`
	Title     string             `json:"title"`
	Body      string             `json:"body"`
	DataJSON  string             `json:"data_json"`
	Snapshot  MonitoringSnapshot `json:"snapshot"`
	CreatedAt time.Time          `json:"created_at"`
}
