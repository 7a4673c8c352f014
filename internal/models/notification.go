package models

// AlarmIntent is the payload a notification hands back to the alarm screen.
type AlarmIntent struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	DataJSON string `json:"data_json"`
}

// Notification is an outbound system notification for a background client.
type Notification struct {
	AlertID          string      `json:"alert_id"`
	DeviceID         string      `json:"device_id,omitempty"`
	ChannelID        string      `json:"channel_id"`
	Title            string      `json:"title"`
	Body             string      `json:"body"`
	Priority         string      `json:"priority"`
	Category         string      `json:"category"`
	AutoCancel       bool        `json:"auto_cancel"`
	VibratePattern   []int64     `json:"vibrate_pattern"` // milliseconds
	Sound            string      `json:"sound"`
	TapAction        AlarmIntent `json:"tap_action"`
	FullScreenAction AlarmIntent `json:"full_screen_action"`
}

// RouteRecord is the logged result of routing one alert.
type RouteRecord struct {
	AlertID     string `json:"alert_id"`
	DeviceID    string `json:"device_id,omitempty"`
	Outcome     string `json:"outcome"`
	AlarmActive bool   `json:"alarm_active"`
	Error       string `json:"error,omitempty"`
}
