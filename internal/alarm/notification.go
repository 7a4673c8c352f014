package alarm

import "github.com/vishmithSuranjaya/InfantGuardian/internal/models"

const (
	DefaultChannelID = "fcm_alarm_channel"

	PriorityMax   = "max"
	CategoryAlarm = "alarm"
)

// BuildNotification renders alert as an alarm notification. Tapping it, or
// the full-screen action on a locked device, opens the alarm screen with the
// same payload.
func BuildNotification(alert models.Alert, channelID string) models.Notification {
	intent := models.AlarmIntent{
		Title:    alert.Title,
		Body:     alert.Body,
		DataJSON: alert.DataJSON,
	}

	return models.Notification{
		AlertID:          alert.ID,
		DeviceID:         alert.DeviceID,
		ChannelID:        channelID,
		Title:            alert.Title,
		Body:             alert.Body,
		Priority:         PriorityMax,
		Category:         CategoryAlarm,
		AutoCancel:       true,
		VibratePattern:   []int64{0, 1000, 500, 1000},
		Sound:            string(SoundSystemNotification),
		TapAction:        intent,
		FullScreenAction: intent,
	}
}
