package alarm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// ErrNoClients is returned by a Launcher when no client could show the alarm.
var ErrNoClients = errors.New("alarm: no foreground client accepted the alarm")

// ForegroundDetector reports whether the presentation layer is in the foreground.
type ForegroundDetector interface {
	IsForeground() bool
}

// Launcher shows the alarm screen directly.
type Launcher interface {
	ShowAlarm(ctx context.Context, alert models.Alert) error
}

// Notifier posts a system notification.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Outcome is how an alert ended up being delivered.
type Outcome string

const (
	OutcomeAlarmScreen          Outcome = "alarm_screen"
	OutcomeNotification         Outcome = "notification"
	OutcomeNotificationFallback Outcome = "notification_fallback"
	OutcomeSkipped              Outcome = "skipped"
	OutcomeFailed               Outcome = "failed"
	// OutcomePublishFailed is recorded after routing, when the queued
	// notification never reached the broker.
	OutcomePublishFailed Outcome = "notification_publish_failed"
)

// RouterConfig holds routing policy.
type RouterConfig struct {
	ChannelID           string
	AlarmOnlyWhenActive bool // skip alerts whose snapshot has the alarm off
}

// Router decides between the alarm screen and a notification.
type Router struct {
	foreground ForegroundDetector
	launcher   Launcher
	notifier   Notifier
	config     RouterConfig
	logger     *zap.Logger
}

// NewRouter creates a router.
func NewRouter(fg ForegroundDetector, launcher Launcher, notifier Notifier, config RouterConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ChannelID == "" {
		config.ChannelID = DefaultChannelID
	}
	return &Router{
		foreground: fg,
		launcher:   launcher,
		notifier:   notifier,
		config:     config,
		logger:     logger,
	}
}

// Route delivers alert. In the foreground it tries the alarm screen and falls
// back to a notification on any error. In the background it notifies directly.
// An error is returned only when the notification could not be posted.
func (r *Router) Route(ctx context.Context, alert models.Alert) (Outcome, error) {
	if r.config.AlarmOnlyWhenActive && !alert.Snapshot.AlarmActive {
		return OutcomeSkipped, nil
	}

	if r.foreground.IsForeground() {
		err := r.launcher.ShowAlarm(ctx, alert)
		if err == nil {
			return OutcomeAlarmScreen, nil
		}
		r.logger.Warn("Failed to show alarm screen directly, posting notification",
			zap.String("alert_id", alert.ID),
			zap.Error(err))

		if err := r.notify(ctx, alert); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeNotificationFallback, nil
	}

	if err := r.notify(ctx, alert); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeNotification, nil
}

func (r *Router) notify(ctx context.Context, alert models.Alert) error {
	n := BuildNotification(alert, r.config.ChannelID)
	if err := r.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("failed to post notification for alert %s: %w", alert.ID, err)
	}
	return nil
}
