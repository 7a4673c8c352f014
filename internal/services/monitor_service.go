package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/alarm"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/ingest"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// ErrMessageQueueFull is returned by Submit when the message channel stays full.
var ErrMessageQueueFull = errors.New("services: message queue full")

// AlertRouter delivers an alert to the presentation layer.
type AlertRouter interface {
	Route(ctx context.Context, alert models.Alert) (alarm.Outcome, error)
}

// RouteRecorder stores routing outcomes.
type RouteRecorder interface {
	RecordRoute(ctx context.Context, record models.RouteRecord)
}

// MonitorService turns inbound push messages into store updates and alerts
type MonitorService struct {
	ingestor *ingest.Ingestor
	router   AlertRouter
	recorder RouteRecorder
	logger   *zap.Logger

	// Input channel from MQTT subscriber and HTTP API
	MessageChan chan *models.InboundMessage

	enqueueTimeout time.Duration
}

// MonitorServiceConfig holds configuration for monitor service
type MonitorServiceConfig struct {
	MessageChannelSize int
	EnqueueTimeout     time.Duration
}

// DefaultMonitorServiceConfig returns default configuration
func DefaultMonitorServiceConfig() MonitorServiceConfig {
	return MonitorServiceConfig{
		MessageChannelSize: 100,
		EnqueueTimeout:     time.Second,
	}
}

// NewMonitorService creates a new monitor service. recorder may be nil.
func NewMonitorService(
	ingestor *ingest.Ingestor,
	router AlertRouter,
	recorder RouteRecorder,
	config MonitorServiceConfig,
	logger *zap.Logger,
) *MonitorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MessageChannelSize <= 0 {
		config.MessageChannelSize = DefaultMonitorServiceConfig().MessageChannelSize
	}
	if config.EnqueueTimeout <= 0 {
		config.EnqueueTimeout = DefaultMonitorServiceConfig().EnqueueTimeout
	}
	return &MonitorService{
		ingestor:       ingestor,
		router:         router,
		recorder:       recorder,
		logger:         logger,
		MessageChan:    make(chan *models.InboundMessage, config.MessageChannelSize),
		enqueueTimeout: config.EnqueueTimeout,
	}
}

// Submit queues msg for processing.
func (s *MonitorService) Submit(ctx context.Context, msg *models.InboundMessage) error {
	select {
	case s.MessageChan <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.enqueueTimeout):
		return ErrMessageQueueFull
	}
}

// Start processes messages until the context is cancelled.
// Messages are handled one at a time, so publishes never race.
func (s *MonitorService) Start(ctx context.Context) {
	s.logger.Info("MonitorService: Starting...")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("MonitorService: Shutting down...")
			return
		case msg, ok := <-s.MessageChan:
			if !ok {
				s.logger.Info("MonitorService: Channel closed, shutting down...")
				return
			}
			s.HandleMessage(ctx, msg)
		}
	}
}

// HandleMessage ingests one message and routes the resulting alert.
func (s *MonitorService) HandleMessage(ctx context.Context, msg *models.InboundMessage) alarm.Outcome {
	snap := s.ingestor.Ingest(msg.Data)
	alert := s.ingestor.BuildAlert(*msg, snap)

	temp, hasTemp := snap.Temperature()
	s.logger.Info("Snapshot published",
		zap.String("device_id", msg.DeviceID),
		zap.Bool("has_temperature", hasTemp),
		zap.Float64("temperature", temp),
		zap.String("cry_label", snap.Cry.Label),
		zap.Float64("cry_confidence", snap.Cry.Confidence),
		zap.Bool("alarm_active", snap.AlarmActive))

	outcome, err := s.router.Route(ctx, alert)
	record := models.RouteRecord{
		AlertID:     alert.ID,
		DeviceID:    alert.DeviceID,
		Outcome:     string(outcome),
		AlarmActive: snap.AlarmActive,
	}
	if err != nil {
		record.Error = err.Error()
		s.logger.Error("Failed to deliver alert", zap.String("alert_id", alert.ID), zap.Error(err))
	} else {
		s.logger.Info("Alert routed", zap.String("alert_id", alert.ID), zap.String("outcome", string(outcome)))
	}

	if s.recorder != nil {
		s.recorder.RecordRoute(ctx, record)
	}
	return outcome
}
