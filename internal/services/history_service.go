package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/alarm"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/store"
)

// HistoryWriter persists snapshots and routing outcomes.
type HistoryWriter interface {
	SaveSnapshot(ctx context.Context, at time.Time, snap models.MonitoringSnapshot) error
	SaveRoute(ctx context.Context, at time.Time, record models.RouteRecord) error
}

// HistoryService records every published snapshot. The store itself keeps
// nothing; this is a plain subscriber.
type HistoryService struct {
	store  *store.Store
	writer HistoryWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewHistoryService creates a new history service
func NewHistoryService(s *store.Store, writer HistoryWriter, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{store: s, writer: writer, logger: logger, now: time.Now}
}

// Start records snapshots until the context is cancelled.
func (h *HistoryService) Start(ctx context.Context) {
	h.logger.Info("HistoryService: Starting...")

	err := h.store.Watch(ctx, func(snap models.MonitoringSnapshot) {
		if err := h.writer.SaveSnapshot(ctx, h.now(), snap); err != nil {
			h.logger.Error("Error saving snapshot", zap.Error(err))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("HistoryService: Stopped", zap.Error(err))
		return
	}
	h.logger.Info("HistoryService: Shutting down...")
}

// RecordPublishFailure records a notification the broker did not accept
// against its alert. It fits mqtt.Publisher.OnPublishFailure.
func (h *HistoryService) RecordPublishFailure(ctx context.Context, n models.Notification, err error) {
	record := models.RouteRecord{
		AlertID:  n.AlertID,
		DeviceID: n.DeviceID,
		Outcome:  string(alarm.OutcomePublishFailed),
	}
	if err != nil {
		record.Error = err.Error()
	}
	h.RecordRoute(ctx, record)
}

// RecordRoute implements RouteRecorder.
func (h *HistoryService) RecordRoute(ctx context.Context, record models.RouteRecord) {
	if err := h.writer.SaveRoute(ctx, h.now(), record); err != nil {
		h.logger.Error("Error saving alarm route", zap.String("alert_id", record.AlertID), zap.Error(err))
	}
}
