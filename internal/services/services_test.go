package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/alarm"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/ingest"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/store"
)

type fakeRouter struct {
	outcome alarm.Outcome
	err     error
	alerts  []models.Alert
}

func (r *fakeRouter) Route(_ context.Context, alert models.Alert) (alarm.Outcome, error) {
	r.alerts = append(r.alerts, alert)
	return r.outcome, r.err
}

type memoryHistory struct {
	mu        sync.Mutex
	snapshots []models.MonitoringSnapshot
	routes    []models.RouteRecord
}

func (m *memoryHistory) SaveSnapshot(_ context.Context, _ time.Time, snap models.MonitoringSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *memoryHistory) SaveRoute(_ context.Context, _ time.Time, record models.RouteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, record)
	return nil
}

func (m *memoryHistory) snapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

func TestMonitorService_HandleMessage(t *testing.T) {
	s := store.New()
	router := &fakeRouter{outcome: alarm.OutcomeNotification}
	history := &memoryHistory{}
	recorder := NewHistoryService(s, history, zap.NewNop())
	svc := NewMonitorService(ingest.NewIngestor(s, nil), router, recorder, DefaultMonitorServiceConfig(), zap.NewNop())

	msg := &models.InboundMessage{
		DeviceID: "nursery-1",
		Data:     map[string]string{"temperature": "36.6", "prediction": "hungry", "isAlarmActive": "true"},
	}
	outcome := svc.HandleMessage(context.Background(), msg)
	assert.Equal(t, alarm.OutcomeNotification, outcome)

	temp, ok := s.Current().Temperature()
	require.True(t, ok)
	assert.Equal(t, 36.6, temp)

	require.Len(t, router.alerts, 1)
	assert.Equal(t, "nursery-1", router.alerts[0].DeviceID)
	assert.True(t, router.alerts[0].Snapshot.AlarmActive)

	require.Len(t, history.routes, 1)
	assert.Equal(t, "notification", history.routes[0].Outcome)
	assert.Empty(t, history.routes[0].Error)
}

func TestMonitorService_RecordsRoutingFailure(t *testing.T) {
	s := store.New()
	router := &fakeRouter{outcome: alarm.OutcomeFailed, err: errors.New("broker down")}
	history := &memoryHistory{}
	svc := NewMonitorService(ingest.NewIngestor(s, nil), router, NewHistoryService(s, history, nil), MonitorServiceConfig{}, nil)

	svc.HandleMessage(context.Background(), &models.InboundMessage{Data: map[string]string{}})

	require.Len(t, history.routes, 1)
	assert.Equal(t, "failed", history.routes[0].Outcome)
	assert.Equal(t, "broker down", history.routes[0].Error)
	assert.Equal(t, models.DefaultSnapshot(), s.Current())
}

func TestMonitorService_StartProcessesSubmitted(t *testing.T) {
	s := store.New()
	router := &fakeRouter{outcome: alarm.OutcomeAlarmScreen}
	svc := NewMonitorService(ingest.NewIngestor(s, nil), router, nil, DefaultMonitorServiceConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	require.NoError(t, svc.Submit(ctx, &models.InboundMessage{Data: map[string]string{"prediction": "tired"}}))

	require.Eventually(t, func() bool {
		return s.Current().Cry.Label == "tired"
	}, time.Second, 10*time.Millisecond)
}

func TestMonitorService_SubmitQueueFull(t *testing.T) {
	s := store.New()
	svc := NewMonitorService(ingest.NewIngestor(s, nil), &fakeRouter{}, nil,
		MonitorServiceConfig{MessageChannelSize: 1, EnqueueTimeout: 10 * time.Millisecond}, nil)

	ctx := context.Background()
	require.NoError(t, svc.Submit(ctx, &models.InboundMessage{}))
	assert.ErrorIs(t, svc.Submit(ctx, &models.InboundMessage{}), ErrMessageQueueFull)
}

func TestHistoryService_RecordsEverySnapshot(t *testing.T) {
	s := store.New()
	history := &memoryHistory{}
	h := NewHistoryService(s, history, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Start(ctx)
		close(done)
	}()

	// initial default snapshot is recorded on attach
	require.Eventually(t, func() bool { return history.snapshotCount() == 1 }, time.Second, 10*time.Millisecond)

	in := ingest.NewIngestor(s, nil)
	in.Ingest(map[string]string{"temperature": "37.5"})
	in.Ingest(map[string]string{"temperature": "38.0"})

	require.Eventually(t, func() bool { return history.snapshotCount() == 3 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	history.mu.Lock()
	defer history.mu.Unlock()
	last, ok := history.snapshots[2].Temperature()
	require.True(t, ok)
	assert.Equal(t, 38.0, last)
}

func TestHistoryService_RecordPublishFailure(t *testing.T) {
	history := &memoryHistory{}
	h := NewHistoryService(store.New(), history, nil)

	h.RecordPublishFailure(context.Background(),
		models.Notification{AlertID: "alert-1", DeviceID: "nursery-1"},
		errors.New("not connected"))

	history.mu.Lock()
	defer history.mu.Unlock()
	require.Len(t, history.routes, 1)
	assert.Equal(t, models.RouteRecord{
		AlertID:  "alert-1",
		DeviceID: "nursery-1",
		Outcome:  string(alarm.OutcomePublishFailed),
		Error:    "not connected",
	}, history.routes[0])
}
