package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/alarm"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/store"
)

const (
	frameSnapshot = "snapshot"
	frameAlarm    = "alarm"
	frameAck      = "ack"

	writeWait         = 5 * time.Second
	alarmQueueSize    = 4
	defaultAckTimeout = 3 * time.Second
)

var (
	errClientGone    = errors.New("stream client disconnected")
	errAlarmReplaced = errors.New("alarm replaced by a newer delivery")
)

// Frame is one message on the stream. The server sends snapshot and alarm
// frames; the client answers an alarm with {"type":"ack","alert_id":...}
// once the alarm screen is showing.
type Frame struct {
	Type     string                     `json:"type"`
	Snapshot *models.MonitoringSnapshot `json:"snapshot,omitempty"`
	Alert    *models.Alert              `json:"alert,omitempty"`
	Sounds   []alarm.SoundSource        `json:"sounds,omitempty"`
	AlertID  string                     `json:"alert_id,omitempty"`
}

// HubConfig holds stream settings.
type HubConfig struct {
	// AckTimeout bounds how long ShowAlarm waits for a client to acknowledge.
	AckTimeout time.Duration
	// AllowedOrigins lists accepted Origin headers; "*" accepts any. Empty
	// keeps the upgrader's same-origin check.
	AllowedOrigins []string
	// AlarmSound is the first entry of the sound plan sent with each alarm.
	AlarmSound alarm.SoundSource
}

// Hub tracks connected presentation clients. A connected client means the
// app is in the foreground; it implements alarm.ForegroundDetector and
// alarm.Launcher.
type Hub struct {
	store      *store.Store
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	ackTimeout time.Duration
	sounds     []alarm.SoundSource

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

// NewHub creates a hub streaming from s.
func NewHub(s *store.Store, config HubConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AckTimeout <= 0 {
		config.AckTimeout = defaultAckTimeout
	}
	if config.AlarmSound == "" {
		config.AlarmSound = alarm.SoundCustom
	}
	return &Hub{
		store:  s,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
		ackTimeout: config.AckTimeout,
		sounds:     alarm.SoundChain(config.AlarmSound),
		clients:    make(map[*streamClient]struct{}),
	}
}

// originChecker returns nil for an empty list so gorilla applies its
// same-origin default.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// IsForeground reports whether at least one client is connected.
func (h *Hub) IsForeground() bool {
	return h.ClientCount() > 0
}

// ClientCount returns the number of connected stream clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ShowAlarm sends alert to every connected client and waits until one of
// them acknowledges it. A write failure, a disconnect or the ack timeout on
// every client yields an error wrapping alarm.ErrNoClients.
func (h *Hub) ShowAlarm(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	results := make(chan error, len(clients))
	offered := make([]*streamClient, 0, len(clients))
	for _, c := range clients {
		if c.offer(alert, results) {
			offered = append(offered, c)
		} else {
			h.logger.Warn("Stream client cannot take alarm", zap.String("alert_id", alert.ID))
		}
	}
	defer func() {
		for _, c := range offered {
			c.forget(alert.ID, results)
		}
	}()

	if len(offered) == 0 {
		return alarm.ErrNoClients
	}

	timer := time.NewTimer(h.ackTimeout)
	defer timer.Stop()

	var errs []error
	for len(errs) < len(offered) {
		select {
		case err := <-results:
			if err == nil {
				return nil
			}
			errs = append(errs, err)
		case <-timer.C:
			return fmt.Errorf("%w: no ack within %s", alarm.ErrNoClients, h.ackTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", alarm.ErrNoClients, errors.Join(errs...))
}

// ServeWS upgrades the request and streams snapshots and alarms until the
// client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := newStreamClient(conn)
	sub := h.store.Subscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.register(c)
	defer func() {
		c.shutdown(errClientGone)
		sub.Close()
		h.unregister(c)
		conn.Close()
	}()

	// reader: acks, and noticing the client going away
	go func() {
		defer cancel()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				c.shutdown(errClientGone)
				return
			}
			var in Frame
			if err := json.Unmarshal(raw, &in); err != nil {
				h.logger.Debug("Stream client sent unreadable frame", zap.Error(err))
				continue
			}
			if in.Type == frameAck && in.AlertID != "" {
				c.resolve(in.AlertID, nil)
			}
		}
	}()

	snapshots := make(chan models.MonitoringSnapshot)
	go func() {
		defer cancel()
		for {
			snap, err := sub.Next(ctx)
			if err != nil {
				return
			}
			select {
			case snapshots <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var frame Frame
		alertID := ""
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case snap := <-snapshots:
			frame = Frame{Type: frameSnapshot, Snapshot: &snap}
		case alert := <-c.alarms:
			alertID = alert.ID
			frame = Frame{Type: frameAlarm, Alert: &alert, Sounds: h.sounds}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug("Stream client write failed", zap.Error(err))
			if alertID != "" {
				c.resolve(alertID, err)
			}
			return
		}
	}
}

func (h *Hub) register(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Stream client connected", zap.Int("clients", n))
}

func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Stream client disconnected", zap.Int("clients", n))
}

// streamClient is one connected presentation client. Every offered alarm
// gets exactly one result: nil on ack, an error on write failure or
// disconnect.
type streamClient struct {
	conn   *websocket.Conn
	alarms chan models.Alert

	mu      sync.Mutex
	closed  bool
	waiting map[string]chan<- error
}

func newStreamClient(conn *websocket.Conn) *streamClient {
	return &streamClient{
		conn:    conn,
		alarms:  make(chan models.Alert, alarmQueueSize),
		waiting: make(map[string]chan<- error),
	}
}

func (c *streamClient) offer(alert models.Alert, results chan<- error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.alarms <- alert:
	default:
		return false
	}
	if prev, ok := c.waiting[alert.ID]; ok {
		prev <- errAlarmReplaced
	}
	c.waiting[alert.ID] = results
	return true
}

func (c *streamClient) resolve(alertID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if results, ok := c.waiting[alertID]; ok {
		delete(c.waiting, alertID)
		results <- err
	}
}

// forget drops a wait that ShowAlarm no longer listens to.
func (c *streamClient) forget(alertID string, results chan<- error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.waiting[alertID]; ok && current == results {
		delete(c.waiting, alertID)
	}
}

func (c *streamClient) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, results := range c.waiting {
		results <- err
		delete(c.waiting, id)
	}
}
