package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/database"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/mqtt"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	maxMessageBytes     = 64 << 10
)

// SnapshotSource returns the latest snapshot.
type SnapshotSource interface {
	Current() models.MonitoringSnapshot
}

// HistoryReader lists recorded snapshots, newest first.
type HistoryReader interface {
	RecentSnapshots(ctx context.Context, limit int) ([]database.HistoryEntry, error)
}

// MessageSink accepts inbound push messages.
type MessageSink interface {
	Submit(ctx context.Context, msg *models.InboundMessage) error
}

// Handlers serves the HTTP API. History may be nil when recording is off.
type Handlers struct {
	Snapshots SnapshotSource
	History   HistoryReader
	Messages  MessageSink
	Hub       *Hub
	Logger    *zap.Logger
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	clients := 0
	if h.Hub != nil {
		clients = h.Hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"stream_clients": clients,
	})
}

func (h *Handlers) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Snapshots.Current())
}

func (h *Handlers) getHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history recording is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	entries, err := h.History.RecentSnapshots(r.Context(), limit)
	if err != nil {
		h.Logger.Error("Failed to read history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	msg, err := mqtt.DecodeMessage(r.URL.Query().Get("device_id"), body, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Messages.Submit(r.Context(), &msg); err != nil {
		h.Logger.Warn("Failed to submit message", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "message queue unavailable")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
