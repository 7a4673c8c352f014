package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter wires the API routes.
func NewRouter(h *Handlers) *mux.Router {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/snapshot", h.getSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/history", h.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/messages", h.postMessage).Methods(http.MethodPost)
	if h.Hub != nil {
		api.HandleFunc("/stream", h.Hub.ServeWS).Methods(http.MethodGet)
	}

	return r
}
