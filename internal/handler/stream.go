package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/naveenkul/pocket-soul/internal/registry"
	"github.com/naveenkul/pocket-soul/pkg/utils"
)

// StreamHandler serves the read-only SSE feed: it registers each subscriber
// as a viewer so display broadcasts reach ambient dashboards without a
// WebSocket client.
type StreamHandler struct {
	registry *registry.Registry
	log      zerolog.Logger
}

// NewStreamHandler creates the SSE handler.
func NewStreamHandler(reg *registry.Registry, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		registry: reg,
		log:      log.With().Str("component", "sse").Logger(),
	}
}

// RegisterRoutes mounts the SSE endpoint.
func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *StreamHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	conn := h.registry.Add("")
	defer h.registry.Remove(conn.ID)

	if err := h.registry.Identify(conn.ID, registry.RoleViewer); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "subscription failed")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "connected", map[string]string{"connectionId": conn.ID})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-conn.Done:
			return
		case event := <-conn.Events:
			utils.SendSSEEvent(w, flusher, event.Type, event)
		case <-heartbeat.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]int64{"timestamp": time.Now().Unix()})
		}
	}
}
