package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/naveenkul/pocket-soul/internal/middleware"
	"github.com/naveenkul/pocket-soul/internal/service/pipeline"
	"github.com/naveenkul/pocket-soul/pkg/utils"
)

var startedAt = time.Now()

// NewRouter assembles the HTTP surface: the REST API, the SSE feed, the
// WebSocket endpoint, and static serving for standard and generated videos.
func NewRouter(ws *WSHandler, character *CharacterHandler, stream *StreamHandler, videosDir, generatedDir string) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(api chi.Router) {
		character.RegisterRoutes(api)
		stream.RegisterRoutes(api)
	})

	ws.RegisterRoutes(r)

	// Generated assets are matched before the standard prefix so the custom
	// directory shadows it.
	r.Handle(pipeline.CustomVideoPrefix+"*",
		http.StripPrefix(pipeline.CustomVideoPrefix, http.FileServer(http.Dir(generatedDir))))
	r.Handle(pipeline.StandardVideoPrefix+"*",
		http.StripPrefix(pipeline.StandardVideoPrefix, http.FileServer(http.Dir(videosDir))))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(startedAt).Round(time.Second).String(),
	})
}
