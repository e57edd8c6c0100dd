package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/naveenkul/pocket-soul/internal/service/assets"
	"github.com/naveenkul/pocket-soul/internal/service/pipeline"
	"github.com/naveenkul/pocket-soul/internal/vision"
	"github.com/naveenkul/pocket-soul/pkg/utils"
)

// CharacterHandler exposes the generation cache and asset index over HTTP.
type CharacterHandler struct {
	cache    *assets.Cache
	resolver *assets.Resolver
	vision   *vision.Client
	log      zerolog.Logger
}

// NewCharacterHandler creates the handler; cache may be nil when generation
// is not configured.
func NewCharacterHandler(cache *assets.Cache, resolver *assets.Resolver, visionClient *vision.Client, log zerolog.Logger) *CharacterHandler {
	return &CharacterHandler{
		cache:    cache,
		resolver: resolver,
		vision:   visionClient,
		log:      log.With().Str("component", "character-api").Logger(),
	}
}

// RegisterRoutes mounts the character and asset endpoints.
func (h *CharacterHandler) RegisterRoutes(r chi.Router) {
	r.Route("/character", func(r chi.Router) {
		r.Post("/generate", h.handleGenerate)
		r.Post("/parse", h.handleParse)
		r.Get("/cache", h.handleCacheList)
		r.Delete("/cache", h.handleCacheClear)
	})
	r.Get("/assets", h.handleAssets)
	r.Get("/presence", h.handlePresence)
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Emotion     string `json:"emotion"`
	Description string `json:"description"`
	VideoPath   string `json:"videoPath"`
	Cached      bool   `json:"cached"`
	Fingerprint string `json:"fingerprint"`
	GeneratedAt string `json:"generatedAt"`
}

func (h *CharacterHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "character generation is not configured")
		return
	}

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	parsed := assets.ParsePrompt(req.Prompt)
	description := parsed.Description
	if description == "" {
		// Direct API callers may pass a bare description instead of a
		// conversational directive.
		description = strings.TrimSpace(req.Prompt)
	}

	entry, cached, err := h.cache.GetOrCreate(r.Context(), parsed.Emotion, description)
	if err != nil {
		status := http.StatusBadGateway
		if !errors.Is(err, assets.ErrGenerationFailed) {
			status = http.StatusInternalServerError
		}
		h.log.Error().Err(err).Str("description", description).Msg("generation request failed")
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, generateResponse{
		Emotion:     entry.Emotion,
		Description: entry.Description,
		VideoPath:   pipeline.CustomVideoPrefix + entry.Filename,
		Cached:      cached,
		Fingerprint: entry.Fingerprint,
		GeneratedAt: entry.GeneratedAt.Format(time.RFC3339),
	})
}

func (h *CharacterHandler) handleParse(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.RespondJSON(w, http.StatusOK, assets.ParsePrompt(req.Prompt))
}

func (h *CharacterHandler) handleCacheList(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"entries": []any{}, "count": 0})
		return
	}

	entries := h.cache.List()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *CharacterHandler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		return
	}

	if err := h.cache.Clear(); err != nil {
		h.log.Error().Err(err).Msg("cache clear failed")
		utils.RespondError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *CharacterHandler) handleAssets(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" {
		h.resolver.Refresh()
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"standard": h.resolver.Index(),
	})
}

func (h *CharacterHandler) handlePresence(w http.ResponseWriter, r *http.Request) {
	snap, observed := h.vision.Last()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"snapshot":   snap,
		"observedAt": observed,
		"fresh":      h.vision.Context().Fresh(time.Now()),
	})
}
