package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/naveenkul/pocket-soul/internal/config"
	"github.com/naveenkul/pocket-soul/internal/handler"
	"github.com/naveenkul/pocket-soul/internal/model/persona"
	"github.com/naveenkul/pocket-soul/internal/registry"
	"github.com/naveenkul/pocket-soul/internal/service/ai"
	"github.com/naveenkul/pocket-soul/internal/service/assets"
	"github.com/naveenkul/pocket-soul/internal/service/conversation"
	"github.com/naveenkul/pocket-soul/internal/service/pipeline"
	"github.com/naveenkul/pocket-soul/internal/service/speech"
	"github.com/naveenkul/pocket-soul/internal/vision"
)

func main() {
	_ = godotenv.Load()

	log := newLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	log = newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	personas := persona.NewMemoryStore(persona.Seed())
	conversations := conversation.NewStore()
	reg := registry.New(log)

	resolver := assets.NewResolver(cfg.Assets.VideosDir, log)

	var cache *assets.Cache
	if cfg.Assets.GenerationEnabled() {
		imageCfg := openai.DefaultConfig(cfg.Assets.ImageAPIKey)
		if cfg.Assets.ImageBaseURL != "" {
			imageCfg.BaseURL = cfg.Assets.ImageBaseURL
		}
		gen := assets.NewCharacterGenerator(
			openai.NewClientWithConfig(imageCfg),
			cfg.Assets.VideoAPIBase,
			cfg.Assets.VideoAPIKey,
			log,
		)
		cache, err = assets.NewCache(cfg.Assets.CacheDir, gen, cfg.Assets.GenerationTimeout, log)
		if err != nil {
			log.Fatal().Err(err).Msg("asset cache init failed")
		}
	} else {
		log.Warn().Msg("character generation disabled: IMAGE_API_KEY or VIDEO_API_BASE missing")
	}

	var responder pipeline.Responder
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, personas, cfg.AI, log)
		if err != nil {
			log.Fatal().Err(err).Msg("ai service init failed")
		}
		responder = aiService
	} else {
		log.Warn().Msg("text generation disabled: ARK credentials missing, using persona fallback lines")
	}

	var transcriber pipeline.Transcriber
	var synthesizer pipeline.Synthesizer
	if cfg.Speech.Enabled {
		speechService := speech.NewService(cfg.Speech, log)
		transcriber = speechService
		synthesizer = speechService
	} else {
		log.Warn().Msg("speech disabled: SPEECH_API_KEY missing")
	}

	visionClient := vision.NewClient(cfg.Vision.StreamURL, log)
	visionClient.Start(ctx)

	var characterCache pipeline.CharacterCache
	if cache != nil {
		characterCache = cache
	}

	pipe := pipeline.New(pipeline.Deps{
		Conversations: conversations,
		Registry:      reg,
		Transcriber:   transcriber,
		Responder:     responder,
		Synthesizer:   synthesizer,
		Cache:         characterCache,
		Resolver:      resolver,
		Presence:      visionClient,
		Persona:       personas.Default(),
		HistoryLimit:  cfg.AI.HistoryLimit,
		Log:           log,
	})

	router := handler.NewRouter(
		handler.NewWSHandler(reg, conversations, pipe, log),
		handler.NewCharacterHandler(cache, resolver, visionClient, log),
		handler.NewStreamHandler(reg, log),
		cfg.Assets.VideosDir,
		cfg.Assets.CacheDir,
	)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(parsed).
		With().
		Timestamp().
		Logger()
}
