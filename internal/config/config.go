package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every configurable concern of the service.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Speech   SpeechConfig
	Assets   AssetsConfig
	Vision   VisionConfig
	LogLevel string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	assets, err := loadAssetsConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Speech:   speech,
		Assets:   assets,
		Vision:   loadVisionConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the text-generation model.
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	Timeout      time.Duration
	HistoryLimit int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("missing model credentials: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override >= 1 {
		historyLimit = *override
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		Timeout:      timeout,
		HistoryLimit: historyLimit,
	}, nil
}

// SpeechConfig describes the transcription and voice synthesis providers.
type SpeechConfig struct {
	APIKey   string
	BaseURL  string
	ASRModel string
	TTSModel string
	TTSVoice string
	TTSSpeed float64
	Timeout  time.Duration
	Enabled  bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseDurationEnv("SPEECH_TIMEOUT", 30*time.Second)
	if err != nil {
		return SpeechConfig{}, err
	}

	speed := 1.0
	if override, err := parseOptionalFloatEnv("SPEECH_TTS_SPEED"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		speed = *override
	}

	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}

	return SpeechConfig{
		APIKey:   apiKey,
		BaseURL:  getEnvOrDefault("SPEECH_BASE_URL", ""),
		ASRModel: getEnvOrDefault("SPEECH_ASR_MODEL", "whisper-1"),
		TTSModel: getEnvOrDefault("SPEECH_TTS_MODEL", "tts-1"),
		TTSVoice: getEnvOrDefault("SPEECH_TTS_VOICE", "nova"),
		TTSSpeed: speed,
		Timeout:  timeout,
		Enabled:  apiKey != "",
	}, nil
}

// AssetsConfig describes the cache and standard video directories plus the
// generation providers.
type AssetsConfig struct {
	CacheDir          string
	VideosDir         string
	GenerationTimeout time.Duration
	ImageAPIKey       string
	ImageBaseURL      string
	VideoAPIBase      string
	VideoAPIKey       string
}

// GenerationEnabled reports whether custom character synthesis can run.
func (c AssetsConfig) GenerationEnabled() bool {
	return c.ImageAPIKey != "" && c.VideoAPIBase != ""
}

func loadAssetsConfig() (AssetsConfig, error) {
	timeout, err := parseDurationEnv("ASSET_GENERATION_TIMEOUT", 2*time.Minute)
	if err != nil {
		return AssetsConfig{}, err
	}

	imageKey := strings.TrimSpace(os.Getenv("IMAGE_API_KEY"))
	if imageKey == "" {
		imageKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}

	return AssetsConfig{
		CacheDir:          getEnvOrDefault("ASSET_CACHE_DIR", "data/generated"),
		VideosDir:         getEnvOrDefault("ASSET_VIDEOS_DIR", "data/videos"),
		GenerationTimeout: timeout,
		ImageAPIKey:       imageKey,
		ImageBaseURL:      getEnvOrDefault("IMAGE_BASE_URL", ""),
		VideoAPIBase:      strings.TrimSpace(os.Getenv("VIDEO_API_BASE")),
		VideoAPIKey:       strings.TrimSpace(os.Getenv("VIDEO_API_KEY")),
	}, nil
}

// VisionConfig points at the optional presence sidecar.
type VisionConfig struct {
	StreamURL string
	Enabled   bool
}

func loadVisionConfig() VisionConfig {
	streamURL := strings.TrimSpace(os.Getenv("VISION_STREAM_URL"))
	return VisionConfig{
		StreamURL: streamURL,
		Enabled:   streamURL != "",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// Accept plain seconds for compatibility with older deployments.
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
