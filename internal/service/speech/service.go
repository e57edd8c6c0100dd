package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/naveenkul/pocket-soul/internal/config"
)

// audioSegment aliases the anonymous segment element type of
// openai.AudioResponse.Segments, which has no named type in go-openai.
type audioSegment = struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	Transient        bool    `json:"transient"`
}

// Transcription is the outcome of one speech-to-text call.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Service fronts the transcription and voice synthesis providers behind an
// OpenAI-compatible API.
type Service struct {
	client *openai.Client
	cfg    config.SpeechConfig
	log    zerolog.Logger
}

// NewService builds the provider client from configuration.
func NewService(cfg config.SpeechConfig, log zerolog.Logger) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Service{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    log.With().Str("component", "speech").Logger(),
	}
}

// TranscribeBuffer converts a recorded utterance to text. An empty
// transcript is a valid outcome, not an error.
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format string) (Transcription, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if format == "" {
		format = "wav"
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.ASRModel,
		Reader:   bytes.NewReader(audio),
		FilePath: "utterance." + format,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Transcription{}, fmt.Errorf("transcription failed: %w", err)
	}

	result := Transcription{
		Text:       strings.TrimSpace(resp.Text),
		Confidence: segmentConfidence(resp.Segments),
	}

	s.log.Debug().
		Str("session", sessionID).
		Int("bytes", len(audio)).
		Int("chars", len(result.Text)).
		Msg("audio transcribed")
	return result, nil
}

// SynthesizeToBuffer renders the reply text as speech. The emotion tag
// nudges delivery speed; voice selection comes from configuration.
func (s *Service) SynthesizeToBuffer(ctx context.Context, sessionID, text, emotionLabel string) ([]byte, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.TTSModel),
		Voice:          openai.SpeechVoice(s.cfg.TTSVoice),
		Input:          text,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speedForEmotion(s.cfg.TTSSpeed, emotionLabel),
	})
	if err != nil {
		return nil, fmt.Errorf("voice synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}

	s.log.Debug().
		Str("session", sessionID).
		Str("emotion", emotionLabel).
		Int("bytes", len(audio)).
		Msg("speech synthesized")
	return audio, nil
}

// segmentConfidence folds per-segment log probabilities into a 0..1 score.
func segmentConfidence(segments []audioSegment) float64 {
	if len(segments) == 0 {
		return 0.9
	}

	total := 0.0
	for _, seg := range segments {
		total += math.Exp(seg.AvgLogprob)
	}
	confidence := total / float64(len(segments))
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

func speedForEmotion(base float64, emotionLabel string) float64 {
	if base <= 0 {
		base = 1.0
	}
	switch emotionLabel {
	case "excited", "joy":
		return base * 1.08
	case "sadness", "calm":
		return base * 0.95
	default:
		return base
	}
}
