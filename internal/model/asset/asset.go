package asset

import "time"

// CacheEntry records one generated character artifact. Entries are immutable
// once written; regeneration under the same fingerprint supersedes them.
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Emotion     string    `json:"emotion"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt"`
	Filename    string    `json:"filename"`
	GeneratedAt time.Time `json:"generatedAt"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
}

// Video identifies the clip a viewer should play for a turn.
type Video struct {
	URL         string `json:"url"`
	Emotion     string `json:"emotion"`
	Cached      bool   `json:"cached"`
	Description string `json:"description,omitempty"`
}

// Timing reports per-stage latency for a completed turn, in milliseconds.
type Timing struct {
	TranscribeMs int64 `json:"transcribeMs,omitempty"`
	ThinkMs      int64 `json:"thinkMs"`
	CharacterMs  int64 `json:"characterMs,omitempty"`
	SynthesisMs  int64 `json:"synthesisMs,omitempty"`
	TotalMs      int64 `json:"totalMs"`
}

// TurnBundle is the assembled result of one pipeline run, fanned out to the
// initiating connection and every viewer display.
type TurnBundle struct {
	Transcript  string  `json:"transcript,omitempty"`
	ReplyText   string  `json:"replyText"`
	Emotion     string  `json:"emotion"`
	AudioBase64 *string `json:"audioBase64"`
	AudioError  string  `json:"audioError,omitempty"`
	Video       Video   `json:"video"`
	Timing      Timing  `json:"timing"`
}
