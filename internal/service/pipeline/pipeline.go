package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/naveenkul/pocket-soul/internal/analysis/emotion"
	"github.com/naveenkul/pocket-soul/internal/model/asset"
	conv "github.com/naveenkul/pocket-soul/internal/model/conversation"
	"github.com/naveenkul/pocket-soul/internal/model/persona"
	"github.com/naveenkul/pocket-soul/internal/registry"
	"github.com/naveenkul/pocket-soul/internal/service/assets"
	"github.com/naveenkul/pocket-soul/internal/service/conversation"
	"github.com/naveenkul/pocket-soul/internal/service/speech"
)

// Server→client event types.
const (
	EventStatus        = "status"
	EventTranscription = "transcription-result"
	EventComplete      = "conversation-complete"
	EventDisplay       = "display-content"
	EventCharacter     = "custom-character-ready"
	EventError         = "error"
)

// URL prefixes under which the handler serves video files.
const (
	StandardVideoPrefix = "/videos/"
	CustomVideoPrefix   = "/videos/custom/"
)

var ErrSessionBusy = errors.New("session pipeline already running")

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format string) (speech.Transcription, error)
}

// Responder is the text-generation collaborator.
type Responder interface {
	GenerateReply(ctx context.Context, sessionID string, history []conv.Turn, userText string) (string, error)
}

// Synthesizer is the voice-synthesis collaborator.
type Synthesizer interface {
	SynthesizeToBuffer(ctx context.Context, sessionID, text, emotionLabel string) ([]byte, error)
}

// CharacterCache provides generate-or-retrieve custom character assets.
type CharacterCache interface {
	GetOrCreate(ctx context.Context, emotionLabel, description string) (asset.CacheEntry, bool, error)
}

// AssetResolver maps an emotion to a standard asset.
type AssetResolver interface {
	Resolve(label emotion.Label) *assets.StandardAsset
}

// PresenceSource supplies ambient engagement context.
type PresenceSource interface {
	Context() emotion.Context
}

// Deps wires the pipeline's collaborators. Transcriber, Responder,
// Synthesizer, Cache and Presence may be nil; the pipeline degrades
// per stage instead of failing the turn.
type Deps struct {
	Conversations *conversation.Store
	Registry      *registry.Registry
	Transcriber   Transcriber
	Responder     Responder
	Synthesizer   Synthesizer
	Cache         CharacterCache
	Resolver      AssetResolver
	Presence      PresenceSource
	Persona       persona.Persona
	HistoryLimit  int
	Log           zerolog.Logger
}

// Pipeline sequences the stages of one conversational turn per session.
type Pipeline struct {
	deps Deps
	log  zerolog.Logger
}

// New builds a pipeline over the supplied collaborators.
func New(deps Deps) *Pipeline {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = conversation.DefaultHistoryLimit
	}
	return &Pipeline{
		deps: deps,
		log:  deps.Log.With().Str("component", "pipeline").Logger(),
	}
}

// SubmitText runs a turn for typed input. While the session is busy the
// call is a no-op observable through a busy status signal.
func (p *Pipeline) SubmitText(ctx context.Context, s *Session, text string) {
	token, ok := s.begin(StateThinking)
	if !ok {
		p.notifyBusy(s)
		return
	}

	if strings.TrimSpace(text) == "" {
		// Valid empty-input outcome: no reply, straight back to idle.
		s.finish(token)
		p.emitStatus(s)
		return
	}

	p.emitStatus(s)
	p.runTurn(ctx, s, token, "", strings.TrimSpace(text), 0, time.Now())
}

// SubmitAudio runs a turn for spoken input, transcribing first.
func (p *Pipeline) SubmitAudio(ctx context.Context, s *Session, audio []byte, format string) {
	token, ok := s.begin(StateTranscribing)
	if !ok {
		p.notifyBusy(s)
		return
	}
	p.emitStatus(s)

	started := time.Now()

	if p.deps.Transcriber == nil {
		p.emitError(s, "speech recognition unavailable")
		p.fail(s, token)
		return
	}

	result, err := p.deps.Transcriber.TranscribeBuffer(ctx, s.ID, audio, format)
	if err != nil {
		p.log.Error().Err(err).Str("session", s.ID).Msg("transcription failed")
		p.emitError(s, "could not understand the recording")
		p.fail(s, token)
		return
	}

	transcript := strings.TrimSpace(result.Text)
	if transcript == "" {
		// No speech detected: a valid outcome, not an error.
		s.finish(token)
		p.emitStatus(s)
		return
	}

	if !s.current(token) {
		return
	}
	p.send(s, registry.NewEvent(EventTranscription, s.ID, map[string]any{
		"text":       transcript,
		"confidence": result.Confidence,
	}))

	p.runTurn(ctx, s, token, transcript, transcript, time.Since(started).Milliseconds(), started)
}

// Interrupt forces the session back to idle; stale stage results are
// discarded when they eventually arrive.
func (p *Pipeline) Interrupt(s *Session) {
	s.Interrupt()
	p.emitStatus(s)
}

// Reset clears conversation history and the active custom character. It is
// only valid while idle.
func (p *Pipeline) Reset(ctx context.Context, s *Session) error {
	if s.Busy() {
		return ErrSessionBusy
	}
	if err := p.deps.Conversations.Reset(ctx, s.ID); err != nil {
		return err
	}
	s.ClearCharacter()
	p.emitStatus(s)
	return nil
}

func (p *Pipeline) runTurn(ctx context.Context, s *Session, token uint64, transcript, userText string, transcribeMs int64, started time.Time) {
	if !s.setState(token, StateThinking) {
		return
	}
	p.emitStatus(s)

	history, err := p.deps.Conversations.Recent(ctx, s.ID, p.deps.HistoryLimit)
	if err != nil {
		p.log.Error().Err(err).Str("session", s.ID).Msg("history load failed")
		history = nil
	}
	if err := p.deps.Conversations.Append(ctx, conv.Turn{
		SessionID: s.ID,
		Role:      conv.RoleUser,
		Content:   userText,
	}); err != nil {
		p.log.Error().Err(err).Str("session", s.ID).Msg("user turn append failed")
	}

	thinkStart := time.Now()
	reply := p.generateReply(ctx, s, history, userText)
	thinkMs := time.Since(thinkStart).Milliseconds()

	decision := emotion.Classify(userText, reply)
	resolved := decision.Emotion
	if p.deps.Presence != nil {
		resolved = emotion.Adjust(resolved, p.deps.Presence.Context(), time.Now())
	}

	if err := p.deps.Conversations.Append(ctx, conv.Turn{
		SessionID: s.ID,
		Role:      conv.RoleAssistant,
		Content:   reply,
		Emotion:   string(resolved),
	}); err != nil {
		p.log.Error().Err(err).Str("session", s.ID).Msg("assistant turn append failed")
	}

	characterStart := time.Now()
	video := p.resolveVideo(ctx, s, token, userText, resolved)
	characterMs := time.Since(characterStart).Milliseconds()

	if !s.setState(token, StateGeneratingAudio) {
		return
	}
	p.emitStatus(s)

	synthesisStart := time.Now()
	audioB64, audioErr := p.synthesize(ctx, s, reply, resolved)
	synthesisMs := time.Since(synthesisStart).Milliseconds()

	bundle := asset.TurnBundle{
		Transcript:  transcript,
		ReplyText:   reply,
		Emotion:     string(resolved),
		AudioBase64: audioB64,
		AudioError:  audioErr,
		Video:       video,
		Timing: asset.Timing{
			TranscribeMs: transcribeMs,
			ThinkMs:      thinkMs,
			CharacterMs:  characterMs,
			SynthesisMs:  synthesisMs,
			TotalMs:      time.Since(started).Milliseconds(),
		},
	}

	if !s.current(token) {
		p.log.Debug().Str("session", s.ID).Msg("interrupted run result discarded")
		return
	}

	p.deps.Registry.Multicast(s.ID,
		registry.NewEvent(EventComplete, s.ID, bundle),
		registry.NewEvent(EventDisplay, s.ID, bundle),
	)

	s.finish(token)
	p.emitStatus(s)
}

// generateReply calls the text-generation collaborator, substituting one of
// the persona's fixed fallback utterances on failure — provider trouble is
// never fatal to the turn.
func (p *Pipeline) generateReply(ctx context.Context, s *Session, history []conv.Turn, userText string) string {
	if p.deps.Responder == nil {
		return p.fallbackLine()
	}

	reply, err := p.deps.Responder.GenerateReply(ctx, s.ID, history, userText)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			p.log.Warn().Err(err).Str("session", s.ID).Msg("reply generation failed, using fallback line")
		}
		return p.fallbackLine()
	}
	return strings.TrimSpace(reply)
}

func (p *Pipeline) fallbackLine() string {
	lines := p.deps.Persona.FallbackLines
	if len(lines) == 0 {
		return "Give me a second and ask me again?"
	}
	return lines[rand.Intn(len(lines))]
}

// resolveVideo picks the clip for the turn: a custom character asset when
// one is requested or active, the standard emotion asset otherwise. Custom
// failures fall back to the standard path transparently.
func (p *Pipeline) resolveVideo(ctx context.Context, s *Session, token uint64, userText string, resolved emotion.Label) asset.Video {
	if assets.IsResetPhrase(userText) {
		s.ClearCharacter()
	}

	parsed := assets.ParsePrompt(userText)
	active := s.ActiveCharacter()

	if p.deps.Cache != nil && (parsed.IsCharacterRequest || active != "") {
		if s.setState(token, StateGeneratingCharacter) {
			p.emitStatus(s)

			description := parsed.Description
			emotionKey := parsed.Emotion
			if !parsed.IsCharacterRequest {
				// Carry the active character, varying by the turn's emotion.
				description = active
				emotionKey = string(resolved)
			}

			entry, cached, err := p.deps.Cache.GetOrCreate(ctx, emotionKey, description)
			if err == nil {
				s.setActiveCharacter(token, entry.Description)
				if !cached && s.current(token) {
					p.send(s, registry.NewEvent(EventCharacter, s.ID, entry))
				}
				return asset.Video{
					URL:         CustomVideoPrefix + entry.Filename,
					Emotion:     entry.Emotion,
					Cached:      cached,
					Description: entry.Description,
				}
			}
			p.log.Warn().Err(err).
				Str("session", s.ID).
				Str("description", description).
				Msg("custom character unavailable, falling back to standard assets")
		}
	}

	video := asset.Video{Emotion: string(resolved)}
	if p.deps.Resolver != nil {
		if standard := p.deps.Resolver.Resolve(resolved); standard != nil {
			video.URL = StandardVideoPrefix + standard.Filename
			video.Emotion = standard.Emotion
		}
	}
	return video
}

// synthesize renders the reply as speech. Failure annotates the bundle
// instead of withholding text and video.
func (p *Pipeline) synthesize(ctx context.Context, s *Session, reply string, resolved emotion.Label) (*string, string) {
	if p.deps.Synthesizer == nil {
		return nil, "voice synthesis disabled"
	}

	audio, err := p.deps.Synthesizer.SynthesizeToBuffer(ctx, s.ID, reply, string(resolved))
	if err != nil {
		p.log.Warn().Err(err).Str("session", s.ID).Msg("voice synthesis failed, delivering without audio")
		return nil, "voice synthesis failed"
	}

	encoded := base64.StdEncoding.EncodeToString(audio)
	return &encoded, ""
}

// fail routes a hard stage failure through the error state back to idle.
func (p *Pipeline) fail(s *Session, token uint64) {
	if s.setState(token, StateError) {
		p.emitStatus(s)
	}
	s.finish(token)
	p.emitStatus(s)
}

func (p *Pipeline) notifyBusy(s *Session) {
	p.send(s, registry.NewEvent(EventStatus, s.ID, map[string]any{
		"state": string(s.State()),
		"busy":  true,
	}))
}

func (p *Pipeline) emitStatus(s *Session) {
	p.send(s, registry.NewEvent(EventStatus, s.ID, map[string]any{
		"state": string(s.State()),
		"busy":  s.Busy(),
	}))
}

func (p *Pipeline) emitError(s *Session, message string) {
	p.send(s, registry.NewEvent(EventError, s.ID, map[string]string{
		"message": message,
	}))
}

func (p *Pipeline) send(s *Session, event registry.Event) {
	if err := p.deps.Registry.Send(s.ConnectionID, event); err != nil {
		p.log.Debug().Err(err).Str("session", s.ID).Msg("event delivery skipped")
	}
}
