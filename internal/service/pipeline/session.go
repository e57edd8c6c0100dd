package pipeline

import "sync"

// State names a stage of the per-session pipeline.
type State string

const (
	StateIdle                State = "idle"
	StateTranscribing        State = "transcribing"
	StateThinking            State = "thinking"
	StateGeneratingCharacter State = "generating-character"
	StateGeneratingAudio     State = "generating-audio"
	StateError               State = "error"
)

// Session holds the runtime state machine for one conversation. The busy
// flag is the only concurrency control within a session: it is true for
// the full duration of exactly one pipeline run. The token invalidates
// results of interrupted runs.
type Session struct {
	ID           string
	ConnectionID string

	mu              sync.Mutex
	state           State
	busy            bool
	token           uint64
	activeCharacter string
}

// NewSession starts a session in the idle state.
func NewSession(id, connectionID string) *Session {
	return &Session{
		ID:           id,
		ConnectionID: connectionID,
		state:        StateIdle,
	}
}

// begin atomically claims the session for a run. It fails when a run is
// already in flight.
func (s *Session) begin(initial State) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return 0, false
	}
	s.busy = true
	s.token++
	s.state = initial
	return s.token, true
}

// current reports whether the run identified by token is still live.
func (s *Session) current(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy && s.token == token
}

// setState advances the machine, refusing stale runs.
func (s *Session) setState(token uint64, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.busy || s.token != token {
		return false
	}
	s.state = state
	return true
}

// finish returns the session to idle if the run is still current.
func (s *Session) finish(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		return
	}
	s.busy = false
	s.state = StateIdle
}

// Interrupt forces idle immediately. In-flight collaborator calls are not
// cancelled; their results fail the token check and are discarded.
func (s *Session) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.busy = false
	s.state = StateIdle
}

// Busy reports whether a pipeline run is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// State reports the current pipeline state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveCharacter returns the cache-key description of the custom
// character carried across turns, empty when none is active.
func (s *Session) ActiveCharacter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCharacter
}

func (s *Session) setActiveCharacter(token uint64, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		return false
	}
	s.activeCharacter = description
	return true
}

// ClearCharacter drops the active custom character.
func (s *Session) ClearCharacter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCharacter = ""
}
