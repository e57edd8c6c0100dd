package conversation

import "time"

// Roles a turn can carry within a session transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn persists one exchange in a session for context building and debug.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
