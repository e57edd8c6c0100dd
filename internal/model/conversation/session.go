package conversation

import "time"

// Session captures one logical conversation tied to an initiating connection.
type Session struct {
	ID           string    `json:"id"`
	ConnectionID string    `json:"connectionId"`
	CreatedAt    time.Time `json:"createdAt"`
}
