// Package session defines the chat message model shared by the streaming
// controller and its consumers, along with best-effort transcript persistence.
//
// Messages are append-only: once a message has been added to a transcript it
// is never mutated. Partial results, corrections, and errors are always
// expressed as new messages.
package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session transcript.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// TokenUsage is the opaque accounting payload from the server, attached
	// to the final assistant message of a turn. It is stored as received and
	// never interpreted here.
	TokenUsage json.RawMessage `json:"token_usage,omitempty"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(sessionID string, role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
