package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one utterance in a conversation. A message is created when a
// remote call returns and is never mutated afterwards.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// AudioBase64 carries the recorded clip for user turns. It is held in
	// memory for playback and debugging only; the session store strips it
	// before writing.
	AudioBase64 string `json:"audioBase64,omitempty"`
}

// NewMessage builds a message with a fresh identifier and timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
