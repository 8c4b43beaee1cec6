package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/deleyapp/lawcopilot/internal/model/module"
)

// Session is a persisted, named conversation: an append-only, ordered list
// of messages plus the educator counterpart it was started with.
//
// Invariant: LastMessageAt always equals the timestamp of the newest
// message. Append is the only way messages enter a session.
type Session struct {
	ID             string      `json:"id"`
	ModuleType     module.Kind `json:"moduleType"`
	EducatorID     string      `json:"educatorId"`
	EducatorName   string      `json:"educatorName"`
	EducatorAvatar string      `json:"educatorAvatar"`
	Messages       []Message   `json:"messages"`
	StartedAt      time.Time   `json:"startedAt"`
	LastMessageAt  time.Time   `json:"lastMessageAt"`
}

// NewSession provisions an empty session bound to an educator.
func NewSession(kind module.Kind, educatorID, educatorName, educatorAvatar string) Session {
	now := time.Now().UTC()
	return Session{
		ID:             uuid.NewString(),
		ModuleType:     kind,
		EducatorID:     educatorID,
		EducatorName:   educatorName,
		EducatorAvatar: educatorAvatar,
		Messages:       make([]Message, 0, 16),
		StartedAt:      now,
		LastMessageAt:  now,
	}
}

// Append adds a message to the transcript and advances LastMessageAt.
func (s *Session) Append(m Message) {
	s.Messages = append(s.Messages, m)
	s.LastMessageAt = m.Timestamp
}

// LastMessage returns the newest message, if any.
func (s *Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
