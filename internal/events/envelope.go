package events

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the frame every server->client event travels in.
type Envelope struct {
	Event          string      `json:"event"`
	ConversationID uuid.UUID   `json:"conversation_id,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Payload        interface{} `json:"payload,omitempty"`
}

// New builds an envelope stamped with the current time.
func New(event string, conversationID uuid.UUID, payload interface{}) Envelope {
	return Envelope{
		Event:          event,
		ConversationID: conversationID,
		OccurredAt:     time.Now(),
		Payload:        payload,
	}
}
