package httpdto

import (
	"time"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/chat"
)

type CreateConversationRequest struct {
	Type               string   `json:"type" binding:"required"`
	CustomerID         string   `json:"customer_id,omitempty"`
	Title              string   `json:"title,omitempty"`
	AdditionalStaffIDs []string `json:"additional_staff_ids,omitempty"`
}

type AddParticipantRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
}

type ParticipantResponse struct {
	ID                uuid.UUID  `json:"id"`
	ConversationID    uuid.UUID  `json:"conversation_id"`
	StaffID           *uuid.UUID `json:"staff_id,omitempty"`
	CustomerID        *uuid.UUID `json:"customer_id,omitempty"`
	JoinedAt          time.Time  `json:"joined_at"`
	LeftAt            *time.Time `json:"left_at,omitempty"`
	LastReadMessageID *uuid.UUID `json:"last_read_message_id,omitempty"`
}

type ConversationResponse struct {
	ID               uuid.UUID             `json:"id"`
	Type             string                `json:"type"`
	Title            string                `json:"title,omitempty"`
	CustomerID       *uuid.UUID            `json:"customer_id,omitempty"`
	CreatedByStaffID *uuid.UUID            `json:"created_by_staff_id,omitempty"`
	LastMessageAt    *time.Time            `json:"last_message_at,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	Participants     []ParticipantResponse `json:"participants,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Total         int64                  `json:"total"`
}

func FromParticipant(p chat.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:                p.ID,
		ConversationID:    p.ConversationID,
		StaffID:           nullUUIDPtr(p.StaffID),
		CustomerID:        nullUUIDPtr(p.CustomerID),
		JoinedAt:          p.JoinedAt,
		LeftAt:            nullTimePtr(p.LeftAt),
		LastReadMessageID: nullUUIDPtr(p.LastReadMessageID),
	}
}

func FromConversation(c chat.Conversation) ConversationResponse {
	res := ConversationResponse{
		ID:               c.ID,
		Type:             c.Type,
		Title:            c.Title.String,
		CustomerID:       nullUUIDPtr(c.CustomerID),
		CreatedByStaffID: nullUUIDPtr(c.CreatedByStaffID),
		LastMessageAt:    nullTimePtr(c.LastMessageAt),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	for _, p := range c.Participants {
		res.Participants = append(res.Participants, FromParticipant(p))
	}
	return res
}

func FromConversationSlice(items []chat.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromConversation(item))
	}
	return out
}
