package httpdto

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/chat"
	"backoffice-chat/internal/services"
)

type SendMessageRequest struct {
	Type     string `json:"type,omitempty"`
	Body     string `json:"body,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

type EditMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type MarkReadRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}

type MessageResponse struct {
	ID               uuid.UUID  `json:"id"`
	ConversationID   uuid.UUID  `json:"conversation_id"`
	SenderStaffID    *uuid.UUID `json:"sender_staff_id,omitempty"`
	SenderCustomerID *uuid.UUID `json:"sender_customer_id,omitempty"`
	SenderName       string     `json:"sender_name,omitempty"`
	Type             string     `json:"type"`
	Body             string     `json:"body,omitempty"`
	Metadata         string     `json:"metadata,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	EditedAt         *time.Time `json:"edited_at,omitempty"`
	Deleted          bool       `json:"deleted,omitempty"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

func FromMessage(m chat.Message) MessageResponse {
	res := MessageResponse{
		ID:               m.ID,
		ConversationID:   m.ConversationID,
		SenderStaffID:    nullUUIDPtr(m.SenderStaffID),
		SenderCustomerID: nullUUIDPtr(m.SenderCustomerID),
		Type:             m.Type,
		Body:             m.Body.String,
		Metadata:         m.Metadata.String,
		CreatedAt:        m.CreatedAt,
		EditedAt:         nullTimePtr(m.EditedAt),
		Deleted:          m.Deleted(),
	}
	// A deleted message keeps its slot in history but not its content.
	if res.Deleted {
		res.Body = ""
		res.Metadata = ""
	}
	return res
}

func FromEnrichedMessage(m services.EnrichedMessage) MessageResponse {
	res := FromMessage(m.Message)
	res.SenderName = m.SenderName
	return res
}

func FromMessageSlice(items []chat.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromMessage(item))
	}
	return out
}

func nullUUIDPtr(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
