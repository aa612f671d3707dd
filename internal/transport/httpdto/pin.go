package httpdto

import (
	"time"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/chat"
)

type AddPinLinkRequest struct {
	LinkType   string `json:"link_type" binding:"required"`
	DocumentID string `json:"document_id" binding:"required"`
}

type PinResponse struct {
	ID                uuid.UUID  `json:"id"`
	ConversationID    uuid.UUID  `json:"conversation_id"`
	SourceMessageID   uuid.UUID  `json:"source_message_id"`
	MatchedEntityType string     `json:"matched_entity_type"`
	MatchedEntityID   uuid.UUID  `json:"matched_entity_id"`
	Status            string     `json:"status"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy        *uuid.UUID `json:"resolved_by,omitempty"`
}

type ListPinsResponse struct {
	Pins  []PinResponse `json:"pins"`
	Total int64         `json:"total"`
}

type PinLinkResponse struct {
	ID         uuid.UUID `json:"id"`
	PinID      uuid.UUID `json:"pin_id"`
	LinkType   string    `json:"link_type"`
	DocumentID uuid.UUID `json:"document_id"`
	AddedBy    uuid.UUID `json:"added_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListPinLinksResponse struct {
	Links []PinLinkResponse `json:"links"`
}

func FromPin(p chat.ReviewPin) PinResponse {
	return PinResponse{
		ID:                p.ID,
		ConversationID:    p.ConversationID,
		SourceMessageID:   p.SourceMessageID,
		MatchedEntityType: p.MatchedEntityType,
		MatchedEntityID:   p.MatchedEntityID,
		Status:            p.Status,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         p.CreatedAt,
		ResolvedAt:        nullTimePtr(p.ResolvedAt),
		ResolvedBy:        nullUUIDPtr(p.ResolvedBy),
	}
}

func FromPinSlice(items []chat.ReviewPin) []PinResponse {
	out := make([]PinResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromPin(item))
	}
	return out
}

func FromPinLink(l chat.ReviewPinLink) PinLinkResponse {
	return PinLinkResponse{
		ID:         l.ID,
		PinID:      l.PinID,
		LinkType:   l.LinkType,
		DocumentID: l.DocumentID,
		AddedBy:    l.AddedBy,
		CreatedAt:  l.CreatedAt,
	}
}

func FromPinLinkSlice(items []chat.ReviewPinLink) []PinLinkResponse {
	out := make([]PinLinkResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromPinLink(item))
	}
	return out
}
