package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/internal/domain/chat"
	"backoffice-chat/internal/domain/directory"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *chat.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Conversation, error)
	FindCustomerDM(ctx context.Context, customerID uuid.UUID) (chat.Conversation, error)
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListForActor(ctx context.Context, a actor.Actor, page, limit int) ([]chat.Conversation, int64, error)

	AddParticipant(ctx context.Context, p *chat.Participant) error
	FindActiveParticipant(ctx context.Context, conversationID uuid.UUID, a actor.Actor) (chat.Participant, error)
	MarkLeft(ctx context.Context, participantID uuid.UUID, at time.Time) error
	UpdateLastRead(ctx context.Context, participantID, messageID uuid.UUID) error
	GetActiveParticipants(ctx context.Context, conversationID uuid.UUID) ([]chat.Participant, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *chat.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error)
	UpdateBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// FindByConversationOrdered pages through a conversation newest-first.
	// before/after are message-id cursors; zero UUIDs mean unset.
	FindByConversationOrdered(ctx context.Context, conversationID uuid.UUID, before, after uuid.UUID, limit int) ([]chat.Message, error)
}

type PinRepository interface {
	CreatePin(ctx context.Context, p *chat.ReviewPin) error
	GetPin(ctx context.Context, id uuid.UUID) (chat.ReviewPin, error)
	FindPin(ctx context.Context, messageID uuid.UUID, entityType string, entityID uuid.UUID) (chat.ReviewPin, error)
	UpdatePinStatus(ctx context.Context, p chat.ReviewPin) error
	ListPins(ctx context.Context, conversationID uuid.UUID, status string, page, limit int) ([]chat.ReviewPin, int64, error)

	CreateLink(ctx context.Context, l *chat.ReviewPinLink) error
	GetLink(ctx context.Context, id uuid.UUID) (chat.ReviewPinLink, error)
	FindLink(ctx context.Context, pinID uuid.UUID, linkType string, documentID uuid.UUID) (chat.ReviewPinLink, error)
	DeleteLink(ctx context.Context, id uuid.UUID) error
	ListLinks(ctx context.Context, pinID uuid.UUID) ([]chat.ReviewPinLink, error)
}

// DirectoryRepository reads the customer/staff roster owned by the
// surrounding application.
type DirectoryRepository interface {
	ActiveCustomers(ctx context.Context) ([]directory.Customer, error)
	ActiveStaff(ctx context.Context) ([]directory.StaffUser, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (directory.Customer, error)
	GetStaff(ctx context.Context, id uuid.UUID) (directory.StaffUser, error)
}

// BillingRepository reads invoices, quotes and receipts for pin-link
// validation. Strictly read-only.
type BillingRepository interface {
	GetDocument(ctx context.Context, linkType string, id uuid.UUID) (directory.BillingDocument, error)
}

// Store bundles the repositories behind a single transactional unit.
// WithTransaction hands the callback a Store whose repositories share
// one transaction; any error rolls the whole unit back.
type Store interface {
	Conversations() ConversationRepository
	Messages() MessageRepository
	Pins() PinRepository
	Directory() DirectoryRepository
	Billing() BillingRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
