package chat

import (
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Message types
const (
	MessageText     = "TEXT"
	MessageSystem   = "SYSTEM"
	MessageDocument = "DOCUMENT"
	MessageFile     = "FILE"
)

// MaxBodyLength is the maximum message body size in characters.
const MaxBodyLength = 5000

// Domain validation errors, wrapped into the caller-facing taxonomy by
// the services.
var (
	ErrParticipantActorRef         = errors.New("participant must reference exactly one of staff or customer")
	ErrCustomerDMWithoutCustomer   = errors.New("customer DM requires a customer")
	ErrCustomerOnStaffConversation = errors.New("staff conversation cannot carry a customer")
	ErrUnknownConversationType     = errors.New("unknown conversation type")
	ErrSenderRef                   = errors.New("message sender must be at most one of staff or customer")
	ErrEmptyBody                   = errors.New("text message requires a non-empty body")
	ErrBodyTooLong                 = errors.New("message body exceeds maximum length")
	ErrMissingMetadata             = errors.New("document message requires metadata")
	ErrUnknownMessageType          = errors.New("unknown message type")
)

// Message represents the messages table. A message with neither sender
// set is a SYSTEM message.
type Message struct {
	ID               uuid.UUID
	ConversationID   uuid.UUID
	SenderStaffID    uuid.NullUUID
	SenderCustomerID uuid.NullUUID
	Type             string
	Body             sql.NullString
	Metadata         sql.NullString
	CreatedAt        time.Time
	EditedAt         sql.NullTime
	DeletedAt        sql.NullTime
}

func (Message) TableName() string {
	return "messages"
}

// Validate enforces the message invariants before any write.
func (m Message) Validate() error {
	if m.SenderStaffID.Valid && m.SenderCustomerID.Valid {
		return ErrSenderRef
	}
	switch m.Type {
	case MessageText:
		if strings.TrimSpace(m.Body.String) == "" || !m.Body.Valid {
			return ErrEmptyBody
		}
	case MessageDocument:
		if !m.Metadata.Valid || m.Metadata.String == "" {
			return ErrMissingMetadata
		}
	case MessageSystem, MessageFile:
	default:
		return ErrUnknownMessageType
	}
	if m.Body.Valid && utf8.RuneCountInString(m.Body.String) > MaxBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// Deleted reports whether the message is soft-deleted.
func (m Message) Deleted() bool {
	return m.DeletedAt.Valid
}

// System reports whether the message was emitted by the service itself.
func (m Message) System() bool {
	return !m.SenderStaffID.Valid && !m.SenderCustomerID.Valid
}
