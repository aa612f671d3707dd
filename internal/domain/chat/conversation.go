package chat

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversation types
const (
	TypeCustomerDM = "CUSTOMER_DM"
	TypeStaffGroup = "STAFF_GROUP"
	TypeStaffDM    = "STAFF_DM"
)

// Conversation represents the conversations table
type Conversation struct {
	ID               uuid.UUID
	Type             string
	Title            sql.NullString
	CustomerID       uuid.NullUUID
	CreatedByStaffID uuid.NullUUID
	LastMessageAt    sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        sql.NullTime

	// Relationships
	Participants []Participant
}

// Participant represents the participants table. Exactly one of StaffID
// and CustomerID is set; LeftAt marks removal, rows are never deleted so
// message attribution survives membership changes.
type Participant struct {
	ID                uuid.UUID
	ConversationID    uuid.UUID
	StaffID           uuid.NullUUID
	CustomerID        uuid.NullUUID
	JoinedAt          time.Time
	LeftAt            sql.NullTime
	LastReadMessageID uuid.NullUUID
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "participants"
}

// Active reports whether the participant has not left.
func (p Participant) Active() bool {
	return !p.LeftAt.Valid
}

// Validate checks the structural invariants of a participant row:
// exactly one of staff/customer set.
func (p Participant) Validate() error {
	if p.StaffID.Valid == p.CustomerID.Valid {
		return ErrParticipantActorRef
	}
	return nil
}

// Validate checks the type/customer coupling: a CUSTOMER_DM carries a
// customer id, nothing else does.
func (c Conversation) Validate() error {
	switch c.Type {
	case TypeCustomerDM:
		if !c.CustomerID.Valid {
			return ErrCustomerDMWithoutCustomer
		}
	case TypeStaffGroup, TypeStaffDM:
		if c.CustomerID.Valid {
			return ErrCustomerOnStaffConversation
		}
	default:
		return ErrUnknownConversationType
	}
	return nil
}

// Deleted reports whether the conversation is soft-deleted.
func (c Conversation) Deleted() bool {
	return c.DeletedAt.Valid
}
