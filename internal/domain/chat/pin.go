package chat

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Pin statuses
const (
	PinOpen     = "OPEN"
	PinResolved = "RESOLVED"
)

// Matched entity types
const (
	EntityCustomer = "CUSTOMER"
	EntityStaff    = "STAFF"
)

// Billing document link types
const (
	LinkInvoice = "INVOICE"
	LinkQuote   = "QUOTE"
	LinkReceipt = "RECEIPT"
)

// ReviewPin represents the review_pins table. One pin exists per
// (source message, entity type, entity id) triple.
type ReviewPin struct {
	ID                uuid.UUID
	ConversationID    uuid.UUID
	SourceMessageID   uuid.UUID
	MatchedEntityType string
	MatchedEntityID   uuid.UUID
	Status            string
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
	ResolvedAt        sql.NullTime
	ResolvedBy        uuid.NullUUID
}

// ReviewPinLink represents the review_pin_links table, tying a pin to an
// externally-owned billing document.
type ReviewPinLink struct {
	ID         uuid.UUID
	PinID      uuid.UUID
	LinkType   string
	DocumentID uuid.UUID
	AddedBy    uuid.UUID
	CreatedAt  time.Time
}

func (ReviewPin) TableName() string {
	return "review_pins"
}

func (ReviewPinLink) TableName() string {
	return "review_pin_links"
}

// ValidLinkType reports whether t names a billing document type.
func ValidLinkType(t string) bool {
	return t == LinkInvoice || t == LinkQuote || t == LinkReceipt
}
