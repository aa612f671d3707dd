package directory

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Read-only rows owned by the surrounding back-office application. The
// chat core consumes them to resolve mention candidates, enrich sender
// display info and validate pin links; it never writes them.

// Customer represents the customers table.
type Customer struct {
	ID        uuid.UUID
	Name      string
	IsActive  bool
	DeletedAt sql.NullTime
}

// StaffUser represents the staff_users table.
type StaffUser struct {
	ID        uuid.UUID
	FullName  string
	Role      string
	IsActive  bool
	DeletedAt sql.NullTime
}

// BillingDocument is the common projection of invoices, quotes and
// receipts used by pin-link validation.
type BillingDocument struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Number     string
	IssuedAt   time.Time
}

func (Customer) TableName() string {
	return "customers"
}

func (StaffUser) TableName() string {
	return "staff_users"
}
