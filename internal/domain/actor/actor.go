package actor

import (
	"github.com/google/uuid"
)

// Kind discriminates the two caller identities the core recognizes.
type Kind string

const (
	KindStaff    Kind = "STAFF"
	KindCustomer Kind = "CUSTOMER"
)

// Staff roles issued by the identity context.
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// Actor is the tagged union resolved once at the boundary and passed by
// value through the services. Exactly one of the id fields is meaningful,
// selected by Kind.
type Actor struct {
	Kind       Kind
	StaffID    uuid.UUID
	CustomerID uuid.UUID
	Role       string
}

func Staff(id uuid.UUID, role string) Actor {
	return Actor{Kind: KindStaff, StaffID: id, Role: role}
}

func Customer(id uuid.UUID) Actor {
	return Actor{Kind: KindCustomer, CustomerID: id}
}

func (a Actor) IsStaff() bool {
	return a.Kind == KindStaff
}

func (a Actor) IsCustomer() bool {
	return a.Kind == KindCustomer
}

// ID returns the identifier for whichever side of the union is set.
func (a Actor) ID() uuid.UUID {
	if a.Kind == KindCustomer {
		return a.CustomerID
	}
	return a.StaffID
}

// CanManagePins reports whether the staff role may resolve or reopen
// review pins. The surrounding authorization layer owns the policy; the
// core only checks the role it was handed.
func (a Actor) CanManagePins() bool {
	return a.Kind == KindStaff && (a.Role == RoleAdmin || a.Role == RoleManager)
}
