package repository

import (
	"context"

	"gorm.io/gorm"
)

// PostgresStore is the gorm-backed Store. WithTransaction rebuilds the
// repository set on the transaction handle instead of mutating shared
// fields, so concurrent callers never observe each other's transactions.
type PostgresStore struct {
	db            *gorm.DB
	conversations ConversationRepository
	messages      MessageRepository
	pins          PinRepository
	directory     DirectoryRepository
	billing       BillingRepository
}

func NewStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{
		db:            db,
		conversations: NewConversationRepository(db),
		messages:      NewMessageRepository(db),
		pins:          NewPinRepository(db),
		directory:     NewDirectoryRepository(db),
		billing:       NewBillingRepository(db),
	}
}

func (s *PostgresStore) Conversations() ConversationRepository { return s.conversations }
func (s *PostgresStore) Messages() MessageRepository           { return s.messages }
func (s *PostgresStore) Pins() PinRepository                   { return s.pins }
func (s *PostgresStore) Directory() DirectoryRepository        { return s.directory }
func (s *PostgresStore) Billing() BillingRepository            { return s.billing }

func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
