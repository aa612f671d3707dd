package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backoffice-chat/internal/domain/chat"
	"backoffice-chat/internal/domain/directory"
	chaterrors "backoffice-chat/pkg/errors"
)

type PostgresDirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func (r *PostgresDirectoryRepository) ActiveCustomers(ctx context.Context) ([]directory.Customer, error) {
	var customers []directory.Customer
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND deleted_at IS NULL", true).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *PostgresDirectoryRepository) ActiveStaff(ctx context.Context) ([]directory.StaffUser, error) {
	var staff []directory.StaffUser
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND deleted_at IS NULL", true).
		Find(&staff).Error
	if err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *PostgresDirectoryRepository) GetCustomer(ctx context.Context, id uuid.UUID) (directory.Customer, error) {
	var c directory.Customer
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return directory.Customer{}, chaterrors.ErrNotFound
		}
		return directory.Customer{}, err
	}
	return c, nil
}

func (r *PostgresDirectoryRepository) GetStaff(ctx context.Context, id uuid.UUID) (directory.StaffUser, error) {
	var s directory.StaffUser
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return directory.StaffUser{}, chaterrors.ErrNotFound
		}
		return directory.StaffUser{}, err
	}
	return s, nil
}

type PostgresBillingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &PostgresBillingRepository{db: db}
}

func billingTable(linkType string) (string, bool) {
	switch linkType {
	case chat.LinkInvoice:
		return "invoices", true
	case chat.LinkQuote:
		return "quotes", true
	case chat.LinkReceipt:
		return "receipts", true
	}
	return "", false
}

func (r *PostgresBillingRepository) GetDocument(ctx context.Context, linkType string, id uuid.UUID) (directory.BillingDocument, error) {
	table, ok := billingTable(linkType)
	if !ok {
		return directory.BillingDocument{}, chaterrors.ErrValidation
	}

	var doc directory.BillingDocument
	err := r.db.WithContext(ctx).
		Table(table).
		Select("id", "customer_id", "number", "issued_at").
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return directory.BillingDocument{}, chaterrors.ErrNotFound
		}
		return directory.BillingDocument{}, err
	}
	return doc, nil
}
