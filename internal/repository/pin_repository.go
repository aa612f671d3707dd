package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backoffice-chat/internal/domain/chat"
	chaterrors "backoffice-chat/pkg/errors"
)

type PostgresPinRepository struct {
	db *gorm.DB
}

func NewPinRepository(db *gorm.DB) PinRepository {
	return &PostgresPinRepository{db: db}
}

func (r *PostgresPinRepository) CreatePin(ctx context.Context, p *chat.ReviewPin) error {
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresPinRepository) GetPin(ctx context.Context, id uuid.UUID) (chat.ReviewPin, error) {
	var p chat.ReviewPin
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.ReviewPin{}, chaterrors.ErrNotFound
		}
		return chat.ReviewPin{}, err
	}
	return p, nil
}

func (r *PostgresPinRepository) FindPin(ctx context.Context, messageID uuid.UUID, entityType string, entityID uuid.UUID) (chat.ReviewPin, error) {
	var p chat.ReviewPin
	err := r.db.WithContext(ctx).
		Where("source_message_id = ? AND matched_entity_type = ? AND matched_entity_id = ?",
			messageID, entityType, entityID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.ReviewPin{}, chaterrors.ErrNotFound
		}
		return chat.ReviewPin{}, err
	}
	return p, nil
}

func (r *PostgresPinRepository) UpdatePinStatus(ctx context.Context, p chat.ReviewPin) error {
	res := r.db.WithContext(ctx).
		Model(&chat.ReviewPin{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"status":      p.Status,
			"resolved_at": p.ResolvedAt,
			"resolved_by": p.ResolvedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresPinRepository) ListPins(ctx context.Context, conversationID uuid.UUID, status string, page, limit int) ([]chat.ReviewPin, int64, error) {
	var pins []chat.ReviewPin
	var total int64

	q := r.db.WithContext(ctx).Model(&chat.ReviewPin{})
	if conversationID != uuid.Nil {
		q = q.Where("conversation_id = ?", conversationID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	if err := q.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&pins).Error; err != nil {
		return nil, 0, err
	}
	return pins, total, nil
}

func (r *PostgresPinRepository) CreateLink(ctx context.Context, l *chat.ReviewPinLink) error {
	res := r.db.WithContext(ctx).Create(l)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresPinRepository) GetLink(ctx context.Context, id uuid.UUID) (chat.ReviewPinLink, error) {
	var l chat.ReviewPinLink
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.ReviewPinLink{}, chaterrors.ErrNotFound
		}
		return chat.ReviewPinLink{}, err
	}
	return l, nil
}

func (r *PostgresPinRepository) FindLink(ctx context.Context, pinID uuid.UUID, linkType string, documentID uuid.UUID) (chat.ReviewPinLink, error) {
	var l chat.ReviewPinLink
	err := r.db.WithContext(ctx).
		Where("pin_id = ? AND link_type = ? AND document_id = ?", pinID, linkType, documentID).
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.ReviewPinLink{}, chaterrors.ErrNotFound
		}
		return chat.ReviewPinLink{}, err
	}
	return l, nil
}

func (r *PostgresPinRepository) DeleteLink(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&chat.ReviewPinLink{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresPinRepository) ListLinks(ctx context.Context, pinID uuid.UUID) ([]chat.ReviewPinLink, error) {
	var links []chat.ReviewPinLink
	err := r.db.WithContext(ctx).
		Where("pin_id = ?", pinID).
		Order("created_at ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}
