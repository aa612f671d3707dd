package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/internal/domain/chat"
	chaterrors "backoffice-chat/pkg/errors"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *chat.Conversation) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (chat.Conversation, error) {
	var c chat.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Conversation{}, chaterrors.ErrNotFound
		}
		return chat.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) FindCustomerDM(ctx context.Context, customerID uuid.UUID) (chat.Conversation, error) {
	var c chat.Conversation
	err := r.db.WithContext(ctx).
		Where("type = ? AND customer_id = ? AND deleted_at IS NULL", chat.TypeCustomerDM, customerID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Conversation{}, chaterrors.ErrNotFound
		}
		return chat.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Conversation{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Conversation{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) ListForActor(ctx context.Context, a actor.Actor, page, limit int) ([]chat.Conversation, int64, error) {
	var conversations []chat.Conversation
	var total int64

	sub := r.db.Model(&chat.Participant{}).
		Select("conversation_id").
		Where("left_at IS NULL")
	if a.IsCustomer() {
		sub = sub.Where("customer_id = ?", a.CustomerID)
	} else {
		sub = sub.Where("staff_id = ?", a.StaffID)
	}

	q := r.db.WithContext(ctx).
		Model(&chat.Conversation{}).
		Where("id IN (?) AND deleted_at IS NULL", sub)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	if err := q.
		Order("COALESCE(last_message_at, created_at) DESC").
		Offset(offset).
		Limit(limit).
		Find(&conversations).Error; err != nil {
		return nil, 0, err
	}

	return conversations, total, nil
}

func (r *PostgresConversationRepository) AddParticipant(ctx context.Context, p *chat.Participant) error {
	if err := p.Validate(); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chaterrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) FindActiveParticipant(ctx context.Context, conversationID uuid.UUID, a actor.Actor) (chat.Participant, error) {
	var p chat.Participant
	q := r.db.WithContext(ctx).
		Where("conversation_id = ? AND left_at IS NULL", conversationID)
	if a.IsCustomer() {
		q = q.Where("customer_id = ?", a.CustomerID)
	} else {
		q = q.Where("staff_id = ?", a.StaffID)
	}
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Participant{}, chaterrors.ErrNotFound
		}
		return chat.Participant{}, err
	}
	return p, nil
}

func (r *PostgresConversationRepository) MarkLeft(ctx context.Context, participantID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Participant{}).
		Where("id = ? AND left_at IS NULL", participantID).
		Update("left_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) UpdateLastRead(ctx context.Context, participantID, messageID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Participant{}).
		Where("id = ? AND left_at IS NULL", participantID).
		Update("last_read_message_id", messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) GetActiveParticipants(ctx context.Context, conversationID uuid.UUID) ([]chat.Participant, error) {
	var participants []chat.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND left_at IS NULL", conversationID).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}
