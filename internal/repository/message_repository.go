package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backoffice-chat/internal/domain/chat"
	chaterrors "backoffice-chat/pkg/errors"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *chat.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error) {
	var m chat.Message
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, chaterrors.ErrNotFound
		}
		return chat.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) UpdateBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"body":      body,
			"edited_at": editedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&chat.Message{}).
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

func (r *PostgresMessageRepository) FindByConversationOrdered(ctx context.Context, conversationID uuid.UUID, before, after uuid.UUID, limit int) ([]chat.Message, error) {
	var messages []chat.Message

	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID)

	if before != uuid.Nil {
		cursor := r.db.Model(&chat.Message{}).
			Select("created_at").
			Where("id = ?", before)
		q = q.Where("(created_at, id) < ((?), ?)", cursor, before)
	}
	if after != uuid.Nil {
		cursor := r.db.Model(&chat.Message{}).
			Select("created_at").
			Where("id = ?", after)
		q = q.Where("(created_at, id) > ((?), ?)", cursor, after)
	}

	err := q.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
