package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"backoffice-chat/config"
	"backoffice-chat/internal/domain/chat"
)

// DB is the shared handle, set by Connect. Kept for the health check;
// everything else receives the handle explicitly.
var DB *gorm.DB

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic database object: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	return db, nil
}

// HealthCheck pings the database through the shared handle.
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Migrate creates the chat-owned tables and the partial unique indexes
// backing the in-transaction invariant checks. The customer, staff and
// billing tables belong to the surrounding application and are not
// touched here.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&chat.Conversation{},
		&chat.Participant{},
		&chat.Message{},
		&chat.ReviewPin{},
		&chat.ReviewPinLink{},
	); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_customer_dm
			ON conversations (customer_id)
			WHERE type = 'CUSTOMER_DM' AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_active_staff
			ON participants (conversation_id, staff_id)
			WHERE left_at IS NULL AND staff_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_active_customer
			ON participants (conversation_id, customer_id)
			WHERE left_at IS NULL AND customer_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_pins_dedup
			ON review_pins (source_message_id, matched_entity_type, matched_entity_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_pin_links_dedup
			ON review_pin_links (pin_id, link_type, document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages (conversation_id, created_at, id)`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
