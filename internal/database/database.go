// Package database opens the relational store and manages its schema.
package database

import (
	"fmt"
	"log/slog"
	"time"

	"kindred/internal/config"
	"kindred/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// GormConfig is the gorm configuration shared by production and tests.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey.
func GormConfig(l *slog.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:         NewGormLogger(l),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Connect opens the PostgreSQL database described by cfg. Schema changes are
// left to Migrate.
func Connect(cfg *config.Config, l *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(l))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := configurePool(db); err != nil {
		return nil, err
	}

	l.Info("database connected", slog.String("host", cfg.DBHost), slog.String("name", cfg.DBName))
	return db, nil
}

func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Friendship{},
		&models.FriendRequest{},
		&models.Follow{},
		&models.Block{},
		&models.Mute{},
		&models.Kinship{},
		&models.Lineage{},
		&models.LineageMembership{},
		&models.Post{},
		&models.Comment{},
		&models.PostReaction{},
		&models.CommentReaction{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageRead{},
		&models.Notification{},
	}
}

// Migrate creates or updates every table and index, including the partial
// unique index on pending friend requests.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
