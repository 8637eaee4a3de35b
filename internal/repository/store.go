// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"kindred/internal/models"

	"gorm.io/gorm"
)

// Store groups the repositories that must share a transaction.
type Store interface {
	Profiles() ProfileRepository
	Graph() GraphRepository
	FriendRequests() FriendRequestRepository
	Posts() PostRepository
	Reactions() ReactionRepository
	Notifications() NotificationRepository
	Chat() ChatRepository
	Lineages() LineageRepository

	// Transaction runs fn against a Store bound to one database transaction.
	// fn's error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Profiles() ProfileRepository             { return NewProfileRepository(s.db) }
func (s *store) Graph() GraphRepository                   { return NewGraphRepository(s.db) }
func (s *store) FriendRequests() FriendRequestRepository { return NewFriendRequestRepository(s.db) }
func (s *store) Posts() PostRepository                    { return NewPostRepository(s.db) }
func (s *store) Reactions() ReactionRepository            { return NewReactionRepository(s.db) }
func (s *store) Notifications() NotificationRepository   { return NewNotificationRepository(s.db) }
func (s *store) Chat() ChatRepository                     { return NewChatRepository(s.db) }
func (s *store) Lineages() LineageRepository              { return NewLineageRepository(s.db) }

func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

// translate maps gorm errors onto AppErrors. Errors that already are
// AppErrors pass through.
func translate(err error, resource string, id interface{}) error {
	var appErr *models.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &models.AppError{Code: models.CodeConflict, Message: resource + " already exists", Err: err}
	default:
		return models.NewInternalError(err)
	}
}

// firstOrNil runs q.First into dest, returning (false, nil) when no row matches.
func firstOrNil(q *gorm.DB, dest interface{}) (bool, error) {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return true, nil
}
