package service

import (
	"context"
	"log/slog"
	"strings"

	"kindred/internal/models"
	"kindred/internal/repository"
)

// ProfileService registers and reads profiles.
type ProfileService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewProfileService returns a new ProfileService.
func NewProfileService(store repository.Store, logger *slog.Logger) *ProfileService {
	return &ProfileService{store: store, logger: logger}
}

type RegisterInput struct {
	UserID    string `validate:"required,max=128"`
	Username  string `validate:"required,min=3,max=64,alphanum"`
	FirstName string `validate:"max=100"`
	LastName  string `validate:"max=100"`
	AvatarURL string `validate:"omitempty,url"`
	Bio       string `validate:"max=1000"`
}

// Register creates the profile for an identity subject. A taken username or
// an identity that already has a profile is a conflict.
func (s *ProfileService) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	profile := &models.Profile{
		UserID:    in.UserID,
		Username:  strings.ToLower(in.Username),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		AvatarURL: in.AvatarURL,
		Bio:       in.Bio,
	}
	if err := s.store.Profiles().Create(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "profile registered", slog.String("profile_id", profile.ID))
	return profile, nil
}

// Get returns a profile unless a block stands between it and the viewer.
func (s *ProfileService) Get(ctx context.Context, id, viewerID string) (*models.Profile, error) {
	profile, err := s.store.Profiles().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerID != "" && viewerID != id {
		blocked, err := s.store.Graph().IsBlockedEitherWay(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, models.NewNotFoundError("Profile", id)
		}
	}
	return profile, nil
}
