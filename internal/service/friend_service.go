package service

import (
	"context"
	"log/slog"
	"time"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/pagination"
	"kindred/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FriendService runs the friend request state machine:
// PENDING -> ACCEPTED | DECLINED | CANCELLED, with Friendship rows created
// only by an accept.
type FriendService struct {
	store         repository.Store
	notifications *NotificationService
	logger        *slog.Logger
	now           func() time.Time
}

// NewFriendService returns a new FriendService.
func NewFriendService(store repository.Store, notifications *NotificationService, logger *slog.Logger) *FriendService {
	return &FriendService{
		store:         store,
		notifications: notifications,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// PairInput names two profiles from the actor's point of view.
type PairInput struct {
	ActorID string `validate:"required"`
	OtherID string `validate:"required,uuid"`
}

// RespondInput is the addressee acting on a request.
type RespondInput struct {
	RequestID string `validate:"required,uuid"`
	ActorID   string `validate:"required"`
}

// Send creates a PENDING request from ActorID to OtherID.
func (s *FriendService) Send(ctx context.Context, in PairInput) (req *models.FriendRequest, err error) {
	ctx, span := observability.StartSpan(ctx, "FriendService.Send",
		attribute.String("requester_id", in.ActorID), attribute.String("addressee_id", in.OtherID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.ActorID == in.OtherID {
		return nil, models.NewValidationError("Cannot send friend request to yourself")
	}
	if err := requireProfile(ctx, s.store, in.OtherID); err != nil {
		return nil, err
	}
	if err := requireNotBlocked(ctx, s.store, in.ActorID, in.OtherID); err != nil {
		return nil, err
	}

	friendship, err := s.store.Graph().GetFriendship(ctx, in.ActorID, in.OtherID)
	if err != nil {
		return nil, err
	}
	if friendship != nil {
		return nil, models.NewConflictError("You are already friends")
	}

	pending, err := s.store.FriendRequests().FindPendingBetween(ctx, in.ActorID, in.OtherID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		if pending.RequesterID == in.ActorID {
			return nil, models.NewConflictError("Friend request already sent")
		}
		return nil, models.NewConflictError("You already have a pending friend request from this profile")
	}

	req = &models.FriendRequest{
		RequesterID: in.ActorID,
		AddresseeID: in.OtherID,
		Status:      models.FriendRequestPending,
	}
	// The partial unique index rejects a racing duplicate with a Conflict.
	if err := s.store.FriendRequests().Create(ctx, req); err != nil {
		return nil, err
	}
	observability.FriendRequestTransitions.WithLabelValues(string(models.FriendRequestPending)).Inc()

	s.notifications.notifyAfterCommit(ctx, NotifyInput{
		RecipientID: in.OtherID,
		SenderID:    in.ActorID,
		Type:        models.NotificationFriendRequest,
		RequestID:   req.ID,
	})
	return req, nil
}

// loadForResponse fetches the request and checks the actor may respond to it.
func (s *FriendService) loadForResponse(ctx context.Context, in RespondInput) (*models.FriendRequest, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	req, err := s.store.FriendRequests().GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req.AddresseeID != in.ActorID {
		return nil, models.NewForbiddenError("You can only respond to friend requests sent to you")
	}
	if req.Status != models.FriendRequestPending {
		return nil, models.NewConflictError("Friend request is no longer pending")
	}
	return req, nil
}

// Accept marks the request ACCEPTED and creates the Friendship in one
// transaction. Of two concurrent accepts exactly one wins; the other gets a
// Conflict.
func (s *FriendService) Accept(ctx context.Context, in RespondInput) (friendship *models.Friendship, err error) {
	ctx, span := observability.StartSpan(ctx, "FriendService.Accept", attribute.String("request_id", in.RequestID))
	defer func() { observability.EndSpan(span, err) }()

	req, err := s.loadForResponse(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := requireNotBlocked(ctx, s.store, req.RequesterID, req.AddresseeID); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		ok, err := tx.FriendRequests().Transition(ctx, req.ID, models.FriendRequestAccepted, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflictError("Friend request is no longer pending")
		}
		friendship, err = tx.Graph().UpsertFriendship(ctx, req.RequesterID, req.AddresseeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.FriendRequestTransitions.WithLabelValues(string(models.FriendRequestAccepted)).Inc()

	s.notifications.notifyAfterCommit(ctx, NotifyInput{
		RecipientID: req.RequesterID,
		SenderID:    req.AddresseeID,
		Type:        models.NotificationFriendAccept,
		RequestID:   req.ID,
	})
	return friendship, nil
}

// Decline marks the request DECLINED.
func (s *FriendService) Decline(ctx context.Context, in RespondInput) (*models.FriendRequest, error) {
	req, err := s.loadForResponse(ctx, in)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.FriendRequests().Transition(ctx, req.ID, models.FriendRequestDeclined, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflictError("Friend request is no longer pending")
	}
	observability.FriendRequestTransitions.WithLabelValues(string(models.FriendRequestDeclined)).Inc()

	return s.store.FriendRequests().GetByID(ctx, req.ID)
}

// Cancel withdraws the actor's own pending request to OtherID and retracts
// its notification.
func (s *FriendService) Cancel(ctx context.Context, in PairInput) (*models.FriendRequest, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	req, err := s.store.FriendRequests().FindPendingFrom(ctx, in.ActorID, in.OtherID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewNotFoundError("Pending friend request", in.OtherID)
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		ok, err := tx.FriendRequests().Transition(ctx, req.ID, models.FriendRequestCancelled, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflictError("Friend request is no longer pending")
		}
		_, err = s.notifications.Retract(ctx, tx, NotifyInput{
			RecipientID: req.AddresseeID,
			SenderID:    req.RequesterID,
			Type:        models.NotificationFriendRequest,
			RequestID:   req.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.FriendRequestTransitions.WithLabelValues(string(models.FriendRequestCancelled)).Inc()

	return s.store.FriendRequests().GetByID(ctx, req.ID)
}

// Unfriend removes the Friendship. Request history is left untouched.
func (s *FriendService) Unfriend(ctx context.Context, in PairInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	deleted, err := s.store.Graph().DeleteFriendship(ctx, in.ActorID, in.OtherID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NewNotFoundError("Friendship", in.OtherID)
	}
	return nil
}

// ListIncoming returns pending requests addressed to the profile.
func (s *FriendService) ListIncoming(ctx context.Context, profileID string) ([]models.FriendRequest, error) {
	blocked, err := s.store.Graph().BlockedSet(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.store.FriendRequests().ListIncoming(ctx, profileID, blocked)
}

// ListOutgoing returns pending requests the profile sent.
func (s *FriendService) ListOutgoing(ctx context.Context, profileID string) ([]models.FriendRequest, error) {
	blocked, err := s.store.Graph().BlockedSet(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.store.FriendRequests().ListOutgoing(ctx, profileID, blocked)
}

// ListFriends pages through the owner's friends, hiding profiles in the
// viewer's blocked set. The cursor is the friendship id.
func (s *FriendService) ListFriends(ctx context.Context, in ListInput) (pagination.Page[models.ProfileSummary], error) {
	blocked, err := prepareList(ctx, s.store, in)
	if err != nil {
		return pagination.Page[models.ProfileSummary]{}, err
	}
	limit := in.Page.Clamp(pagination.MaxLimit)
	rows, err := s.store.Graph().ListFriendships(ctx, in.OwnerID, blocked, limit, in.Page.Cursor)
	if err != nil {
		return pagination.Page[models.ProfileSummary]{}, err
	}
	page := pagination.Build(rows, limit, func(f models.Friendship) string { return f.ID })
	return pagination.Map(page, func(f models.Friendship) models.ProfileSummary {
		if f.UserAID == in.OwnerID {
			return summaryOf(f.UserB)
		}
		return summaryOf(f.UserA)
	}), nil
}

// FriendCount returns how many accepted friendships the profile has.
func (s *FriendService) FriendCount(ctx context.Context, profileID string) (int64, error) {
	return s.store.Graph().CountFriendships(ctx, profileID)
}
