package service

import (
	"context"
	"log/slog"

	"kindred/internal/models"
	"kindred/internal/pagination"
	"kindred/internal/repository"
)

// GraphService answers relationship questions (blocks, follows, mutes,
// kinship) and applies the block visibility rule for every other service.
type GraphService struct {
	store         repository.Store
	notifications *NotificationService
	logger        *slog.Logger
}

// NewGraphService returns a new GraphService.
func NewGraphService(store repository.Store, notifications *NotificationService, logger *slog.Logger) *GraphService {
	return &GraphService{store: store, notifications: notifications, logger: logger}
}

// EdgeInput names a directed edge from ActorID to TargetID.
type EdgeInput struct {
	ActorID  string `validate:"required"`
	TargetID string `validate:"required,uuid"`
}

func (in EdgeInput) check() error {
	if err := validateInput(in); err != nil {
		return err
	}
	if in.ActorID == in.TargetID {
		return models.NewValidationError("cannot target yourself")
	}
	return nil
}

// AreBlocked reports whether either profile has blocked the other.
func (s *GraphService) AreBlocked(ctx context.Context, a, b string) (bool, error) {
	return s.store.Graph().IsBlockedEitherWay(ctx, a, b)
}

// BlockedSetFor returns everyone profileID blocked or was blocked by. It is
// read fresh on every call.
func (s *GraphService) BlockedSetFor(ctx context.Context, profileID string) ([]string, error) {
	return s.store.Graph().BlockedSet(ctx, profileID)
}

func requireProfile(ctx context.Context, store repository.Store, id string) error {
	ok, err := store.Profiles().Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Profile", id)
	}
	return nil
}

func requireNotBlocked(ctx context.Context, store repository.Store, a, b string) error {
	blocked, err := store.Graph().IsBlockedEitherWay(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return models.NewForbiddenError("interaction is not allowed between these profiles")
	}
	return nil
}

// Follow makes ActorID follow TargetID. Following twice is a no-op, and only
// the first follow notifies.
func (s *GraphService) Follow(ctx context.Context, in EdgeInput) error {
	if err := in.check(); err != nil {
		return err
	}
	if err := requireProfile(ctx, s.store, in.TargetID); err != nil {
		return err
	}
	if err := requireNotBlocked(ctx, s.store, in.ActorID, in.TargetID); err != nil {
		return err
	}

	created, err := s.store.Graph().UpsertFollow(ctx, in.ActorID, in.TargetID)
	if err != nil {
		return err
	}
	if created {
		s.notifications.notifyAfterCommit(ctx, NotifyInput{
			RecipientID: in.TargetID,
			SenderID:    in.ActorID,
			Type:        models.NotificationFollow,
		})
	}
	return nil
}

// Unfollow is idempotent.
func (s *GraphService) Unfollow(ctx context.Context, in EdgeInput) error {
	if err := in.check(); err != nil {
		return err
	}
	return s.store.Graph().DeleteFollow(ctx, in.ActorID, in.TargetID)
}

// Block records the block and drops follows in both directions atomically.
func (s *GraphService) Block(ctx context.Context, in EdgeInput) error {
	if err := in.check(); err != nil {
		return err
	}
	if err := requireProfile(ctx, s.store, in.TargetID); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Graph().UpsertBlock(ctx, in.ActorID, in.TargetID); err != nil {
			return err
		}
		return tx.Graph().DeleteFollowsBetween(ctx, in.ActorID, in.TargetID)
	})
}

func (s *GraphService) Unblock(ctx context.Context, in EdgeInput) error {
	if err := in.check(); err != nil {
		return err
	}
	return s.store.Graph().DeleteBlock(ctx, in.ActorID, in.TargetID)
}

// Mute hides TargetID's posts from ActorID's feed only.
func (s *GraphService) Mute(ctx context.Context, in EdgeInput) error {
	if err := in.check(); err != nil {
		return err
	}
	if err := requireProfile(ctx, s.store, in.TargetID); err != nil {
		return err
	}
	return s.store.Graph().UpsertMute(ctx, in.ActorID, in.TargetID)
}

func (s *GraphService) Unmute(ctx context.Context, in EdgeInput) error {
	if err := in.check(); err != nil {
		return err
	}
	return s.store.Graph().DeleteMute(ctx, in.ActorID, in.TargetID)
}

// Friendship states reported by Edge.
const (
	FriendshipNone            = "none"
	FriendshipFriends         = "friends"
	FriendshipPendingSent     = "pending_sent"
	FriendshipPendingReceived = "pending_received"
)

// Edge is the viewer's relationship to another profile.
type Edge struct {
	IsFollowing  bool    `json:"isFollowing"`
	IsFollowedBy bool    `json:"isFollowedBy"`
	HasBlocked   bool    `json:"hasBlocked"`
	IsBlockedBy  bool    `json:"isBlockedBy"`
	IsMuted      bool    `json:"isMuted"`
	Friendship   string  `json:"friendship"`
	RequestID    *string `json:"requestId,omitempty"`
}

// Edge describes how the viewer relates to the target.
func (s *GraphService) Edge(ctx context.Context, in EdgeInput) (*Edge, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	if err := requireProfile(ctx, s.store, in.TargetID); err != nil {
		return nil, err
	}

	g := s.store.Graph()
	var (
		e   Edge
		err error
	)
	if e.IsFollowing, err = g.IsFollowing(ctx, in.ActorID, in.TargetID); err != nil {
		return nil, err
	}
	if e.IsFollowedBy, err = g.IsFollowing(ctx, in.TargetID, in.ActorID); err != nil {
		return nil, err
	}
	if e.HasBlocked, err = g.HasBlocked(ctx, in.ActorID, in.TargetID); err != nil {
		return nil, err
	}
	if e.IsBlockedBy, err = g.HasBlocked(ctx, in.TargetID, in.ActorID); err != nil {
		return nil, err
	}
	if e.IsMuted, err = g.HasMuted(ctx, in.ActorID, in.TargetID); err != nil {
		return nil, err
	}

	e.Friendship = FriendshipNone
	friendship, err := g.GetFriendship(ctx, in.ActorID, in.TargetID)
	if err != nil {
		return nil, err
	}
	if friendship != nil {
		e.Friendship = FriendshipFriends
		return &e, nil
	}

	pending, err := s.store.FriendRequests().FindPendingBetween(ctx, in.ActorID, in.TargetID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		e.Friendship = FriendshipPendingReceived
		if pending.RequesterID == in.ActorID {
			e.Friendship = FriendshipPendingSent
		}
		e.RequestID = &pending.ID
	}
	return &e, nil
}

// ListInput pages through a list owned by OwnerID as seen by ViewerID.
type ListInput struct {
	OwnerID  string `validate:"required,uuid"`
	ViewerID string `validate:"required"`
	Page     pagination.Request
}

// prepareList validates in and returns the viewer's blocked set, refusing
// lists owned by a profile on the other side of a block.
func prepareList(ctx context.Context, store repository.Store, in ListInput) ([]string, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := requireProfile(ctx, store, in.OwnerID); err != nil {
		return nil, err
	}
	blocked, err := store.Graph().BlockedSet(ctx, in.ViewerID)
	if err != nil {
		return nil, err
	}
	for _, id := range blocked {
		if id == in.OwnerID {
			return nil, models.NewForbiddenError("interaction is not allowed between these profiles")
		}
	}
	return blocked, nil
}

// ListFollowers returns the owner's followers newest-first, minus profiles
// in the viewer's blocked set.
func (s *GraphService) ListFollowers(ctx context.Context, in ListInput) (pagination.Page[models.ProfileSummary], error) {
	blocked, err := prepareList(ctx, s.store, in)
	if err != nil {
		return pagination.Page[models.ProfileSummary]{}, err
	}
	limit := in.Page.Clamp(pagination.MaxLimit)
	rows, err := s.store.Graph().ListFollowers(ctx, in.OwnerID, blocked, limit, in.Page.Cursor)
	if err != nil {
		return pagination.Page[models.ProfileSummary]{}, err
	}
	page := pagination.Build(rows, limit, func(f models.Follow) string { return f.ID })
	return pagination.Map(page, func(f models.Follow) models.ProfileSummary { return summaryOf(f.Follower) }), nil
}

// ListFollowing returns who the owner follows newest-first, minus profiles
// in the viewer's blocked set.
func (s *GraphService) ListFollowing(ctx context.Context, in ListInput) (pagination.Page[models.ProfileSummary], error) {
	blocked, err := prepareList(ctx, s.store, in)
	if err != nil {
		return pagination.Page[models.ProfileSummary]{}, err
	}
	limit := in.Page.Clamp(pagination.MaxLimit)
	rows, err := s.store.Graph().ListFollowing(ctx, in.OwnerID, blocked, limit, in.Page.Cursor)
	if err != nil {
		return pagination.Page[models.ProfileSummary]{}, err
	}
	page := pagination.Build(rows, limit, func(f models.Follow) string { return f.ID })
	return pagination.Map(page, func(f models.Follow) models.ProfileSummary { return summaryOf(f.Followee) }), nil
}

func summaryOf(p *models.Profile) models.ProfileSummary {
	if p == nil {
		return models.ProfileSummary{}
	}
	return p.Summary()
}

// KinshipInput is a claim that TargetID is ActorID's Relation.
type KinshipInput struct {
	ActorID  string             `validate:"required"`
	TargetID string             `validate:"required,uuid"`
	Relation models.KinshipType `validate:"required,oneof=PARENT CHILD SIBLING SPOUSE GRANDPARENT GRANDCHILD COUSIN UNCLE_AUNT NEPHEW_NIECE OTHER"`
}

// CreateKinship records an unverified claim from the actor to the target.
func (s *GraphService) CreateKinship(ctx context.Context, in KinshipInput) (*models.Kinship, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.ActorID == in.TargetID {
		return nil, models.NewValidationError("cannot claim kinship with yourself")
	}
	if err := requireProfile(ctx, s.store, in.TargetID); err != nil {
		return nil, err
	}
	if err := requireNotBlocked(ctx, s.store, in.ActorID, in.TargetID); err != nil {
		return nil, err
	}

	k := &models.Kinship{ProfileIDA: in.ActorID, ProfileIDB: in.TargetID, RelationAtoB: in.Relation}
	if err := s.store.Graph().CreateKinship(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

// VerifyKinship lets the claimed relative confirm a claim and notifies the claimant.
func (s *GraphService) VerifyKinship(ctx context.Context, kinshipID, actorID string) (*models.Kinship, error) {
	k, err := s.store.Graph().GetKinship(ctx, kinshipID)
	if err != nil {
		return nil, err
	}
	if k.ProfileIDB != actorID {
		return nil, models.NewForbiddenError("only the claimed relative can verify a kinship")
	}
	if k.Verified {
		return k, nil
	}

	if err := s.store.Graph().VerifyKinship(ctx, k.ID, actorID); err != nil {
		return nil, err
	}
	k.Verified = true
	k.VerifiedByID = &actorID

	s.notifications.notifyAfterCommit(ctx, NotifyInput{
		RecipientID: k.ProfileIDA,
		SenderID:    actorID,
		Type:        models.NotificationKinshipVerified,
		KinshipID:   k.ID,
	})
	return k, nil
}

// DeleteKinship lets either side withdraw the claim.
func (s *GraphService) DeleteKinship(ctx context.Context, kinshipID, actorID string) error {
	k, err := s.store.Graph().GetKinship(ctx, kinshipID)
	if err != nil {
		return err
	}
	if k.ProfileIDA != actorID && k.ProfileIDB != actorID {
		return models.NewForbiddenError("only a party to the kinship can delete it")
	}
	return s.store.Graph().DeleteKinship(ctx, k.ID)
}

// KinshipView is a kinship seen from one side.
type KinshipView struct {
	ID       string                `json:"id"`
	Relative models.ProfileSummary `json:"relative"`
	Relation models.KinshipType    `json:"relation"`
	IAmA     bool                  `json:"iAmA"`
	Verified bool                  `json:"verified"`
}

// ListKinships returns the actor's kinships with the other party as Relative.
func (s *GraphService) ListKinships(ctx context.Context, actorID string) ([]KinshipView, error) {
	rows, err := s.store.Graph().ListKinships(ctx, actorID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.store.Graph().BlockedSet(ctx, actorID)
	if err != nil {
		return nil, err
	}
	hidden := toSet(blocked)

	views := make([]KinshipView, 0, len(rows))
	for _, k := range rows {
		iAmA := k.ProfileIDA == actorID
		relative := k.ProfileB
		if !iAmA {
			relative = k.ProfileA
		}
		other := k.ProfileIDB
		if !iAmA {
			other = k.ProfileIDA
		}
		if _, skip := hidden[other]; skip {
			continue
		}
		views = append(views, KinshipView{
			ID:       k.ID,
			Relative: summaryOf(relative),
			Relation: k.RelationAtoB,
			IAmA:     iAmA,
			Verified: k.Verified,
		})
	}
	return views, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
