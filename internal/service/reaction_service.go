package service

import (
	"context"
	"errors"
	"log/slog"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Reaction toggle outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeRemoved   = "removed"
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
)

// errReactionRace means the row read at the start of a toggle was inserted,
// removed or changed by a concurrent toggle before this one wrote.
var errReactionRace = errors.New("concurrent reaction change")

// ReactInput is one profile reacting to a post or comment.
type ReactInput struct {
	ActorID   string              `validate:"required"`
	Kind      models.SubjectKind  `validate:"required,oneof=POST COMMENT"`
	SubjectID string              `validate:"required,uuid"`
	Type      models.ReactionType `validate:"omitempty,oneof=LIKE LOVE LAUGH ANGRY SAD"`
}

// ReactionResult is the state after a toggle.
type ReactionResult struct {
	Reacted   bool                 `json:"reacted"`
	Type      *models.ReactionType `json:"type"`
	LikeCount int                  `json:"likeCount"`
	Outcome   string               `json:"outcome"`
}

// ReactionService toggles reactions while keeping the subject's like counter
// equal to its reaction rows and at most one live LIKE notification per
// (actor, subject).
type ReactionService struct {
	store         repository.Store
	notifications *NotificationService
	logger        *slog.Logger
}

// NewReactionService returns a new ReactionService.
func NewReactionService(store repository.Store, notifications *NotificationService, logger *slog.Logger) *ReactionService {
	return &ReactionService{store: store, notifications: notifications, logger: logger}
}

// reactionSubject is what the engine needs to know about the reacted entity.
type reactionSubject struct {
	ownerID   string
	postID    string
	commentID string
}

// loadSubject resolves the reacted entity and hides subjects whose post the
// actor may not see.
func (s *ReactionService) loadSubject(ctx context.Context, in ReactInput) (*reactionSubject, error) {
	var subj reactionSubject
	switch in.Kind {
	case models.SubjectPost:
		subj.postID = in.SubjectID
	case models.SubjectComment:
		comment, err := s.store.Posts().GetComment(ctx, in.SubjectID)
		if err != nil {
			return nil, err
		}
		subj.ownerID, subj.postID, subj.commentID = comment.ProfileID, comment.PostID, comment.ID
	default:
		return nil, models.NewValidationError("unknown subject kind")
	}

	post, err := s.store.Posts().GetPost(ctx, subj.postID)
	if err != nil {
		return nil, err
	}
	if in.Kind == models.SubjectPost {
		subj.ownerID = post.ProfileID
	}
	if err := requireAudience(ctx, s.store, post, in.ActorID); err != nil {
		return nil, err
	}
	return &subj, nil
}

func (subj *reactionSubject) likeNotification(actorID string) NotifyInput {
	return NotifyInput{
		RecipientID: subj.ownerID,
		SenderID:    actorID,
		Type:        models.NotificationLike,
		PostID:      subj.postID,
		CommentID:   subj.commentID,
	}
}

// React toggles the actor's reaction:
//   - no reaction: create it, count +1, notify the owner
//   - same type: remove it, count -1, retract the notification
//   - other type: switch the type in place, count unchanged
//
// A concurrent toggle of the same (subject, actor) is retried once from a
// fresh read.
func (s *ReactionService) React(ctx context.Context, in ReactInput) (result *ReactionResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ReactionService.React",
		attribute.String("subject_kind", string(in.Kind)), attribute.String("subject_id", in.SubjectID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = models.ReactionLike
	}

	subj, err := s.loadSubject(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := requireNotBlocked(ctx, s.store, in.ActorID, subj.ownerID); err != nil {
		return nil, err
	}

	var created *models.Notification
	for attempt := 0; attempt < 2; attempt++ {
		result, created, err = s.toggle(ctx, in, subj)
		if !errors.Is(err, errReactionRace) {
			break
		}
		observability.ReactionRetries.Inc()
	}
	if errors.Is(err, errReactionRace) {
		return nil, models.NewConflictError("reaction changed concurrently, try again")
	}
	if err != nil {
		return nil, err
	}

	observability.ReactionOutcomes.WithLabelValues(string(in.Kind), result.Outcome).Inc()
	s.notifications.Publish(ctx, created)
	return result, nil
}

func (s *ReactionService) toggle(ctx context.Context, in ReactInput, subj *reactionSubject) (*ReactionResult, *models.Notification, error) {
	var (
		result  ReactionResult
		created *models.Notification
	)

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Reactions().Find(ctx, in.Kind, in.SubjectID, in.ActorID)
		if err != nil {
			return err
		}

		switch {
		case existing == nil:
			if err := tx.Reactions().Create(ctx, in.Kind, in.SubjectID, in.ActorID, in.Type); err != nil {
				if models.IsCode(err, models.CodeConflict) {
					return errReactionRace
				}
				return err
			}
			count, err := tx.Reactions().AdjustLikeCount(ctx, in.Kind, in.SubjectID, 1)
			if err != nil {
				return err
			}
			t := in.Type
			result = ReactionResult{Reacted: true, Type: &t, LikeCount: count, Outcome: OutcomeCreated}
			if in.ActorID != subj.ownerID {
				created, err = s.notifications.Create(ctx, tx, subj.likeNotification(in.ActorID))
			}
			return err

		case existing.Type == in.Type:
			return s.remove(ctx, tx, in, subj, existing, &result)

		default:
			ok, err := tx.Reactions().UpdateType(ctx, in.Kind, existing.ID, in.Type)
			if err != nil {
				return err
			}
			if !ok {
				return errReactionRace
			}
			count, err := tx.Reactions().LikeCount(ctx, in.Kind, in.SubjectID)
			if err != nil {
				return err
			}
			t := in.Type
			result = ReactionResult{Reacted: true, Type: &t, LikeCount: count, Outcome: OutcomeChanged}
			if in.ActorID != subj.ownerID {
				created, err = s.notifications.Create(ctx, tx, subj.likeNotification(in.ActorID))
			}
			return err
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return &result, created, nil
}

func (s *ReactionService) remove(ctx context.Context, tx repository.Store, in ReactInput, subj *reactionSubject, existing *models.Reaction, result *ReactionResult) error {
	ok, err := tx.Reactions().Delete(ctx, in.Kind, existing.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errReactionRace
	}
	count, err := tx.Reactions().AdjustLikeCount(ctx, in.Kind, in.SubjectID, -1)
	if err != nil {
		return err
	}
	if _, err := s.notifications.Retract(ctx, tx, subj.likeNotification(in.ActorID)); err != nil {
		return err
	}
	*result = ReactionResult{Reacted: false, LikeCount: count, Outcome: OutcomeRemoved}
	return nil
}

// RemoveReaction deletes the actor's reaction whatever its type. Removing a
// reaction that does not exist is a no-op.
func (s *ReactionService) RemoveReaction(ctx context.Context, in ReactInput) (*ReactionResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	subj, err := s.loadSubject(ctx, in)
	if err != nil {
		return nil, err
	}

	var result ReactionResult
	for attempt := 0; attempt < 2; attempt++ {
		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			existing, err := tx.Reactions().Find(ctx, in.Kind, in.SubjectID, in.ActorID)
			if err != nil {
				return err
			}
			if existing == nil {
				count, err := tx.Reactions().LikeCount(ctx, in.Kind, in.SubjectID)
				result = ReactionResult{LikeCount: count, Outcome: OutcomeUnchanged}
				return err
			}
			return s.remove(ctx, tx, in, subj, existing, &result)
		})
		if !errors.Is(err, errReactionRace) {
			break
		}
		observability.ReactionRetries.Inc()
	}
	if errors.Is(err, errReactionRace) {
		return nil, models.NewConflictError("reaction changed concurrently, try again")
	}
	if err != nil {
		return nil, err
	}
	observability.ReactionOutcomes.WithLabelValues(string(in.Kind), result.Outcome).Inc()
	return &result, nil
}

// MyReaction returns the actor's current reaction on the subject.
func (s *ReactionService) MyReaction(ctx context.Context, in ReactInput) (*ReactionResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.loadSubject(ctx, in); err != nil {
		return nil, err
	}

	existing, err := s.store.Reactions().Find(ctx, in.Kind, in.SubjectID, in.ActorID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.Reactions().LikeCount(ctx, in.Kind, in.SubjectID)
	if err != nil {
		return nil, err
	}

	result := &ReactionResult{LikeCount: count, Outcome: OutcomeUnchanged}
	if existing != nil {
		t := existing.Type
		result.Reacted = true
		result.Type = &t
	}
	return result, nil
}
