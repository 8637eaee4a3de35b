package service

import (
	"context"
	"log/slog"
	"strings"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/pagination"
	"kindred/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedService owns posts and their comment threads.
type FeedService struct {
	store         repository.Store
	notifications *NotificationService
	logger        *slog.Logger
}

// NewFeedService returns a new FeedService.
func NewFeedService(store repository.Store, notifications *NotificationService, logger *slog.Logger) *FeedService {
	return &FeedService{store: store, notifications: notifications, logger: logger}
}

type CreatePostInput struct {
	AuthorID   string            `validate:"required"`
	Content    string            `validate:"required,max=5000"`
	Visibility models.Visibility `validate:"omitempty,oneof=PUBLIC FOLLOWERS PRIVATE"`
}

func (s *FeedService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPublic
	}
	post := &models.Post{ProfileID: in.AuthorID, Content: in.Content, Visibility: in.Visibility}
	if err := s.store.Posts().CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// FeedInput asks for the viewer's feed, optionally narrowed to one author.
type FeedInput struct {
	ViewerID string `validate:"required"`
	AuthorID string `validate:"omitempty,uuid"`
	Page     pagination.Request
}

// ListFeed returns visible posts newest-first. Blocked profiles never appear.
// Muted profiles are hidden from the general feed but still reachable through
// the author filter.
func (s *FeedService) ListFeed(ctx context.Context, in FeedInput) (page pagination.Page[models.Post], err error) {
	ctx, span := observability.StartSpan(ctx, "FeedService.ListFeed", attribute.String("author_id", in.AuthorID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateInput(in); err != nil {
		return page, err
	}

	graph := s.store.Graph()
	exclude, err := graph.BlockedSet(ctx, in.ViewerID)
	if err != nil {
		return page, err
	}
	if in.AuthorID != "" {
		if _, ok := toSet(exclude)[in.AuthorID]; ok {
			return page, models.NewForbiddenError("interaction is not allowed between these profiles")
		}
	} else {
		muted, err := graph.MutedIDs(ctx, in.ViewerID)
		if err != nil {
			return page, err
		}
		exclude = append(exclude, muted...)
	}

	followees, err := graph.FolloweeIDs(ctx, in.ViewerID)
	if err != nil {
		return page, err
	}

	limit := in.Page.Clamp(pagination.MaxLimit)
	posts, err := s.store.Posts().ListFeed(ctx, repository.FeedQuery{
		ViewerID:    in.ViewerID,
		AuthorID:    in.AuthorID,
		Exclude:     exclude,
		FolloweeIDs: followees,
		Limit:       limit,
		Cursor:      in.Page.Cursor,
	})
	if err != nil {
		return page, err
	}
	return pagination.Build(posts, limit, func(p models.Post) string { return p.ID }), nil
}

// visiblePost loads a post and hides it from viewers who may not see it.
func (s *FeedService) visiblePost(ctx context.Context, postID, viewerID string) (*models.Post, error) {
	post, err := s.store.Posts().GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.ProfileID == viewerID {
		return post, nil
	}

	blocked, err := s.store.Graph().IsBlockedEitherWay(ctx, viewerID, post.ProfileID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err := requireAudience(ctx, s.store, post, viewerID); err != nil {
		return nil, err
	}
	return post, nil
}

// requireAudience applies the post's visibility to viewerID: PUBLIC is open,
// FOLLOWERS needs a follow, PRIVATE is the author only. Hidden posts are
// reported as NotFound.
func requireAudience(ctx context.Context, store repository.Store, post *models.Post, viewerID string) error {
	if post.ProfileID == viewerID {
		return nil
	}
	switch post.Visibility {
	case models.VisibilityPublic:
		return nil
	case models.VisibilityFollowers:
		following, err := store.Graph().IsFollowing(ctx, viewerID, post.ProfileID)
		if err != nil {
			return err
		}
		if following {
			return nil
		}
	}
	return models.NewNotFoundError("Post", post.ID)
}

// GetPost returns a post the viewer is allowed to see.
func (s *FeedService) GetPost(ctx context.Context, postID, viewerID string) (*models.Post, error) {
	return s.visiblePost(ctx, postID, viewerID)
}

// DeletePost removes the author's post with its comments, reactions and
// every notification that points at them.
func (s *FeedService) DeletePost(ctx context.Context, postID, actorID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "FeedService.DeletePost", attribute.String("post_id", postID))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.store.Posts().GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.ProfileID != actorID {
		return models.NewForbiddenError("only the author can delete a post")
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Notifications().DeleteByPost(ctx, post.ID); err != nil {
			return err
		}
		return tx.Posts().DeletePost(ctx, post.ID)
	})
}

type CreateCommentInput struct {
	AuthorID        string `validate:"required"`
	PostID          string `validate:"required,uuid"`
	Content         string `validate:"required,max=2000"`
	ParentCommentID string `validate:"omitempty,uuid"`
}

// CreateComment adds a comment or a one-level reply. The post counter is
// recomputed in the same transaction and the post owner is notified after
// commit.
func (s *FeedService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "FeedService.CreateComment", attribute.String("post_id", in.PostID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateInput(in); err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, in.PostID, in.AuthorID)
	if err != nil {
		return nil, err
	}

	if in.ParentCommentID != "" {
		parent, err := s.store.Posts().GetComment(ctx, in.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, models.NewValidationError("parent comment belongs to another post")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("replies cannot be nested")
		}
		if err := requireNotBlocked(ctx, s.store, in.AuthorID, parent.ProfileID); err != nil {
			return nil, err
		}
	}

	comment = &models.Comment{
		PostID:          post.ID,
		ProfileID:       in.AuthorID,
		Content:         in.Content,
		ParentCommentID: models.StringRef(in.ParentCommentID),
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Posts().CreateComment(ctx, comment); err != nil {
			return err
		}
		_, err := tx.Posts().RecountComments(ctx, post.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifications.notifyAfterCommit(ctx, NotifyInput{
		RecipientID: post.ProfileID,
		SenderID:    in.AuthorID,
		Type:        models.NotificationComment,
		PostID:      post.ID,
		CommentID:   comment.ID,
	})
	return comment, nil
}

// DeleteComment removes the author's comment together with its replies,
// their reactions and notifications, and recomputes the post counter.
func (s *FeedService) DeleteComment(ctx context.Context, commentID, actorID string) error {
	comment, err := s.store.Posts().GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.ProfileID != actorID {
		return models.NewForbiddenError("only the author can delete a comment")
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		removed, err := tx.Posts().DeleteComment(ctx, comment.ID)
		if err != nil {
			return err
		}
		if err := tx.Notifications().DeleteByComments(ctx, removed); err != nil {
			return err
		}
		_, err = tx.Posts().RecountComments(ctx, comment.PostID)
		return err
	})
}

type UpdateCommentInput struct {
	ActorID   string `validate:"required"`
	CommentID string `validate:"required,uuid"`
	Content   string `validate:"required,max=2000"`
}

// UpdateComment replaces the content of the actor's own comment.
func (s *FeedService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	comment, err := s.store.Posts().GetComment(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.ProfileID != in.ActorID {
		return nil, models.NewForbiddenError("only the author can edit a comment")
	}
	if comment.Content == in.Content {
		return comment, nil
	}
	comment.Content = in.Content
	if err := s.store.Posts().UpdateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ThreadInput pages through the comments of a post or the replies of a
// comment.
type ThreadInput struct {
	ViewerID  string `validate:"required"`
	SubjectID string `validate:"required,uuid"`
	Page      pagination.Request
}

// ListComments returns a post's top-level comments oldest-first, skipping
// authors in the viewer's blocked set.
func (s *FeedService) ListComments(ctx context.Context, in ThreadInput) (pagination.Page[models.Comment], error) {
	if err := validateInput(in); err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	if _, err := s.visiblePost(ctx, in.SubjectID, in.ViewerID); err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	blocked, err := s.store.Graph().BlockedSet(ctx, in.ViewerID)
	if err != nil {
		return pagination.Page[models.Comment]{}, err
	}

	limit := in.Page.Clamp(pagination.MaxLimit)
	rows, err := s.store.Posts().ListComments(ctx, in.SubjectID, blocked, limit, in.Page.Cursor)
	if err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	return pagination.Build(rows, limit, func(c models.Comment) string { return c.ID }), nil
}

// ListReplies returns the replies under a comment oldest-first.
func (s *FeedService) ListReplies(ctx context.Context, in ThreadInput) (pagination.Page[models.Comment], error) {
	if err := validateInput(in); err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	parent, err := s.store.Posts().GetComment(ctx, in.SubjectID)
	if err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	if _, err := s.visiblePost(ctx, parent.PostID, in.ViewerID); err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	blocked, err := s.store.Graph().BlockedSet(ctx, in.ViewerID)
	if err != nil {
		return pagination.Page[models.Comment]{}, err
	}

	limit := in.Page.Clamp(pagination.MaxLimit)
	rows, err := s.store.Posts().ListReplies(ctx, parent.ID, blocked, limit, in.Page.Cursor)
	if err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	return pagination.Build(rows, limit, func(c models.Comment) string { return c.ID }), nil
}
