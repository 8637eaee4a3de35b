package repository

import (
	"context"

	"kindred/internal/models"

	"gorm.io/gorm"
)

// FeedQuery selects the posts a viewer may see.
type FeedQuery struct {
	ViewerID    string
	AuthorID    string
	Exclude     []string
	FolloweeIDs []string
	Limit       int
	Cursor      string
}

// PostRepository defines the interface for post and comment data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListFeed(ctx context.Context, q FeedQuery) ([]models.Post, error)
	DeletePost(ctx context.Context, id string) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id string) ([]string, error)
	ListComments(ctx context.Context, postID string, exclude []string, limit int, cursor string) ([]models.Comment, error)
	ListReplies(ctx context.Context, commentID string, exclude []string, limit int, cursor string) ([]models.Comment, error)
	RecountComments(ctx context.Context, postID string) (int, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return translate(r.db.WithContext(ctx).Create(post).Error, "Post", post.ID)
}

func (r *postRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err, "Post", id)
	}
	return &post, nil
}

// ListFeed returns newest-first posts that are visible to the viewer:
// their own, public ones, and follower-only posts of profiles they follow.
func (r *postRepository) ListFeed(ctx context.Context, fq FeedQuery) ([]models.Post, error) {
	var posts []models.Post

	q := r.db.WithContext(ctx).Preload("Author")
	if fq.AuthorID != "" {
		q = q.Where("posts.profile_id = ?", fq.AuthorID)
	}
	q = excluding(q, "posts.profile_id", fq.Exclude)

	if len(fq.FolloweeIDs) > 0 {
		q = q.Where("(posts.profile_id = ? OR posts.visibility = ? OR (posts.visibility = ? AND posts.profile_id IN ?))",
			fq.ViewerID, models.VisibilityPublic, models.VisibilityFollowers, fq.FolloweeIDs)
	} else {
		q = q.Where("(posts.profile_id = ? OR posts.visibility = ?)", fq.ViewerID, models.VisibilityPublic)
	}

	if err := keyset(q, "posts", fq.Cursor, true, fq.Limit).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// DeletePost removes the post with its comments and every reaction on
// either. Notifications are the caller's concern.
func (r *postRepository) DeletePost(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)

	comments := db.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
	if err := db.Where("comment_id IN (?)", comments).Delete(&models.CommentReaction{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := db.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := db.Where("post_id = ?", id).Delete(&models.PostReaction{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	res := db.Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Create(comment).Error, "Comment", comment.ID)
}

func (r *postRepository) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err, "Comment", id)
	}
	return &comment, nil
}

// UpdateComment stores the comment's content and bumps updated_at.
func (r *postRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res := r.db.WithContext(ctx).Model(comment).Update("content", comment.Content)
	if res.Error != nil {
		return translate(res.Error, "Comment", comment.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	return nil
}

// DeleteComment removes the comment, its replies and every reaction on them.
// It returns the ids of all removed comments.
func (r *postRepository) DeleteComment(ctx context.Context, id string) ([]string, error) {
	db := r.db.WithContext(ctx)

	ids := []string{id}
	var replyIDs []string
	if err := db.Model(&models.Comment{}).Where("parent_comment_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	ids = append(ids, replyIDs...)

	if err := db.Where("comment_id IN ?", ids).Delete(&models.CommentReaction{}).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// ListComments returns top-level comments oldest-first.
func (r *postRepository) ListComments(ctx context.Context, postID string, exclude []string, limit int, cursor string) ([]models.Comment, error) {
	var comments []models.Comment
	q := r.db.WithContext(ctx).Preload("Author").
		Where("comments.post_id = ? AND comments.parent_comment_id IS NULL", postID)
	q = excluding(q, "comments.profile_id", exclude)
	if err := keyset(q, "comments", cursor, false, limit).Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// ListReplies returns the replies under a comment oldest-first.
func (r *postRepository) ListReplies(ctx context.Context, commentID string, exclude []string, limit int, cursor string) ([]models.Comment, error) {
	var comments []models.Comment
	q := r.db.WithContext(ctx).Preload("Author").
		Where("comments.parent_comment_id = ?", commentID)
	q = excluding(q, "comments.profile_id", exclude)
	if err := keyset(q, "comments", cursor, false, limit).Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// RecountComments recomputes comment_count from the rows and stores it.
func (r *postRepository) RecountComments(ctx context.Context, postID string) (int, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if err := db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("comment_count", count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return int(count), nil
}
