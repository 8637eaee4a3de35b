package models

import "time"

// Visibility controls who may see a post besides its author.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityFollowers Visibility = "FOLLOWERS"
	VisibilityPrivate   Visibility = "PRIVATE"
)

// ReactionType is the kind of reaction a profile leaves on a post or comment.
type ReactionType string

const (
	ReactionLike  ReactionType = "LIKE"
	ReactionLove  ReactionType = "LOVE"
	ReactionLaugh ReactionType = "LAUGH"
	ReactionAngry ReactionType = "ANGRY"
	ReactionSad   ReactionType = "SAD"
)

// Valid reports whether t is a known reaction type.
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionLove, ReactionLaugh, ReactionAngry, ReactionSad:
		return true
	}
	return false
}

// Post represents a user's post. LikeCount and CommentCount are denormalized
// counters maintained in the same transaction as the rows they count.
type Post struct {
	Model
	ProfileID    string     `gorm:"type:varchar(36);not null;index" json:"profile_id"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Visibility   Visibility `gorm:"type:varchar(20);not null;default:'PUBLIC'" json:"visibility"`
	LikeCount    int        `gorm:"not null;default:0" json:"like_count"`
	CommentCount int        `gorm:"not null;default:0" json:"comment_count"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Author *Profile `gorm:"foreignKey:ProfileID" json:"author,omitempty"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// Comment represents a comment on a post. Replies carry ParentCommentID and
// may not themselves be replied to.
type Comment struct {
	Model
	PostID          string    `gorm:"type:varchar(36);not null;index" json:"post_id"`
	ProfileID       string    `gorm:"type:varchar(36);not null;index" json:"profile_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ParentCommentID *string   `gorm:"type:varchar(36);index" json:"parent_comment_id,omitempty"`
	LikeCount       int       `gorm:"not null;default:0" json:"like_count"`
	UpdatedAt       time.Time `json:"updated_at"`

	Author *Profile `gorm:"foreignKey:ProfileID" json:"author,omitempty"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether the comment hangs under another comment.
func (c Comment) IsReply() bool {
	return c.ParentCommentID != nil
}

// PostReaction is one profile's reaction to a post.
type PostReaction struct {
	Model
	PostID    string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_reactions_subject" json:"post_id"`
	ProfileID string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_reactions_subject;index" json:"profile_id"`
	Type      ReactionType `gorm:"type:varchar(10);not null" json:"type"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PostReaction) TableName() string {
	return "post_reactions"
}

// CommentReaction is one profile's reaction to a comment.
type CommentReaction struct {
	Model
	CommentID string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_comment_reactions_subject" json:"comment_id"`
	ProfileID string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_comment_reactions_subject;index" json:"profile_id"`
	Type      ReactionType `gorm:"type:varchar(10);not null" json:"type"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CommentReaction) TableName() string {
	return "comment_reactions"
}

// SubjectKind distinguishes the two reactable entities.
type SubjectKind string

const (
	SubjectPost    SubjectKind = "POST"
	SubjectComment SubjectKind = "COMMENT"
)

// Reaction is the kind-independent view of a PostReaction or CommentReaction.
type Reaction struct {
	ID        string
	SubjectID string
	ProfileID string
	Type      ReactionType
}
