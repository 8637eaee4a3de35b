package repository

import (
	"context"
	"fmt"

	"kindred/internal/models"

	"gorm.io/gorm"
)

// ReactionRepository stores post and comment reactions behind one
// kind-independent interface, along with the subject's like counter.
type ReactionRepository interface {
	Find(ctx context.Context, kind models.SubjectKind, subjectID, profileID string) (*models.Reaction, error)
	Create(ctx context.Context, kind models.SubjectKind, subjectID, profileID string, t models.ReactionType) error
	Delete(ctx context.Context, kind models.SubjectKind, id string) (bool, error)
	UpdateType(ctx context.Context, kind models.SubjectKind, id string, t models.ReactionType) (bool, error)
	AdjustLikeCount(ctx context.Context, kind models.SubjectKind, subjectID string, delta int) (int, error)
	LikeCount(ctx context.Context, kind models.SubjectKind, subjectID string) (int, error)
	CountRows(ctx context.Context, kind models.SubjectKind, subjectID string) (int64, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

type reactionTable struct {
	model        interface{}
	subjectCol   string
	counterModel interface{}
}

func tableFor(kind models.SubjectKind) (reactionTable, error) {
	switch kind {
	case models.SubjectPost:
		return reactionTable{model: &models.PostReaction{}, subjectCol: "post_id", counterModel: &models.Post{}}, nil
	case models.SubjectComment:
		return reactionTable{model: &models.CommentReaction{}, subjectCol: "comment_id", counterModel: &models.Comment{}}, nil
	default:
		return reactionTable{}, models.NewValidationError(fmt.Sprintf("unknown subject kind %q", kind))
	}
}

// Find returns the profile's reaction on the subject, or nil.
func (r *reactionRepository) Find(ctx context.Context, kind models.SubjectKind, subjectID, profileID string) (*models.Reaction, error) {
	q := r.db.WithContext(ctx)
	switch kind {
	case models.SubjectPost:
		var row models.PostReaction
		found, err := firstOrNil(q.Where("post_id = ? AND profile_id = ?", subjectID, profileID), &row)
		if err != nil || !found {
			return nil, err
		}
		return &models.Reaction{ID: row.ID, SubjectID: row.PostID, ProfileID: row.ProfileID, Type: row.Type}, nil
	case models.SubjectComment:
		var row models.CommentReaction
		found, err := firstOrNil(q.Where("comment_id = ? AND profile_id = ?", subjectID, profileID), &row)
		if err != nil || !found {
			return nil, err
		}
		return &models.Reaction{ID: row.ID, SubjectID: row.CommentID, ProfileID: row.ProfileID, Type: row.Type}, nil
	default:
		_, err := tableFor(kind)
		return nil, err
	}
}

// Create inserts a reaction. A concurrent insert for the same
// (subject, profile) returns a Conflict.
func (r *reactionRepository) Create(ctx context.Context, kind models.SubjectKind, subjectID, profileID string, t models.ReactionType) error {
	var row interface{}
	switch kind {
	case models.SubjectPost:
		row = &models.PostReaction{PostID: subjectID, ProfileID: profileID, Type: t}
	case models.SubjectComment:
		row = &models.CommentReaction{CommentID: subjectID, ProfileID: profileID, Type: t}
	default:
		_, err := tableFor(kind)
		return err
	}
	return translate(r.db.WithContext(ctx).Create(row).Error, "Reaction", subjectID+":"+profileID)
}

// Delete removes the reaction row. It reports false when the row was
// already gone.
func (r *reactionRepository) Delete(ctx context.Context, kind models.SubjectKind, id string) (bool, error) {
	tbl, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(tbl.model)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateType switches the reaction's type. It reports false when the row
// no longer exists.
func (r *reactionRepository) UpdateType(ctx context.Context, kind models.SubjectKind, id string, t models.ReactionType) (bool, error) {
	tbl, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(tbl.model).Where("id = ?", id).Update("type", t)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AdjustLikeCount applies delta to the subject's like_count in SQL and
// returns the stored value. The counter never goes below zero.
func (r *reactionRepository) AdjustLikeCount(ctx context.Context, kind models.SubjectKind, subjectID string, delta int) (int, error) {
	tbl, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	expr := gorm.Expr("like_count + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN like_count + ? < 0 THEN 0 ELSE like_count + ? END", delta, delta)
	}
	res := r.db.WithContext(ctx).Model(tbl.counterModel).Where("id = ?", subjectID).UpdateColumn("like_count", expr)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError(string(kind), subjectID)
	}
	return r.LikeCount(ctx, kind, subjectID)
}

func (r *reactionRepository) LikeCount(ctx context.Context, kind models.SubjectKind, subjectID string) (int, error) {
	tbl, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var counts []int
	if err := r.db.WithContext(ctx).Model(tbl.counterModel).Where("id = ?", subjectID).Pluck("like_count", &counts).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(counts) == 0 {
		return 0, models.NewNotFoundError(string(kind), subjectID)
	}
	return counts[0], nil
}

// CountRows counts the reaction rows on a subject.
func (r *reactionRepository) CountRows(ctx context.Context, kind models.SubjectKind, subjectID string) (int64, error) {
	tbl, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(tbl.model).Where(tbl.subjectCol+" = ?", subjectID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
