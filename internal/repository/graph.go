package repository

import (
	"context"

	"kindred/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphRepository covers the relationship edges between profiles:
// friendships, follows, blocks, mutes and kinship claims.
type GraphRepository interface {
	GetFriendship(ctx context.Context, a, b string) (*models.Friendship, error)
	UpsertFriendship(ctx context.Context, a, b string) (*models.Friendship, error)
	DeleteFriendship(ctx context.Context, a, b string) (bool, error)
	ListFriendships(ctx context.Context, profileID string, exclude []string, limit int, cursor string) ([]models.Friendship, error)
	CountFriendships(ctx context.Context, profileID string) (int64, error)

	UpsertFollow(ctx context.Context, followerID, followeeID string) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followeeID string) error
	DeleteFollowsBetween(ctx context.Context, a, b string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	FolloweeIDs(ctx context.Context, followerID string) ([]string, error)
	ListFollowers(ctx context.Context, profileID string, exclude []string, limit int, cursor string) ([]models.Follow, error)
	ListFollowing(ctx context.Context, profileID string, exclude []string, limit int, cursor string) ([]models.Follow, error)

	UpsertBlock(ctx context.Context, blockerID, blockedID string) error
	DeleteBlock(ctx context.Context, blockerID, blockedID string) error
	HasBlocked(ctx context.Context, blockerID, blockedID string) (bool, error)
	IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error)
	BlockedSet(ctx context.Context, profileID string) ([]string, error)

	UpsertMute(ctx context.Context, muterID, mutedID string) error
	DeleteMute(ctx context.Context, muterID, mutedID string) error
	HasMuted(ctx context.Context, muterID, mutedID string) (bool, error)
	MutedIDs(ctx context.Context, muterID string) ([]string, error)

	CreateKinship(ctx context.Context, k *models.Kinship) error
	GetKinship(ctx context.Context, id string) (*models.Kinship, error)
	VerifyKinship(ctx context.Context, id, verifierID string) error
	DeleteKinship(ctx context.Context, id string) error
	ListKinships(ctx context.Context, profileID string) ([]models.Kinship, error)
}

type graphRepository struct {
	db *gorm.DB
}

// NewGraphRepository creates a new graph repository
func NewGraphRepository(db *gorm.DB) GraphRepository {
	return &graphRepository{db: db}
}

func (r *graphRepository) GetFriendship(ctx context.Context, a, b string) (*models.Friendship, error) {
	lo, hi := models.NormalizePair(a, b)
	var f models.Friendship
	found, err := firstOrNil(r.db.WithContext(ctx).Where("user_a_id = ? AND user_b_id = ?", lo, hi), &f)
	if err != nil || !found {
		return nil, err
	}
	return &f, nil
}

// UpsertFriendship inserts the normalized pair unless it exists and returns
// the stored row either way.
func (r *graphRepository) UpsertFriendship(ctx context.Context, a, b string) (*models.Friendship, error) {
	f := models.Friendship{UserAID: a, UserBID: b}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(&f).Error
	if err != nil {
		return nil, translate(err, "Friendship", f.UserAID+":"+f.UserBID)
	}

	stored, err := r.GetFriendship(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, models.NewInternalError(gorm.ErrRecordNotFound)
	}
	return stored, nil
}

func (r *graphRepository) DeleteFriendship(ctx context.Context, a, b string) (bool, error) {
	lo, hi := models.NormalizePair(a, b)
	res := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", lo, hi).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *graphRepository) ListFriendships(ctx context.Context, profileID string, exclude []string, limit int, cursor string) ([]models.Friendship, error) {
	var friendships []models.Friendship

	q := r.db.WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		Where("(friendships.user_a_id = ? OR friendships.user_b_id = ?)", profileID, profileID)
	q = excluding(q, "friendships.user_a_id", exclude)
	q = excluding(q, "friendships.user_b_id", exclude)

	if err := keyset(q, "friendships", cursor, true, limit).Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}

func (r *graphRepository) CountFriendships(ctx context.Context, profileID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_a_id = ? OR user_b_id = ?", profileID, profileID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// UpsertFollow reports whether a new edge was written.
func (r *graphRepository) UpsertFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followee_id"}},
			DoNothing: true,
		}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *graphRepository) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) DeleteFollowsBetween(ctx context.Context, a, b string) error {
	if err := r.db.WithContext(ctx).
		Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)", a, b, b, a).
		Delete(&models.Follow{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return r.exists(ctx, &models.Follow{}, "follower_id = ? AND followee_id = ?", followerID, followeeID)
}

func (r *graphRepository) FolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("followee_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *graphRepository) ListFollowers(ctx context.Context, profileID string, exclude []string, limit int, cursor string) ([]models.Follow, error) {
	var follows []models.Follow
	q := r.db.WithContext(ctx).Preload("Follower").Where("follows.followee_id = ?", profileID)
	q = excluding(q, "follows.follower_id", exclude)
	if err := keyset(q, "follows", cursor, true, limit).Find(&follows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return follows, nil
}

func (r *graphRepository) ListFollowing(ctx context.Context, profileID string, exclude []string, limit int, cursor string) ([]models.Follow, error) {
	var follows []models.Follow
	q := r.db.WithContext(ctx).Preload("Followee").Where("follows.follower_id = ?", profileID)
	q = excluding(q, "follows.followee_id", exclude)
	if err := keyset(q, "follows", cursor, true, limit).Find(&follows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return follows, nil
}

func (r *graphRepository) UpsertBlock(ctx context.Context, blockerID, blockedID string) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_id"}},
			DoNothing: true,
		}).
		Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) DeleteBlock(ctx context.Context, blockerID, blockedID string) error {
	if err := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) HasBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	return r.exists(ctx, &models.Block{}, "blocker_id = ? AND blocked_id = ?", blockerID, blockedID)
}

// IsBlockedEitherWay checks both directions in one query.
func (r *graphRepository) IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	return r.exists(ctx, &models.Block{},
		"(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a)
}

// BlockedSet returns every profile that profileID blocked or was blocked by.
func (r *graphRepository) BlockedSet(ctx context.Context, profileID string) ([]string, error) {
	var blocks []models.Block
	if err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", profileID, profileID).
		Find(&blocks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	seen := make(map[string]struct{}, len(blocks))
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		other := b.BlockedID
		if other == profileID {
			other = b.BlockerID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}

func (r *graphRepository) UpsertMute(ctx context.Context, muterID, mutedID string) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "muter_id"}, {Name: "muted_id"}},
			DoNothing: true,
		}).
		Create(&models.Mute{MuterID: muterID, MutedID: mutedID}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) DeleteMute(ctx context.Context, muterID, mutedID string) error {
	if err := r.db.WithContext(ctx).
		Where("muter_id = ? AND muted_id = ?", muterID, mutedID).
		Delete(&models.Mute{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) HasMuted(ctx context.Context, muterID, mutedID string) (bool, error) {
	return r.exists(ctx, &models.Mute{}, "muter_id = ? AND muted_id = ?", muterID, mutedID)
}

func (r *graphRepository) MutedIDs(ctx context.Context, muterID string) ([]string, error) {
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.Mute{}).
		Where("muter_id = ?", muterID).
		Pluck("muted_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *graphRepository) CreateKinship(ctx context.Context, k *models.Kinship) error {
	return translate(r.db.WithContext(ctx).Create(k).Error, "Kinship", k.ID)
}

func (r *graphRepository) GetKinship(ctx context.Context, id string) (*models.Kinship, error) {
	var k models.Kinship
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&k).Error; err != nil {
		return nil, translate(err, "Kinship", id)
	}
	return &k, nil
}

func (r *graphRepository) VerifyKinship(ctx context.Context, id, verifierID string) error {
	if err := r.db.WithContext(ctx).Model(&models.Kinship{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"verified": true, "verified_by_id": verifierID}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) DeleteKinship(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Kinship{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *graphRepository) ListKinships(ctx context.Context, profileID string) ([]models.Kinship, error) {
	var kinships []models.Kinship
	if err := r.db.WithContext(ctx).
		Preload("ProfileA").
		Preload("ProfileB").
		Where("profile_id_a = ? OR profile_id_b = ?", profileID, profileID).
		Order("created_at DESC").
		Find(&kinships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return kinships, nil
}

func (r *graphRepository) exists(ctx context.Context, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
