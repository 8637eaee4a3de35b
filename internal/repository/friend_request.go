package repository

import (
	"context"
	"time"

	"kindred/internal/models"

	"gorm.io/gorm"
)

// FriendRequestRepository persists friend requests and their transitions.
type FriendRequestRepository interface {
	Create(ctx context.Context, req *models.FriendRequest) error
	GetByID(ctx context.Context, id string) (*models.FriendRequest, error)
	FindPendingBetween(ctx context.Context, a, b string) (*models.FriendRequest, error)
	FindPendingFrom(ctx context.Context, requesterID, addresseeID string) (*models.FriendRequest, error)
	Transition(ctx context.Context, id string, to models.FriendRequestStatus, at time.Time) (bool, error)
	ListIncoming(ctx context.Context, addresseeID string, exclude []string) ([]models.FriendRequest, error)
	ListOutgoing(ctx context.Context, requesterID string, exclude []string) ([]models.FriendRequest, error)
}

type friendRequestRepository struct {
	db *gorm.DB
}

// NewFriendRequestRepository creates a new friend request repository
func NewFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &friendRequestRepository{db: db}
}

// Create inserts a PENDING request. A second pending request for the same
// unordered pair violates the partial unique index and returns a Conflict.
func (r *friendRequestRepository) Create(ctx context.Context, req *models.FriendRequest) error {
	return translate(r.db.WithContext(ctx).Create(req).Error, "Friend request", req.RequesterID+":"+req.AddresseeID)
}

func (r *friendRequestRepository) GetByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	var req models.FriendRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, translate(err, "Friend request", id)
	}
	return &req, nil
}

// FindPendingBetween looks in either direction; nil means none.
func (r *friendRequestRepository) FindPendingBetween(ctx context.Context, a, b string) (*models.FriendRequest, error) {
	lo, hi := models.NormalizePair(a, b)
	var req models.FriendRequest
	found, err := firstOrNil(r.db.WithContext(ctx).
		Where("pair_lo = ? AND pair_hi = ? AND status = ?", lo, hi, models.FriendRequestPending), &req)
	if err != nil || !found {
		return nil, err
	}
	return &req, nil
}

// FindPendingFrom only matches the exact requester -> addressee direction.
func (r *friendRequestRepository) FindPendingFrom(ctx context.Context, requesterID, addresseeID string) (*models.FriendRequest, error) {
	var req models.FriendRequest
	found, err := firstOrNil(r.db.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ? AND status = ?", requesterID, addresseeID, models.FriendRequestPending), &req)
	if err != nil || !found {
		return nil, err
	}
	return &req, nil
}

// Transition moves a PENDING request to a terminal status. It reports false
// when the row was no longer PENDING, which is how concurrent responders lose.
func (r *friendRequestRepository) Transition(ctx context.Context, id string, to models.FriendRequestStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("id = ? AND status = ?", id, models.FriendRequestPending).
		Updates(map[string]interface{}{
			"status":       to,
			"responded_at": at,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *friendRequestRepository) ListIncoming(ctx context.Context, addresseeID string, exclude []string) ([]models.FriendRequest, error) {
	reqs := []models.FriendRequest{}
	q := r.db.WithContext(ctx).
		Preload("Requester").
		Where("addressee_id = ? AND status = ?", addresseeID, models.FriendRequestPending)
	q = excluding(q, "requester_id", exclude)
	if err := q.Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *friendRequestRepository) ListOutgoing(ctx context.Context, requesterID string, exclude []string) ([]models.FriendRequest, error) {
	reqs := []models.FriendRequest{}
	q := r.db.WithContext(ctx).
		Preload("Addressee").
		Where("requester_id = ? AND status = ?", requesterID, models.FriendRequestPending)
	q = excluding(q, "addressee_id", exclude)
	if err := q.Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}
