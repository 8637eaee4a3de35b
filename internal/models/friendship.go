package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendRequestStatus represents the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	// FriendRequestPending is the only non-terminal state.
	FriendRequestPending FriendRequestStatus = "PENDING"
	// FriendRequestAccepted means a Friendship was materialized.
	FriendRequestAccepted FriendRequestStatus = "ACCEPTED"
	// FriendRequestDeclined means the addressee turned the request down.
	FriendRequestDeclined FriendRequestStatus = "DECLINED"
	// FriendRequestCancelled means the requester withdrew the request.
	FriendRequestCancelled FriendRequestStatus = "CANCELLED"
)

// NormalizePair orders two profile ids so a symmetric edge has exactly one key.
func NormalizePair(x, y string) (lo, hi string) {
	if x < y {
		return x, y
	}
	return y, x
}

// Friendship is a confirmed, symmetric relationship stored under the
// normalized pair (UserAID < UserBID).
type Friendship struct {
	Model
	UserAID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_friendships_pair" json:"user_a_id"`
	UserBID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_friendships_pair;index" json:"user_b_id"`

	UserA *Profile `gorm:"foreignKey:UserAID" json:"user_a,omitempty"`
	UserB *Profile `gorm:"foreignKey:UserBID" json:"user_b,omitempty"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}

// BeforeCreate canonicalizes the pair regardless of call order.
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	f.UserAID, f.UserBID = NormalizePair(f.UserAID, f.UserBID)
	return f.Model.BeforeCreate(tx)
}

// Other returns the member of the pair that is not profileID.
func (f Friendship) Other(profileID string) string {
	if f.UserAID == profileID {
		return f.UserBID
	}
	return f.UserAID
}

// FriendRequest is a directed request. PairLo/PairHi mirror the Friendship key
// so the partial unique index allows at most one PENDING row per unordered pair.
type FriendRequest struct {
	Model
	RequesterID string              `gorm:"type:varchar(36);not null;index" json:"requester_id"`
	AddresseeID string              `gorm:"type:varchar(36);not null;index" json:"addressee_id"`
	PairLo      string              `gorm:"type:varchar(36);not null;uniqueIndex:idx_friend_requests_pending_pair,where:status = 'PENDING'" json:"-"`
	PairHi      string              `gorm:"type:varchar(36);not null;uniqueIndex:idx_friend_requests_pending_pair,where:status = 'PENDING'" json:"-"`
	Status      FriendRequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	RespondedAt *time.Time          `json:"responded_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	Requester *Profile `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Addressee *Profile `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`
}

// TableName specifies the table name for GORM
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// BeforeCreate fills the normalized pair columns.
func (r *FriendRequest) BeforeCreate(tx *gorm.DB) error {
	r.PairLo, r.PairHi = NormalizePair(r.RequesterID, r.AddresseeID)
	return r.Model.BeforeCreate(tx)
}
