package models

import "time"

// Profile is one registered person. UserID is the identity provider's subject.
type Profile struct {
	Model
	UserID     string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"-"`
	Username   string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"username"`
	FirstName  string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName   string    `gorm:"type:varchar(100)" json:"last_name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Bio        string    `gorm:"type:text" json:"bio,omitempty"`
	IsVerified bool      `gorm:"default:false" json:"is_verified"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// ProfileSummary is the public projection embedded in other responses.
type ProfileSummary struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// Summary returns the public projection of p.
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:         p.ID,
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		AvatarURL:  p.AvatarURL,
		IsVerified: p.IsVerified,
	}
}
