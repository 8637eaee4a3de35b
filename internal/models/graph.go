package models

import "time"

// Follow is a directed edge; existence is the state.
type Follow struct {
	Model
	FollowerID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FolloweeID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_follows_pair;index" json:"followee_id"`

	Follower *Profile `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followee *Profile `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// Block is stored directed but read symmetrically.
type Block struct {
	Model
	BlockerID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_blocks_pair" json:"blocker_id"`
	BlockedID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_blocks_pair;index" json:"blocked_id"`
}

// TableName specifies the table name for GORM
func (Block) TableName() string {
	return "blocks"
}

// Mute hides the muted profile's posts from the muter only.
type Mute struct {
	Model
	MuterID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_mutes_pair" json:"muter_id"`
	MutedID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_mutes_pair" json:"muted_id"`
}

// TableName specifies the table name for GORM
func (Mute) TableName() string {
	return "mutes"
}

// KinshipType names the relation claimed from A to B.
type KinshipType string

const (
	KinshipParent      KinshipType = "PARENT"
	KinshipChild       KinshipType = "CHILD"
	KinshipSibling     KinshipType = "SIBLING"
	KinshipSpouse      KinshipType = "SPOUSE"
	KinshipGrandparent KinshipType = "GRANDPARENT"
	KinshipGrandchild  KinshipType = "GRANDCHILD"
	KinshipCousin      KinshipType = "COUSIN"
	KinshipUncleAunt   KinshipType = "UNCLE_AUNT"
	KinshipNephewNiece KinshipType = "NEPHEW_NIECE"
	KinshipOther       KinshipType = "OTHER"
)

// Kinship is a directed claim A -> B. Only B may verify it.
type Kinship struct {
	Model
	ProfileIDA   string      `gorm:"column:profile_id_a;type:varchar(36);not null;index" json:"profile_id_a"`
	ProfileIDB   string      `gorm:"column:profile_id_b;type:varchar(36);not null;index" json:"profile_id_b"`
	RelationAtoB KinshipType `gorm:"column:relation_a_to_b;type:varchar(20);not null" json:"relation_a_to_b"`
	Verified     bool        `gorm:"default:false" json:"verified"`
	VerifiedByID *string     `gorm:"type:varchar(36)" json:"verified_by_id,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"`

	ProfileA *Profile `gorm:"foreignKey:ProfileIDA" json:"profile_a,omitempty"`
	ProfileB *Profile `gorm:"foreignKey:ProfileIDB" json:"profile_b,omitempty"`
}

// TableName specifies the table name for GORM
func (Kinship) TableName() string {
	return "kinships"
}
