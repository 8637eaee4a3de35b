package models

import "time"

// LineageType classifies a lineage group.
type LineageType string

const (
	LineageFamily      LineageType = "FAMILY"
	LineageClan        LineageType = "CLAN"
	LineageSurnameLine LineageType = "SURNAME_LINE"
	LineageTribe       LineageType = "TRIBE"
)

// LineageRole is a member's place in the lineage.
type LineageRole string

const (
	LineageRoleAncestor   LineageRole = "ANCESTOR"
	LineageRoleDescendant LineageRole = "DESCENDANT"
	LineageRoleSpouse     LineageRole = "SPOUSE"
	LineageRoleExtended   LineageRole = "EXTENDED"
)

// Lineage is a family, clan or surname line that profiles join.
type Lineage struct {
	Model
	Name           string      `gorm:"type:varchar(120);not null" json:"name"`
	Type           LineageType `gorm:"type:varchar(20);not null;default:'FAMILY'" json:"type"`
	PrimarySurname *string     `gorm:"type:varchar(100)" json:"primary_surname,omitempty"`
	RootVillage    *string     `gorm:"type:varchar(120)" json:"root_village,omitempty"`
	RootRegion     *string     `gorm:"type:varchar(120)" json:"root_region,omitempty"`
	Description    *string     `gorm:"type:text" json:"description,omitempty"`
	CreatedByID    string      `gorm:"type:varchar(36);not null;index" json:"created_by_id"`
	UpdatedAt      time.Time   `json:"updated_at"`

	Members []LineageMembership `gorm:"foreignKey:LineageID" json:"members,omitempty"`
}

// TableName specifies the table name for GORM
func (Lineage) TableName() string {
	return "lineages"
}

// LineageMembership places one profile in one lineage. A profile has at most
// one primary lineage.
type LineageMembership struct {
	Model
	LineageID        string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_lineage_members_pair" json:"lineage_id"`
	ProfileID        string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_lineage_members_pair;index" json:"profile_id"`
	Role             LineageRole `gorm:"type:varchar(20);not null;default:'DESCENDANT'" json:"role"`
	Generation       *int        `json:"generation,omitempty"`
	IsPrimaryLineage bool        `gorm:"not null;default:false" json:"is_primary_lineage"`
	AddedByID        *string     `gorm:"type:varchar(36)" json:"added_by_id,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`

	Lineage *Lineage `gorm:"foreignKey:LineageID" json:"lineage,omitempty"`
	Profile *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// TableName specifies the table name for GORM
func (LineageMembership) TableName() string {
	return "lineage_memberships"
}
