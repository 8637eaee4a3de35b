package repository

import (
	"context"

	"kindred/internal/models"

	"gorm.io/gorm"
)

// LineageRepository defines the interface for lineage and membership data operations
type LineageRepository interface {
	Create(ctx context.Context, lineage *models.Lineage) error
	GetByID(ctx context.Context, id string) (*models.Lineage, error)
	GetWithMembers(ctx context.Context, id string, exclude []string) (*models.Lineage, error)

	GetMembership(ctx context.Context, lineageID, profileID string) (*models.LineageMembership, error)
	CreateMembership(ctx context.Context, m *models.LineageMembership) error
	UpdateMembership(ctx context.Context, m *models.LineageMembership) error
	DeleteMembership(ctx context.Context, lineageID, profileID string) (bool, error)
	ClearPrimary(ctx context.Context, profileID, exceptLineageID string) error
	ListMemberships(ctx context.Context, profileID string) ([]models.LineageMembership, error)
}

type lineageRepository struct {
	db *gorm.DB
}

// NewLineageRepository creates a new lineage repository
func NewLineageRepository(db *gorm.DB) LineageRepository {
	return &lineageRepository{db: db}
}

func (r *lineageRepository) Create(ctx context.Context, lineage *models.Lineage) error {
	return translate(r.db.WithContext(ctx).Omit("Members").Create(lineage).Error, "Lineage", lineage.ID)
}

func (r *lineageRepository) GetByID(ctx context.Context, id string) (*models.Lineage, error) {
	var lineage models.Lineage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lineage).Error; err != nil {
		return nil, translate(err, "Lineage", id)
	}
	return &lineage, nil
}

// GetWithMembers loads the lineage and its members oldest-first, leaving
// out profiles in exclude.
func (r *lineageRepository) GetWithMembers(ctx context.Context, id string, exclude []string) (*models.Lineage, error) {
	var lineage models.Lineage
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return excluding(db, "lineage_memberships.profile_id", exclude).
				Order("lineage_memberships.created_at ASC, lineage_memberships.id ASC")
		}).
		Preload("Members.Profile").
		Where("id = ?", id).
		First(&lineage).Error
	if err != nil {
		return nil, translate(err, "Lineage", id)
	}
	return &lineage, nil
}

// GetMembership returns nil when the profile is not a member.
func (r *lineageRepository) GetMembership(ctx context.Context, lineageID, profileID string) (*models.LineageMembership, error) {
	var m models.LineageMembership
	found, err := firstOrNil(r.db.WithContext(ctx).
		Where("lineage_id = ? AND profile_id = ?", lineageID, profileID), &m)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

func (r *lineageRepository) CreateMembership(ctx context.Context, m *models.LineageMembership) error {
	return translate(r.db.WithContext(ctx).Omit("Lineage", "Profile").Create(m).Error, "LineageMembership", m.LineageID)
}

func (r *lineageRepository) UpdateMembership(ctx context.Context, m *models.LineageMembership) error {
	res := r.db.WithContext(ctx).Model(m).
		Select("role", "generation", "is_primary_lineage").
		Updates(m)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("LineageMembership", m.ID)
	}
	return nil
}

// DeleteMembership reports false when the profile was not a member.
func (r *lineageRepository) DeleteMembership(ctx context.Context, lineageID, profileID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("lineage_id = ? AND profile_id = ?", lineageID, profileID).
		Delete(&models.LineageMembership{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ClearPrimary unsets the primary flag on the profile's other memberships.
func (r *lineageRepository) ClearPrimary(ctx context.Context, profileID, exceptLineageID string) error {
	if err := r.db.WithContext(ctx).Model(&models.LineageMembership{}).
		Where("profile_id = ? AND lineage_id <> ? AND is_primary_lineage = ?", profileID, exceptLineageID, true).
		UpdateColumn("is_primary_lineage", false).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListMemberships returns the profile's memberships newest-first with their lineage.
func (r *lineageRepository) ListMemberships(ctx context.Context, profileID string) ([]models.LineageMembership, error) {
	var memberships []models.LineageMembership
	if err := r.db.WithContext(ctx).Preload("Lineage").
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}
