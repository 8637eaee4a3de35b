package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// LineageService manages lineage groups and their memberships. Invitations
// and joins are reported through the notification engine.
type LineageService struct {
	store         repository.Store
	notifications *NotificationService
	logger        *slog.Logger
}

// NewLineageService returns a new LineageService.
func NewLineageService(store repository.Store, notifications *NotificationService, logger *slog.Logger) *LineageService {
	return &LineageService{store: store, notifications: notifications, logger: logger}
}

// CreateLineageInput describes a new lineage. InviteIDs are profiles that
// receive a LINEAGE_INVITE once the lineage exists.
type CreateLineageInput struct {
	ActorID        string             `validate:"required"`
	Name           string             `validate:"required,max=120"`
	Type           models.LineageType `validate:"omitempty,oneof=FAMILY CLAN SURNAME_LINE TRIBE"`
	PrimarySurname string             `validate:"max=100"`
	RootVillage    string             `validate:"max=120"`
	RootRegion     string             `validate:"max=120"`
	Description    string             `validate:"max=2000"`
	InviteIDs      []string           `validate:"max=50,dive,uuid"`
}

// Create stores the lineage with the creator as its primary ANCESTOR member
// and invites InviteIDs, all in one transaction.
func (s *LineageService) Create(ctx context.Context, in CreateLineageInput) (lineage *models.Lineage, err error) {
	ctx, span := observability.StartSpan(ctx, "LineageService.Create", attribute.String("creator_id", in.ActorID))
	defer func() { observability.EndSpan(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = models.LineageFamily
	}

	invitees := make([]string, 0, len(in.InviteIDs))
	seen := map[string]struct{}{in.ActorID: {}}
	for _, id := range in.InviteIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := requireProfile(ctx, s.store, id); err != nil {
			return nil, err
		}
		if err := requireNotBlocked(ctx, s.store, in.ActorID, id); err != nil {
			return nil, err
		}
		invitees = append(invitees, id)
	}

	lineage = &models.Lineage{
		Name:           in.Name,
		Type:           in.Type,
		PrimarySurname: models.StringRef(strings.TrimSpace(in.PrimarySurname)),
		RootVillage:    models.StringRef(strings.TrimSpace(in.RootVillage)),
		RootRegion:     models.StringRef(strings.TrimSpace(in.RootRegion)),
		Description:    models.StringRef(strings.TrimSpace(in.Description)),
		CreatedByID:    in.ActorID,
	}

	var created []*models.Notification
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Lineages().Create(ctx, lineage); err != nil {
			return err
		}
		if err := tx.Lineages().ClearPrimary(ctx, in.ActorID, lineage.ID); err != nil {
			return err
		}
		if err := tx.Lineages().CreateMembership(ctx, &models.LineageMembership{
			LineageID:        lineage.ID,
			ProfileID:        in.ActorID,
			Role:             models.LineageRoleAncestor,
			IsPrimaryLineage: true,
			AddedByID:        models.StringRef(in.ActorID),
		}); err != nil {
			return err
		}
		for _, id := range invitees {
			n, err := s.notifications.Create(ctx, tx, lineageInvite(lineage.ID, in.ActorID, id))
			if err != nil {
				return err
			}
			if n != nil {
				created = append(created, n)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, n := range created {
		s.notifications.Publish(ctx, n)
	}
	return s.store.Lineages().GetWithMembers(ctx, lineage.ID, nil)
}

func lineageInvite(lineageID, senderID, recipientID string) NotifyInput {
	return NotifyInput{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        models.NotificationLineageInvite,
		LineageID:   lineageID,
	}
}

// LineageInviteInput is a member inviting another profile.
type LineageInviteInput struct {
	ActorID   string `validate:"required"`
	LineageID string `validate:"required,uuid"`
	TargetID  string `validate:"required,uuid"`
}

// Invite sends TargetID a LINEAGE_INVITE. Only members may invite, and
// repeated invitations collapse into one live notification.
func (s *LineageService) Invite(ctx context.Context, in LineageInviteInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if in.ActorID == in.TargetID {
		return models.NewValidationError("Cannot invite yourself")
	}
	if _, err := s.store.Lineages().GetByID(ctx, in.LineageID); err != nil {
		return err
	}
	member, err := s.store.Lineages().GetMembership(ctx, in.LineageID, in.ActorID)
	if err != nil {
		return err
	}
	if member == nil {
		return models.NewForbiddenError("only members can invite to a lineage")
	}
	if err := requireProfile(ctx, s.store, in.TargetID); err != nil {
		return err
	}
	if err := requireNotBlocked(ctx, s.store, in.ActorID, in.TargetID); err != nil {
		return err
	}
	existing, err := s.store.Lineages().GetMembership(ctx, in.LineageID, in.TargetID)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewConflictError("profile is already a member of this lineage")
	}

	_, err = s.notifications.Notify(ctx, lineageInvite(in.LineageID, in.ActorID, in.TargetID))
	return err
}

// JoinLineageInput carries the joiner's membership details.
type JoinLineageInput struct {
	ActorID          string             `validate:"required"`
	LineageID        string             `validate:"required,uuid"`
	Role             models.LineageRole `validate:"omitempty,oneof=ANCESTOR DESCENDANT SPOUSE EXTENDED"`
	Generation       *int               `validate:"omitempty,min=0,max=200"`
	IsPrimaryLineage bool
}

// Join adds the actor to the lineage or updates their existing membership.
// A first join notifies the lineage creator with LINEAGE_ACCEPT. Marking the
// lineage primary unsets the actor's other primary lineage.
func (s *LineageService) Join(ctx context.Context, in JoinLineageInput) (membership *models.LineageMembership, err error) {
	ctx, span := observability.StartSpan(ctx, "LineageService.Join", attribute.String("lineage_id", in.LineageID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.LineageRoleDescendant
	}
	lineage, err := s.store.Lineages().GetByID(ctx, in.LineageID)
	if err != nil {
		return nil, err
	}
	if err := requireNotBlocked(ctx, s.store, in.ActorID, lineage.CreatedByID); err != nil {
		return nil, err
	}

	var created *models.Notification
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Lineages().GetMembership(ctx, lineage.ID, in.ActorID)
		if err != nil {
			return err
		}
		if in.IsPrimaryLineage {
			if err := tx.Lineages().ClearPrimary(ctx, in.ActorID, lineage.ID); err != nil {
				return err
			}
		}

		if existing != nil {
			existing.Role = in.Role
			existing.Generation = in.Generation
			existing.IsPrimaryLineage = in.IsPrimaryLineage
			membership = existing
			return tx.Lineages().UpdateMembership(ctx, existing)
		}

		membership = &models.LineageMembership{
			LineageID:        lineage.ID,
			ProfileID:        in.ActorID,
			Role:             in.Role,
			Generation:       in.Generation,
			IsPrimaryLineage: in.IsPrimaryLineage,
			AddedByID:        models.StringRef(in.ActorID),
		}
		if err := tx.Lineages().CreateMembership(ctx, membership); err != nil {
			if models.IsCode(err, models.CodeConflict) {
				return models.NewConflictError("membership changed concurrently, try again")
			}
			return err
		}
		created, err = s.notifications.Create(ctx, tx, NotifyInput{
			RecipientID: lineage.CreatedByID,
			SenderID:    in.ActorID,
			Type:        models.NotificationLineageAccept,
			LineageID:   lineage.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Publish(ctx, created)
	return membership, nil
}

// Leave removes the actor from the lineage. Leaving a lineage one is not in
// is a no-op.
func (s *LineageService) Leave(ctx context.Context, lineageID, actorID string) error {
	if _, err := s.store.Lineages().GetByID(ctx, lineageID); err != nil {
		return err
	}
	left, err := s.store.Lineages().DeleteMembership(ctx, lineageID, actorID)
	if err != nil {
		return err
	}
	if left {
		s.logger.InfoContext(ctx, "lineage left", slog.String("lineage_id", lineageID), slog.String("profile_id", actorID))
	}
	return nil
}

// LineageSummary is one of the actor's lineages together with their role in it.
type LineageSummary struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Type             models.LineageType `json:"type"`
	PrimarySurname   *string            `json:"primary_surname,omitempty"`
	RootVillage      *string            `json:"root_village,omitempty"`
	RootRegion       *string            `json:"root_region,omitempty"`
	Description      *string            `json:"description,omitempty"`
	Role             models.LineageRole `json:"role"`
	IsPrimaryLineage bool               `json:"is_primary_lineage"`
	JoinedAt         time.Time          `json:"joined_at"`
}

// Mine lists the actor's lineages, most recently joined first.
func (s *LineageService) Mine(ctx context.Context, actorID string) ([]LineageSummary, error) {
	memberships, err := s.store.Lineages().ListMemberships(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]LineageSummary, 0, len(memberships))
	for _, m := range memberships {
		if m.Lineage == nil {
			continue
		}
		out = append(out, LineageSummary{
			ID:               m.Lineage.ID,
			Name:             m.Lineage.Name,
			Type:             m.Lineage.Type,
			PrimarySurname:   m.Lineage.PrimarySurname,
			RootVillage:      m.Lineage.RootVillage,
			RootRegion:       m.Lineage.RootRegion,
			Description:      m.Lineage.Description,
			Role:             m.Role,
			IsPrimaryLineage: m.IsPrimaryLineage,
			JoinedAt:         m.CreatedAt,
		})
	}
	return out, nil
}

// Get returns the lineage with its members, leaving out profiles in the
// viewer's blocked set.
func (s *LineageService) Get(ctx context.Context, lineageID, viewerID string) (*models.Lineage, error) {
	blocked, err := s.store.Graph().BlockedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.store.Lineages().GetWithMembers(ctx, lineageID, blocked)
}
