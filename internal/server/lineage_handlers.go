package server

import (
	"kindred/internal/models"
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createLineageRequest struct {
	Name           string             `json:"name"`
	Type           models.LineageType `json:"type"`
	PrimarySurname string             `json:"primary_surname"`
	RootVillage    string             `json:"root_village"`
	RootRegion     string             `json:"root_region"`
	Description    string             `json:"description"`
	InviteIDs      []string           `json:"invite_ids"`
}

// CreateLineage handles POST /api/lineages
func (s *Server) CreateLineage(c *fiber.Ctx) error {
	var req createLineageRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	lineage, err := s.lineages.Create(c.UserContext(), service.CreateLineageInput{
		ActorID:        caller(c),
		Name:           req.Name,
		Type:           req.Type,
		PrimarySurname: req.PrimarySurname,
		RootVillage:    req.RootVillage,
		RootRegion:     req.RootRegion,
		Description:    req.Description,
		InviteIDs:      req.InviteIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lineage)
}

// ListMyLineages handles GET /api/lineages/mine
func (s *Server) ListMyLineages(c *fiber.Ctx) error {
	lineages, err := s.lineages.Mine(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lineages)
}

// GetLineage handles GET /api/lineages/:lineageId
func (s *Server) GetLineage(c *fiber.Ctx) error {
	lineage, err := s.lineages.Get(c.UserContext(), c.Params("lineageId"), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lineage)
}

type joinLineageRequest struct {
	Role             models.LineageRole `json:"role"`
	Generation       *int               `json:"generation"`
	IsPrimaryLineage bool               `json:"is_primary_lineage"`
}

// JoinLineage handles POST /api/lineages/:lineageId/join
func (s *Server) JoinLineage(c *fiber.Ctx) error {
	var req joinLineageRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
	}

	membership, err := s.lineages.Join(c.UserContext(), service.JoinLineageInput{
		ActorID:          caller(c),
		LineageID:        c.Params("lineageId"),
		Role:             req.Role,
		Generation:       req.Generation,
		IsPrimaryLineage: req.IsPrimaryLineage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(membership)
}

// LeaveLineage handles DELETE /api/lineages/:lineageId/leave
func (s *Server) LeaveLineage(c *fiber.Ctx) error {
	if err := s.lineages.Leave(c.UserContext(), c.Params("lineageId"), caller(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}

// InviteToLineage handles POST /api/lineages/:lineageId/invite/:profileId
func (s *Server) InviteToLineage(c *fiber.Ctx) error {
	err := s.lineages.Invite(c.UserContext(), service.LineageInviteInput{
		ActorID:   caller(c),
		LineageID: c.Params("lineageId"),
		TargetID:  c.Params("profileId"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}
