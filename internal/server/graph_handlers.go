package server

import (
	"context"

	"kindred/internal/models"
	"kindred/internal/pagination"
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) edge(c *fiber.Ctx) service.EdgeInput {
	return service.EdgeInput{ActorID: caller(c), TargetID: c.Params("profileId")}
}

func (s *Server) edgeAction(c *fiber.Ctx, action func(context.Context, service.EdgeInput) error) error {
	if err := action(c.UserContext(), s.edge(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}

// Follow handles POST /api/profiles/:profileId/follow
func (s *Server) Follow(c *fiber.Ctx) error { return s.edgeAction(c, s.graph.Follow) }

// Unfollow handles DELETE /api/profiles/:profileId/follow
func (s *Server) Unfollow(c *fiber.Ctx) error { return s.edgeAction(c, s.graph.Unfollow) }

// Block handles POST /api/profiles/:profileId/block
func (s *Server) Block(c *fiber.Ctx) error { return s.edgeAction(c, s.graph.Block) }

// Unblock handles DELETE /api/profiles/:profileId/block
func (s *Server) Unblock(c *fiber.Ctx) error { return s.edgeAction(c, s.graph.Unblock) }

// Mute handles POST /api/profiles/:profileId/mute
func (s *Server) Mute(c *fiber.Ctx) error { return s.edgeAction(c, s.graph.Mute) }

// Unmute handles DELETE /api/profiles/:profileId/mute
func (s *Server) Unmute(c *fiber.Ctx) error { return s.edgeAction(c, s.graph.Unmute) }

// GetRelationship handles GET /api/profiles/:profileId/relationship
func (s *Server) GetRelationship(c *fiber.Ctx) error {
	edge, err := s.graph.Edge(c.UserContext(), s.edge(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(edge)
}

func (s *Server) listInput(c *fiber.Ctx) (service.ListInput, error) {
	page, err := parsePage(c)
	if err != nil {
		return service.ListInput{}, err
	}
	return service.ListInput{OwnerID: c.Params("profileId"), ViewerID: caller(c), Page: page}, nil
}

type profileLister func(context.Context, service.ListInput) (pagination.Page[models.ProfileSummary], error)

func (s *Server) listProfiles(c *fiber.Ctx, list profileLister) error {
	in, err := s.listInput(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := list(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ListFollowers handles GET /api/profiles/:profileId/followers
func (s *Server) ListFollowers(c *fiber.Ctx) error { return s.listProfiles(c, s.graph.ListFollowers) }

// ListFollowing handles GET /api/profiles/:profileId/following
func (s *Server) ListFollowing(c *fiber.Ctx) error { return s.listProfiles(c, s.graph.ListFollowing) }

// ListFriends handles GET /api/profiles/:profileId/friends
func (s *Server) ListFriends(c *fiber.Ctx) error { return s.listProfiles(c, s.friends.ListFriends) }

type kinshipRequest struct {
	ProfileID string             `json:"profile_id"`
	Relation  models.KinshipType `json:"relation"`
}

// CreateKinship handles POST /api/kinships
func (s *Server) CreateKinship(c *fiber.Ctx) error {
	var req kinshipRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	k, err := s.graph.CreateKinship(c.UserContext(), service.KinshipInput{
		ActorID:  caller(c),
		TargetID: req.ProfileID,
		Relation: req.Relation,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(k)
}

// VerifyKinship handles POST /api/kinships/:kinshipId/verify
func (s *Server) VerifyKinship(c *fiber.Ctx) error {
	k, err := s.graph.VerifyKinship(c.UserContext(), c.Params("kinshipId"), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(k)
}

// DeleteKinship handles DELETE /api/kinships/:kinshipId
func (s *Server) DeleteKinship(c *fiber.Ctx) error {
	if err := s.graph.DeleteKinship(c.UserContext(), c.Params("kinshipId"), caller(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}

// ListKinships handles GET /api/kinships
func (s *Server) ListKinships(c *fiber.Ctx) error {
	views, err := s.graph.ListKinships(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}
