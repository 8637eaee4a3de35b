package server

import (
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) pair(c *fiber.Ctx) service.PairInput {
	return service.PairInput{ActorID: caller(c), OtherID: c.Params("profileId")}
}

func (s *Server) respond(c *fiber.Ctx) service.RespondInput {
	return service.RespondInput{RequestID: c.Params("requestId"), ActorID: caller(c)}
}

// SendFriendRequest handles POST /api/friends/requests/:profileId
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	req, err := s.friends.Send(c.UserContext(), s.pair(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// CancelFriendRequest handles DELETE /api/friends/requests/:profileId
func (s *Server) CancelFriendRequest(c *fiber.Ctx) error {
	if _, err := s.friends.Cancel(c.UserContext(), s.pair(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}

// AcceptFriendRequest handles POST /api/friends/requests/:requestId/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	friendship, err := s.friends.Accept(c.UserContext(), s.respond(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(friendship)
}

// DeclineFriendRequest handles POST /api/friends/requests/:requestId/decline
func (s *Server) DeclineFriendRequest(c *fiber.Ctx) error {
	req, err := s.friends.Decline(c.UserContext(), s.respond(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// ListIncomingRequests handles GET /api/friends/requests
func (s *Server) ListIncomingRequests(c *fiber.Ctx) error {
	reqs, err := s.friends.ListIncoming(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

// ListOutgoingRequests handles GET /api/friends/requests/sent
func (s *Server) ListOutgoingRequests(c *fiber.Ctx) error {
	reqs, err := s.friends.ListOutgoing(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

// Unfriend handles DELETE /api/friends/:profileId
func (s *Server) Unfriend(c *fiber.Ctx) error {
	if err := s.friends.Unfriend(c.UserContext(), s.pair(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}
