package server

import (
	"kindred/internal/middleware"
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

// Register handles POST /api/profiles for the token's subject.
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	profile, err := s.profiles.Register(c.UserContext(), service.RegisterInput{
		UserID:    middleware.Subject(c),
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// GetMyProfile handles GET /api/profiles/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profiles.Get(c.UserContext(), caller(c), "")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetProfile handles GET /api/profiles/:profileId
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profiles.Get(c.UserContext(), c.Params("profileId"), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile.Summary())
}
