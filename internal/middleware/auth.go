// Package middleware provides the fiber middleware stack: identity, request
// context, logging, tracing and rate limiting.
package middleware

import (
	"strings"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProfileIDLocal is the fiber local holding the authenticated profile id.
const ProfileIDLocal = "profileID"

// ProfileID returns the authenticated caller, or "" on public routes.
func ProfileID(c *fiber.Ctx) string {
	id, _ := c.Locals(ProfileIDLocal).(string)
	return id
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", models.NewUnauthenticatedError("Authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", models.NewUnauthenticatedError("Invalid authorization header format")
	}
	return parts[1], nil
}

// AuthRequired resolves the bearer token to a profile and stores its id in
// the fiber locals and the request context.
func AuthRequired(resolver service.IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return authenticate(c, resolver, token)
	}
}

// WebSocketAuthRequired accepts the token from the "token" query parameter,
// since browsers cannot set headers on a websocket upgrade, and falls back
// to the Authorization header.
func WebSocketAuthRequired(resolver service.IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			var err error
			if token, err = bearerToken(c); err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized, err)
			}
		}
		return authenticate(c, resolver, token)
	}
}

func authenticate(c *fiber.Ctx, resolver service.IdentityResolver, token string) error {
	profileID, err := resolver.ResolveCaller(c.UserContext(), token)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	c.Locals(ProfileIDLocal, profileID)
	c.SetUserContext(observability.WithProfileID(c.UserContext(), profileID))
	return c.Next()
}

// SubjectParser validates a token without requiring a profile behind it.
type SubjectParser interface {
	ParseSubject(token string) (string, error)
}

// SubjectLocal is the fiber local holding the verified token subject.
const SubjectLocal = "subject"

// Subject returns the verified token subject set by SubjectRequired.
func Subject(c *fiber.Ctx) string {
	sub, _ := c.Locals(SubjectLocal).(string)
	return sub
}

// SubjectRequired verifies the bearer token for routes used before a
// profile exists, such as registration.
func SubjectRequired(parser SubjectParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		sub, err := parser.ParseSubject(token)
		if err != nil {
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		}
		c.Locals(SubjectLocal, sub)
		return c.Next()
	}
}
