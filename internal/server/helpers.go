package server

import (
	"kindred/internal/middleware"
	"kindred/internal/models"
	"kindred/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}

// caller is the authenticated profile id. Routes using it sit behind AuthRequired.
func caller(c *fiber.Ctx) string {
	return middleware.ProfileID(c)
}

// parsePage reads ?limit=&cursor=. Bounds are applied by the services.
func parsePage(c *fiber.Ctx) (pagination.Request, error) {
	var req pagination.Request
	if err := c.QueryParser(&req); err != nil {
		return req, models.NewValidationError("invalid paging parameters")
	}
	return req, nil
}

// parseBody decodes the JSON request body into dest.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError("invalid request body")
	}
	return nil
}

// noContent is the empty success response of deletes and toggles.
func noContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
