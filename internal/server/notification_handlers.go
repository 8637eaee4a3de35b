package server

import (
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListNotifications handles GET /api/notifications?limit=&cursor=
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}

	notifs, err := s.notifications.List(c.UserContext(), service.ListNotificationsInput{
		RecipientID: caller(c),
		Page:        page,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(notifs)
}

// UnreadNotificationCount handles GET /api/notifications/unread-count
func (s *Server) UnreadNotificationCount(c *fiber.Ctx) error {
	count, err := s.notifications.UnreadCount(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	if err := s.notifications.MarkRead(c.UserContext(), c.Params("id"), caller(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	marked, err := s.notifications.MarkAllRead(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}
