package server

import (
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
	IsGroup        bool     `json:"is_group"`
	Title          string   `json:"title"`
}

// CreateConversation handles POST /api/conversations
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	conv, err := s.chat.CreateConversation(c.UserContext(), service.CreateConversationInput{
		CreatorID:      caller(c),
		ParticipantIDs: req.ParticipantIDs,
		IsGroup:        req.IsGroup,
		Title:          req.Title,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// ListConversations handles GET /api/conversations
func (s *Server) ListConversations(c *fiber.Ctx) error {
	convs, err := s.chat.ListConversations(c.UserContext(), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convs)
}

// GetConversation handles GET /api/conversations/:id
func (s *Server) GetConversation(c *fiber.Ctx) error {
	conv, err := s.chat.GetConversation(c.UserContext(), c.Params("id"), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

type sendMessageRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"media_url"`
}

// SendMessage handles POST /api/conversations/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	msg, err := s.chat.SendMessage(c.UserContext(), service.SendMessageInput{
		ConversationID: c.Params("id"),
		SenderID:       caller(c),
		Content:        req.Content,
		MediaURL:       req.MediaURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ListMessages handles GET /api/conversations/:id/messages?limit=&cursor=
// Fetching a page marks the other participants' messages on it as read.
func (s *Server) ListMessages(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}

	msgs, err := s.chat.ListMessages(c.UserContext(), service.ListMessagesInput{
		ConversationID: c.Params("id"),
		ActorID:        caller(c),
		Page:           page,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// MarkConversationRead handles POST /api/conversations/:id/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	marked, err := s.chat.MarkConversationRead(c.UserContext(), c.Params("id"), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}
