package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/pagination"
	"kindred/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ChatService manages conversations, messages and read receipts.
type ChatService struct {
	store         repository.Store
	notifications *NotificationService
	logger        *slog.Logger
	now           func() time.Time
}

// NewChatService returns a new ChatService.
func NewChatService(store repository.Store, notifications *NotificationService, logger *slog.Logger) *ChatService {
	return &ChatService{
		store:         store,
		notifications: notifications,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type CreateConversationInput struct {
	CreatorID      string   `validate:"required"`
	ParticipantIDs []string `validate:"required,min=1,dive,uuid"`
	IsGroup        bool
	Title          string `validate:"max=200"`
}

// CreateConversation starts a conversation. A direct conversation between
// two profiles that already have one returns the existing conversation.
func (s *ChatService) CreateConversation(ctx context.Context, in CreateConversationInput) (*models.Conversation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{in.CreatorID: {}}
	others := make([]string, 0, len(in.ParticipantIDs))
	for _, id := range in.ParticipantIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		others = append(others, id)
	}
	if len(others) == 0 {
		return nil, models.NewValidationError("a conversation needs another participant")
	}
	if !in.IsGroup && len(others) > 1 {
		return nil, models.NewValidationError("a direct conversation has exactly two participants")
	}

	for _, id := range others {
		if err := requireProfile(ctx, s.store, id); err != nil {
			return nil, err
		}
		if err := requireNotBlocked(ctx, s.store, in.CreatorID, id); err != nil {
			return nil, err
		}
	}

	if !in.IsGroup {
		existing, err := s.store.Chat().FindDirectConversation(ctx, in.CreatorID, others[0])
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.store.Chat().GetConversation(ctx, existing.ID)
		}
	}

	conv := &models.Conversation{
		IsGroup:     in.IsGroup,
		Title:       in.Title,
		CreatedByID: in.CreatorID,
		Participants: []models.ConversationParticipant{
			{ProfileID: in.CreatorID, Role: models.ParticipantRoleOwner},
		},
	}
	for _, id := range others {
		conv.Participants = append(conv.Participants, models.ConversationParticipant{ProfileID: id, Role: models.ParticipantRoleMember})
	}
	if err := s.store.Chat().CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return s.store.Chat().GetConversation(ctx, conv.ID)
}

func (s *ChatService) requireParticipant(ctx context.Context, conversationID, profileID string) error {
	if _, err := s.store.Chat().GetConversation(ctx, conversationID); err != nil {
		return err
	}
	p, err := s.store.Chat().GetParticipant(ctx, conversationID, profileID)
	if err != nil {
		return err
	}
	if p == nil {
		return models.NewForbiddenError("not a participant of this conversation")
	}
	return nil
}

type SendMessageInput struct {
	ConversationID string `validate:"required,uuid"`
	SenderID       string `validate:"required"`
	Content        string `validate:"max=4000"`
	MediaURL       string `validate:"omitempty,url"`
}

// SendMessage stores a message with the sender's own read receipt and
// notifies the other participants after commit.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (msg *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "ChatService.SendMessage", attribute.String("conversation_id", in.ConversationID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" && in.MediaURL == "" {
		return nil, models.NewValidationError("message needs content or media")
	}
	if err := s.requireParticipant(ctx, in.ConversationID, in.SenderID); err != nil {
		return nil, err
	}

	var recipients []string
	msg = &models.Message{ConversationID: in.ConversationID, SenderID: in.SenderID, Content: in.Content, MediaURL: in.MediaURL}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Chat().CreateMessage(ctx, msg); err != nil {
			return err
		}
		now := s.now()
		if _, err := tx.Chat().InsertReads(ctx, in.SenderID, []string{msg.ID}, now); err != nil {
			return err
		}
		if err := tx.Chat().TouchConversation(ctx, in.ConversationID, now); err != nil {
			return err
		}
		ids, err := tx.Chat().ParticipantIDs(ctx, in.ConversationID)
		recipients = ids
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, id := range recipients {
		if id == in.SenderID {
			continue
		}
		s.notifications.notifyAfterCommit(ctx, NotifyInput{
			RecipientID: id,
			SenderID:    in.SenderID,
			Type:        models.NotificationMessage,
			MessageID:   msg.ID,
		})
	}
	return msg, nil
}

type ListMessagesInput struct {
	ConversationID string `validate:"required,uuid"`
	ActorID        string `validate:"required"`
	Page           pagination.Request
}

// ListMessages returns one page of a conversation oldest-first and marks the
// other senders' messages on it as read by the actor. The cursor walks back
// in time.
func (s *ChatService) ListMessages(ctx context.Context, in ListMessagesInput) (page pagination.Page[models.Message], err error) {
	ctx, span := observability.StartSpan(ctx, "ChatService.ListMessages", attribute.String("conversation_id", in.ConversationID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateInput(in); err != nil {
		return page, err
	}
	if err := s.requireParticipant(ctx, in.ConversationID, in.ActorID); err != nil {
		return page, err
	}

	limit := in.Page.Clamp(pagination.MaxMessageLimit)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		rows, err := tx.Chat().ListMessages(ctx, in.ConversationID, limit, in.Page.Cursor)
		if err != nil {
			return err
		}
		page = pagination.Build(rows, limit, func(m models.Message) string { return m.ID })

		var unread []string
		for _, m := range page.Data {
			if m.SenderID != in.ActorID {
				unread = append(unread, m.ID)
			}
		}
		now := s.now()
		marked, err := tx.Chat().InsertReads(ctx, in.ActorID, unread, now)
		if err != nil {
			return err
		}
		observability.MessagesMarkedRead.Add(float64(marked))
		return tx.Chat().TouchLastRead(ctx, in.ConversationID, in.ActorID, now)
	})
	if err != nil {
		return pagination.Page[models.Message]{}, err
	}

	for i, j := 0, len(page.Data)-1; i < j; i, j = i+1, j-1 {
		page.Data[i], page.Data[j] = page.Data[j], page.Data[i]
	}
	return page, nil
}

// MarkConversationRead marks every message in the conversation as read by
// the actor and returns how many receipts were added.
func (s *ChatService) MarkConversationRead(ctx context.Context, conversationID, actorID string) (int64, error) {
	if err := s.requireParticipant(ctx, conversationID, actorID); err != nil {
		return 0, err
	}

	var marked int64
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		ids, err := tx.Chat().UnreadMessageIDs(ctx, conversationID, actorID)
		if err != nil {
			return err
		}
		now := s.now()
		if marked, err = tx.Chat().InsertReads(ctx, actorID, ids, now); err != nil {
			return err
		}
		return tx.Chat().TouchLastRead(ctx, conversationID, actorID, now)
	})
	if err != nil {
		return 0, err
	}
	observability.MessagesMarkedRead.Add(float64(marked))
	return marked, nil
}

// ConversationSummary is a conversation as listed in the inbox.
type ConversationSummary struct {
	models.Conversation
	LastMessage *models.Message `json:"last_message"`
	UnreadCount int64           `json:"unread_count"`
}

// ListConversations returns the actor's conversations, most recently active
// first, with their last message and unread count.
func (s *ChatService) ListConversations(ctx context.Context, actorID string) ([]ConversationSummary, error) {
	convs, err := s.store.Chat().ListConversations(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	last, err := s.store.Chat().LastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Chat().UnreadCounts(ctx, actorID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := ConversationSummary{Conversation: c, UnreadCount: unread[c.ID]}
		if m, ok := last[c.ID]; ok {
			summary.LastMessage = &m
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetConversation returns a conversation with its participants.
func (s *ChatService) GetConversation(ctx context.Context, conversationID, actorID string) (*models.Conversation, error) {
	if err := s.requireParticipant(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	return s.store.Chat().GetConversation(ctx, conversationID)
}
