package repository

import (
	"context"
	"time"

	"kindred/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for conversation and message data operations
type ChatRepository interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	FindDirectConversation(ctx context.Context, a, b string) (*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, profileID string) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error

	GetParticipant(ctx context.Context, conversationID, profileID string) (*models.ConversationParticipant, error)
	ParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
	TouchLastRead(ctx context.Context, conversationID, profileID string, at time.Time) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int, cursor string) ([]models.Message, error)
	LastMessages(ctx context.Context, conversationIDs []string) (map[string]models.Message, error)

	InsertReads(ctx context.Context, profileID string, messageIDs []string, at time.Time) (int64, error)
	UnreadMessageIDs(ctx context.Context, conversationID, profileID string) ([]string, error)
	UnreadCounts(ctx context.Context, profileID string, conversationIDs []string) (map[string]int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateConversation inserts the conversation together with its Participants.
func (r *chatRepository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return translate(r.db.WithContext(ctx).Create(conv).Error, "Conversation", conv.ID)
}

// FindDirectConversation returns the non-group conversation both profiles
// take part in, or nil.
func (r *chatRepository) FindDirectConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	memberOf := func(profileID string) *gorm.DB {
		return r.db.Model(&models.ConversationParticipant{}).Select("conversation_id").Where("profile_id = ?", profileID)
	}

	var conv models.Conversation
	found, err := firstOrNil(r.db.WithContext(ctx).
		Where("is_group = ?", false).
		Where("id IN (?)", memberOf(a)).
		Where("id IN (?)", memberOf(b)).
		Order("created_at ASC"), &conv)
	if err != nil || !found {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants.Profile").
		Where("id = ?", id).
		First(&conv).Error; err != nil {
		return nil, translate(err, "Conversation", id)
	}
	return &conv, nil
}

// ListConversations returns the profile's conversations, most recently active first.
func (r *chatRepository) ListConversations(ctx context.Context, profileID string) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	if err := r.db.WithContext(ctx).
		Preload("Participants.Profile").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.profile_id = ?", profileID).
		Order("conversations.updated_at DESC").
		Order("conversations.id DESC").
		Find(&convs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

func (r *chatRepository) TouchConversation(ctx context.Context, id string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetParticipant returns nil when profileID is not in the conversation.
func (r *chatRepository) GetParticipant(ctx context.Context, conversationID, profileID string) (*models.ConversationParticipant, error) {
	var p models.ConversationParticipant
	found, err := firstOrNil(r.db.WithContext(ctx).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (r *chatRepository) ParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Pluck("profile_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *chatRepository) TouchLastRead(ctx context.Context, conversationID, profileID string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		UpdateColumn("last_read_at", at).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return translate(r.db.WithContext(ctx).Create(msg).Error, "Message", msg.ID)
}

// ListMessages returns newest-first messages of the conversation.
func (r *chatRepository) ListMessages(ctx context.Context, conversationID string, limit int, cursor string) ([]models.Message, error) {
	var msgs []models.Message
	q := r.db.WithContext(ctx).Preload("Sender").Where("messages.conversation_id = ?", conversationID)
	if err := keyset(q, "messages", cursor, true, limit).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// LastMessages returns the newest message of each conversation that has one.
func (r *chatRepository) LastMessages(ctx context.Context, conversationIDs []string) (map[string]models.Message, error) {
	out := make(map[string]models.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	var msgs []models.Message
	if err := r.db.WithContext(ctx).
		Where("messages.conversation_id IN ?", conversationIDs).
		Where(`messages.id = (SELECT m2.id FROM messages m2 WHERE m2.conversation_id = messages.conversation_id
			ORDER BY m2.created_at DESC, m2.id DESC LIMIT 1)`).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, m := range msgs {
		out[m.ConversationID] = m
	}
	return out, nil
}

// InsertReads records read receipts, skipping ones that already exist, and
// returns how many were new.
func (r *chatRepository) InsertReads(ctx context.Context, profileID string, messageIDs []string, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	reads := make([]models.MessageRead, 0, len(messageIDs))
	for _, id := range messageIDs {
		reads = append(reads, models.MessageRead{MessageID: id, ProfileID: profileID, ReadAt: at})
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reads)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadMessageIDs lists messages from other senders that profileID has no
// read receipt for.
func (r *chatRepository) UnreadMessageIDs(ctx context.Context, conversationID, profileID string) ([]string, error) {
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, profileID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.profile_id = ?)", profileID).
		Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// UnreadCounts derives the unread count per conversation from the absence of
// read receipts. Conversations with nothing unread are omitted.
func (r *chatRepository) UnreadCounts(ctx context.Context, profileID string, conversationIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ConversationID string
		Unread         int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND sender_id <> ?", conversationIDs, profileID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.profile_id = ?)", profileID).
		Group("conversation_id").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.ConversationID] = row.Unread
	}
	return out, nil
}
