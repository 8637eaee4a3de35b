package models

import "time"

// Participant roles.
const (
	ParticipantRoleOwner  = "owner"
	ParticipantRoleMember = "member"
)

// Conversation is a direct (two participants) or group chat.
type Conversation struct {
	Model
	IsGroup     bool      `gorm:"default:false" json:"is_group"`
	Title       string    `gorm:"type:varchar(200)" json:"title,omitempty"`
	CreatedByID string    `gorm:"type:varchar(36);not null;index" json:"created_by_id"`
	UpdatedAt   time.Time `json:"updated_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant ties a profile to a conversation. LastReadAt is
// advanced whenever the participant reads a page of messages.
type ConversationParticipant struct {
	Model
	ConversationID string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_participants_member" json:"conversation_id"`
	ProfileID      string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_participants_member;index" json:"profile_id"`
	Role           string     `gorm:"type:varchar(10);not null;default:'member'" json:"role"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`

	Profile *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// TableName specifies the table name for GORM
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// Message is a single chat message. Content or MediaURL must be non-empty.
type Message struct {
	Model
	ConversationID string `gorm:"type:varchar(36);not null;index" json:"conversation_id"`
	SenderID       string `gorm:"type:varchar(36);not null;index" json:"sender_id"`
	Content        string `gorm:"type:text" json:"content"`
	MediaURL       string `json:"media_url,omitempty"`

	Sender *Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// MessageRead records that a profile has seen a message. Unread state is
// derived from the absence of this row.
type MessageRead struct {
	MessageID string    `gorm:"type:varchar(36);primaryKey" json:"message_id"`
	ProfileID string    `gorm:"type:varchar(36);primaryKey;index" json:"profile_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`
}

// TableName specifies the table name for GORM
func (MessageRead) TableName() string {
	return "message_reads"
}
