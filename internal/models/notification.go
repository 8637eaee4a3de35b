package models

// NotificationType names the event a notification reports.
type NotificationType string

const (
	NotificationFriendRequest   NotificationType = "FRIEND_REQUEST"
	NotificationFriendAccept    NotificationType = "FRIEND_ACCEPT"
	NotificationFollow          NotificationType = "FOLLOW"
	NotificationLike            NotificationType = "LIKE"
	NotificationComment         NotificationType = "COMMENT"
	NotificationMessage         NotificationType = "MESSAGE"
	NotificationKinshipVerified NotificationType = "KINSHIP_VERIFIED"
	NotificationLineageInvite   NotificationType = "LINEAGE_INVITE"
	NotificationLineageAccept   NotificationType = "LINEAGE_ACCEPT"
)

// Notification is a persisted event addressed to one recipient. The optional
// references point at the subject of the event.
type Notification struct {
	Model
	RecipientID string           `gorm:"type:varchar(36);not null;index:idx_notifications_recipient" json:"recipient_id"`
	SenderID    *string          `gorm:"type:varchar(36);index" json:"sender_id,omitempty"`
	Type        NotificationType `gorm:"type:varchar(30);not null;index" json:"type"`
	PostID      *string          `gorm:"type:varchar(36);index" json:"post_id,omitempty"`
	CommentID   *string          `gorm:"type:varchar(36);index" json:"comment_id,omitempty"`
	RequestID   *string          `gorm:"type:varchar(36)" json:"request_id,omitempty"`
	MessageID   *string          `gorm:"type:varchar(36)" json:"message_id,omitempty"`
	LineageID   *string          `gorm:"type:varchar(36)" json:"lineage_id,omitempty"`
	KinshipID   *string          `gorm:"type:varchar(36)" json:"kinship_id,omitempty"`
	IsRead      bool             `gorm:"not null;default:false" json:"is_read"`

	Sender *Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// StringRef returns a pointer to s, or nil when s is empty. Notification
// references use nil for "not set".
func StringRef(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the referenced string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
