package repository

import (
	"context"

	"kindred/internal/models"

	"gorm.io/gorm"
)

// NotificationKey identifies the live notification for a collapsible event:
// one per (recipient, sender, type, subject references). Nil references
// match NULL.
type NotificationKey struct {
	RecipientID string
	SenderID    string
	Type        models.NotificationType
	PostID      *string
	CommentID   *string
	RequestID   *string
	KinshipID   *string
	LineageID   *string
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	FindLive(ctx context.Context, key NotificationKey) (*models.Notification, error)
	DeleteMatching(ctx context.Context, key NotificationKey) (int64, error)
	DeleteByComments(ctx context.Context, commentIDs []string) error
	DeleteByPost(ctx context.Context, postID string) error
	CountMatching(ctx context.Context, key NotificationKey) (int64, error)
	List(ctx context.Context, recipientID string, excludeSenders []string, limit int, cursor string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string, excludeSenders []string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(n).Error, "Notification", n.ID)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translate(err, "Notification", id)
	}
	return &n, nil
}

func (r *notificationRepository) keyed(ctx context.Context, key NotificationKey) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", key.RecipientID, key.Type)
	q = matchRef(q, "sender_id", models.StringRef(key.SenderID))
	q = matchRef(q, "post_id", key.PostID)
	q = matchRef(q, "comment_id", key.CommentID)
	q = matchRef(q, "request_id", key.RequestID)
	q = matchRef(q, "kinship_id", key.KinshipID)
	q = matchRef(q, "lineage_id", key.LineageID)
	return q
}

func matchRef(q *gorm.DB, column string, ref *string) *gorm.DB {
	if ref == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *ref)
}

// FindLive returns the newest notification matching key, or nil.
func (r *notificationRepository) FindLive(ctx context.Context, key NotificationKey) (*models.Notification, error) {
	var n models.Notification
	found, err := firstOrNil(r.keyed(ctx, key).Order("created_at DESC"), &n)
	if err != nil || !found {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) DeleteMatching(ctx context.Context, key NotificationKey) (int64, error) {
	res := r.keyed(ctx, key).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteByComments drops notifications that point at removed comments.
func (r *notificationRepository) DeleteByComments(ctx context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("comment_id IN ?", commentIDs).Delete(&models.Notification{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteByPost drops notifications about the post and its comments.
func (r *notificationRepository) DeleteByPost(ctx context.Context, postID string) error {
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Notification{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) CountMatching(ctx context.Context, key NotificationKey) (int64, error) {
	var count int64
	if err := r.keyed(ctx, key).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// List returns the recipient's notifications newest-first. Notifications
// from excluded senders are hidden; system notifications (no sender) are not.
func (r *notificationRepository) List(ctx context.Context, recipientID string, excludeSenders []string, limit int, cursor string) ([]models.Notification, error) {
	var notifications []models.Notification
	q := r.db.WithContext(ctx).Preload("Sender").Where("notifications.recipient_id = ?", recipientID)
	if len(excludeSenders) > 0 {
		q = q.Where("(notifications.sender_id IS NULL OR notifications.sender_id NOT IN ?)", excludeSenders)
	}
	if err := keyset(q, "notifications", cursor, true, limit).Find(&notifications).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifications, nil
}

// MarkRead reports false when no notification with id belongs to recipientID.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadCount applies the same sender exclusion as List.
func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string, excludeSenders []string) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false)
	if len(excludeSenders) > 0 {
		q = q.Where("(sender_id IS NULL OR sender_id NOT IN ?)", excludeSenders)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
