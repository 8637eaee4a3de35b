package service

import (
	"context"
	"log/slog"

	"kindred/internal/models"
	"kindred/internal/notifications"
	"kindred/internal/observability"
	"kindred/internal/pagination"
	"kindred/internal/repository"
)

// Policy decides whether repeated events of one kind accumulate or collapse.
type Policy int

const (
	// PolicyAppend stores one notification per event.
	PolicyAppend Policy = iota
	// PolicyCollapse keeps at most one live notification per
	// (recipient, sender, type, subject).
	PolicyCollapse
)

// PolicyFor returns the delivery policy of a notification type. Togglable
// events and invitations collapse; everything else appends.
func PolicyFor(t models.NotificationType) Policy {
	switch t {
	case models.NotificationLike, models.NotificationFollow, models.NotificationLineageInvite:
		return PolicyCollapse
	default:
		return PolicyAppend
	}
}

// NotifyInput describes one notification event. Empty references are unset.
type NotifyInput struct {
	RecipientID string                  `validate:"required"`
	SenderID    string
	Type        models.NotificationType `validate:"required"`
	PostID      string
	CommentID   string
	RequestID   string
	MessageID   string
	LineageID   string
	KinshipID   string
}

func (in NotifyInput) key() repository.NotificationKey {
	return repository.NotificationKey{
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		Type:        in.Type,
		PostID:      models.StringRef(in.PostID),
		CommentID:   models.StringRef(in.CommentID),
		RequestID:   models.StringRef(in.RequestID),
		KinshipID:   models.StringRef(in.KinshipID),
		LineageID:   models.StringRef(in.LineageID),
	}
}

// NotificationService is the single place notifications are created,
// retracted, delivered and read.
type NotificationService struct {
	store    repository.Store
	notifier *notifications.Notifier
	logger   *slog.Logger
}

// NewNotificationService returns a new NotificationService.
func NewNotificationService(store repository.Store, notifier *notifications.Notifier, logger *slog.Logger) *NotificationService {
	return &NotificationService{store: store, notifier: notifier, logger: logger}
}

// Create persists a notification through tx so it commits or rolls back with
// the caller's transaction. It returns nil without error when nothing new was
// stored: a self-notification, or a collapsed duplicate.
func (s *NotificationService) Create(ctx context.Context, tx repository.Store, in NotifyInput) (*models.Notification, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.SenderID != "" && in.SenderID == in.RecipientID {
		observability.NotificationsSuppressed.WithLabelValues("self").Inc()
		return nil, nil
	}

	if PolicyFor(in.Type) == PolicyCollapse {
		existing, err := tx.Notifications().FindLive(ctx, in.key())
		if err != nil {
			return nil, err
		}
		if existing != nil {
			observability.NotificationsSuppressed.WithLabelValues("collapsed").Inc()
			return nil, nil
		}
	}

	n := &models.Notification{
		RecipientID: in.RecipientID,
		SenderID:    models.StringRef(in.SenderID),
		Type:        in.Type,
		PostID:      models.StringRef(in.PostID),
		CommentID:   models.StringRef(in.CommentID),
		RequestID:   models.StringRef(in.RequestID),
		MessageID:   models.StringRef(in.MessageID),
		LineageID:   models.StringRef(in.LineageID),
		KinshipID:   models.StringRef(in.KinshipID),
	}
	if err := tx.Notifications().Create(ctx, n); err != nil {
		return nil, err
	}
	observability.NotificationsCreated.WithLabelValues(string(in.Type)).Inc()
	return n, nil
}

// Retract deletes the live notifications matching the event.
func (s *NotificationService) Retract(ctx context.Context, tx repository.Store, in NotifyInput) (int64, error) {
	return tx.Notifications().DeleteMatching(ctx, in.key())
}

// Publish pushes n to the recipient's realtime channel. Delivery is best
// effort: failures are logged and counted, never returned.
func (s *NotificationService) Publish(ctx context.Context, n *models.Notification) {
	if n == nil {
		return
	}
	event := notifications.Event{Type: "notification", Data: n}
	if err := s.notifier.PublishProfile(ctx, n.RecipientID, event); err != nil {
		observability.NotificationPublishFailures.Inc()
		s.logger.WarnContext(ctx, "notification publish failed",
			slog.String("notification_id", n.ID),
			slog.String("recipient_id", n.RecipientID),
			slog.String("error", err.Error()),
		)
	}
}

// Notify creates the notification outside any caller transaction and
// publishes it. Used for events issued after commit.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	n, err := s.Create(ctx, s.store, in)
	if err != nil {
		return nil, err
	}
	s.Publish(ctx, n)
	return n, nil
}

// notifyAfterCommit is Notify for callers whose own work already committed:
// a failure is logged rather than failing the request.
func (s *NotificationService) notifyAfterCommit(ctx context.Context, in NotifyInput) {
	if _, err := s.Notify(ctx, in); err != nil {
		s.logger.WarnContext(ctx, "post-commit notification failed",
			slog.String("type", string(in.Type)),
			slog.String("recipient_id", in.RecipientID),
			slog.String("error", err.Error()),
		)
	}
}

// ListNotificationsInput pages through a recipient's notifications.
type ListNotificationsInput struct {
	RecipientID string `validate:"required"`
	Page        pagination.Request
}

// List returns the recipient's notifications newest-first, hiding ones sent
// by profiles in their blocked set.
func (s *NotificationService) List(ctx context.Context, in ListNotificationsInput) (pagination.Page[models.Notification], error) {
	if err := validateInput(in); err != nil {
		return pagination.Page[models.Notification]{}, err
	}
	blocked, err := s.store.Graph().BlockedSet(ctx, in.RecipientID)
	if err != nil {
		return pagination.Page[models.Notification]{}, err
	}

	limit := in.Page.Clamp(pagination.MaxLimit)
	rows, err := s.store.Notifications().List(ctx, in.RecipientID, blocked, limit, in.Page.Cursor)
	if err != nil {
		return pagination.Page[models.Notification]{}, err
	}
	return pagination.Build(rows, limit, func(n models.Notification) string { return n.ID }), nil
}

// MarkRead marks one notification read. Notifications addressed to someone
// else are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	ok, err := s.store.Notifications().MarkRead(ctx, id, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

// MarkAllRead marks every unread notification of the recipient and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, recipientID)
}

// UnreadCount counts the recipient's unread notifications that List would show.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	blocked, err := s.store.Graph().BlockedSet(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	return s.store.Notifications().UnreadCount(ctx, recipientID, blocked)
}
