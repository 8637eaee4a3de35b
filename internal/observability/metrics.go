package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kindred_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// FriendRequestTransitions counts friend request state changes by target status.
	FriendRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kindred_friend_request_transitions_total",
		Help: "Friend request state transitions by resulting status",
	}, []string{"status"})

	// ReactionOutcomes counts reaction toggles by subject kind and outcome.
	ReactionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kindred_reaction_outcomes_total",
		Help: "Reaction toggle outcomes by subject kind",
	}, []string{"subject", "outcome"})

	// ReactionRetries counts reaction toggles retried after a concurrent insert.
	ReactionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kindred_reaction_retries_total",
		Help: "Reaction toggles retried after a unique violation",
	})

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kindred_notifications_created_total",
		Help: "Notifications persisted by type",
	}, []string{"type"})

	// NotificationsSuppressed counts notifications skipped by the self-notify
	// guard or the collapse policy.
	NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kindred_notifications_suppressed_total",
		Help: "Notifications not persisted, by reason",
	}, []string{"reason"})

	// NotificationPublishFailures counts realtime deliveries that failed.
	NotificationPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kindred_notification_publish_failures_total",
		Help: "Realtime notification publishes that failed",
	})

	// MessagesMarkedRead counts MessageRead rows written by read-tracking.
	MessagesMarkedRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kindred_messages_marked_read_total",
		Help: "Message read receipts written",
	})

	// WebSocketConnections is the gauge of open notification streams.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kindred_websocket_connections",
		Help: "Number of open notification WebSocket connections",
	})
)
