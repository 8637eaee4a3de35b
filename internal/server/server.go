// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kindred/internal/config"
	"kindred/internal/middleware"
	"kindred/internal/notifications"
	"kindred/internal/repository"
	"kindred/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// httpMetrics returns the process-wide HTTP metrics collector. The collector
// registers with the default Prometheus registry, so it is built once.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("kindred")
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config   *config.Config
	db       *gorm.DB
	redis    *redis.Client
	logger   *slog.Logger
	notifier *notifications.Notifier
	resolver *service.JWTResolver
	limiter  *middleware.RateLimiter

	profiles      *service.ProfileService
	graph         *service.GraphService
	friends       *service.FriendService
	reactions     *service.ReactionService
	feed          *service.FeedService
	chat          *service.ChatService
	notifications *service.NotificationService
	lineages      *service.LineageService
}

// NewServer wires the services over already-initialized dependencies. rdb
// may be nil, which disables realtime delivery, caching and rate limiting.
func NewServer(cfg *config.Config, db *gorm.DB, rdb *redis.Client, logger *slog.Logger) *Server {
	store := repository.NewStore(db)
	notifier := notifications.NewNotifier(rdb, logger)
	ns := service.NewNotificationService(store, notifier, logger)

	return &Server{
		config:        cfg,
		db:            db,
		redis:         rdb,
		logger:        logger,
		notifier:      notifier,
		resolver:      service.NewJWTResolver(cfg.JWTSecret, store, rdb, time.Duration(cfg.IdentityCacheTTLSeconds)*time.Second),
		limiter:       middleware.NewRateLimiter(rdb, logger),
		profiles:      service.NewProfileService(store, logger),
		graph:         service.NewGraphService(store, ns, logger),
		friends:       service.NewFriendService(store, ns, logger),
		reactions:     service.NewReactionService(store, ns, logger),
		feed:          service.NewFeedService(store, ns, logger),
		chat:          service.NewChatService(store, ns, logger),
		notifications: ns,
		lineages:      service.NewLineageService(store, ns, logger),
	}
}

// App builds the fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "kindred",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	s.logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return respondError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	metrics := httpMetrics()
	app.Use(metrics.Middleware)

	app.Use(middleware.StructuredLogger(s.logger))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(s.config.Origins(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	httpMetrics().RegisterAt(app, "/metrics")

	auth := middleware.AuthRequired(s.resolver)
	api := app.Group("/api")

	api.Post("/profiles", middleware.SubjectRequired(s.resolver), s.limiter.Limit("register", 5, 10*time.Minute), s.Register)

	protected := api.Group("", auth)
	protected.Get("/profiles/me", s.GetMyProfile)

	profiles := protected.Group("/profiles")
	profiles.Get("/:profileId/followers", s.ListFollowers)
	profiles.Get("/:profileId/following", s.ListFollowing)
	profiles.Get("/:profileId/friends", s.ListFriends)
	profiles.Get("/:profileId/relationship", s.GetRelationship)
	profiles.Post("/:profileId/follow", s.Follow)
	profiles.Delete("/:profileId/follow", s.Unfollow)
	profiles.Post("/:profileId/block", s.Block)
	profiles.Delete("/:profileId/block", s.Unblock)
	profiles.Post("/:profileId/mute", s.Mute)
	profiles.Delete("/:profileId/mute", s.Unmute)
	profiles.Get("/:profileId", s.GetProfile)

	friends := protected.Group("/friends")
	friends.Get("/requests", s.ListIncomingRequests)
	friends.Get("/requests/sent", s.ListOutgoingRequests)
	friends.Post("/requests/:requestId/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:requestId/decline", s.DeclineFriendRequest)
	friends.Post("/requests/:profileId", s.limiter.Limit("friend_request", 20, time.Hour), s.SendFriendRequest)
	friends.Delete("/requests/:profileId", s.CancelFriendRequest)
	friends.Delete("/:profileId", s.Unfriend)

	kinships := protected.Group("/kinships")
	kinships.Get("/", s.ListKinships)
	kinships.Post("/", s.CreateKinship)
	kinships.Post("/:kinshipId/verify", s.VerifyKinship)
	kinships.Delete("/:kinshipId", s.DeleteKinship)

	reactLimit := s.limiter.Limit("react", s.config.ReactionRateLimit, time.Minute)

	protected.Get("/feed", s.ListFeed)
	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Get("/:postId/comments", s.ListComments)
	posts.Post("/:postId/comments", s.CreateComment)
	posts.Post("/:postId/react", reactLimit, s.ReactToPost)
	posts.Get("/:postId/react", s.MyPostReaction)
	posts.Delete("/:postId/react", s.RemovePostReaction)
	posts.Get("/:postId", s.GetPost)
	posts.Delete("/:postId", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Get("/:commentId/replies", s.ListReplies)
	comments.Post("/:commentId/react", reactLimit, s.ReactToComment)
	comments.Delete("/:commentId/react", s.RemoveCommentReaction)
	comments.Patch("/:commentId", s.UpdateComment)
	comments.Delete("/:commentId", s.DeleteComment)

	lineages := protected.Group("/lineages")
	lineages.Get("/mine", s.ListMyLineages)
	lineages.Post("/", s.CreateLineage)
	lineages.Post("/:lineageId/join", s.JoinLineage)
	lineages.Delete("/:lineageId/leave", s.LeaveLineage)
	lineages.Post("/:lineageId/invite/:profileId", s.limiter.Limit("lineage_invite", 30, time.Hour), s.InviteToLineage)
	lineages.Get("/:lineageId", s.GetLineage)

	conversations := protected.Group("/conversations")
	conversations.Get("/", s.ListConversations)
	conversations.Post("/", s.CreateConversation)
	conversations.Get("/:id/messages", s.ListMessages)
	conversations.Post("/:id/messages", s.limiter.Limit("send_message", 60, time.Minute), s.SendMessage)
	conversations.Post("/:id/read", s.MarkConversationRead)
	conversations.Get("/:id", s.GetConversation)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.ListNotifications)
	notifs.Get("/unread-count", s.UnreadNotificationCount)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)

	app.Get("/ws/notifications", s.upgradeRequired, middleware.WebSocketAuthRequired(s.resolver), s.NotificationStream())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// its absence does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Shutdown releases the Redis client and database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	s.logger.InfoContext(ctx, "server resources released")
	return errors.Join(errs...)
}
