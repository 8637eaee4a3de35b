package server

import (
	"context"
	"log/slog"
	"time"

	"kindred/internal/middleware"
	"kindred/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 32
)

func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// NotificationStream pushes the caller's notifications as they are
// published. The stream is read-only; client frames are discarded.
func (s *Server) NotificationStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.WebSocketConnections.Inc()
		defer observability.WebSocketConnections.Dec()

		profileID, _ := conn.Locals(middleware.ProfileIDLocal).(string)
		if profileID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		logger := s.logger.With(slog.String("profile_id", profileID))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan string, wsSendBuffer)
		err := s.notifier.SubscribeProfile(ctx, profileID, func(payload string) {
			select {
			case out <- payload:
			default:
				logger.Warn("dropping notification for slow websocket client")
			}
		})
		if err != nil {
			logger.Error("websocket subscribe failed", slog.String("error", err.Error()))
			_ = conn.Close()
			return
		}

		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		logger.Info("notification stream opened")
		defer logger.Info("notification stream closed")

		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}
