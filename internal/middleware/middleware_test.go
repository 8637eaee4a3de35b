package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverStub struct {
	resolveFn func(ctx context.Context, token string) (string, error)
}

func (s resolverStub) ResolveCaller(ctx context.Context, token string) (string, error) {
	return s.resolveFn(ctx, token)
}

func staticResolver(valid, profileID string) resolverStub {
	return resolverStub{resolveFn: func(_ context.Context, token string) (string, error) {
		if token != valid {
			return "", models.NewUnauthenticatedError("invalid or expired token")
		}
		return profileID, nil
	}}
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/test", AuthRequired(staticResolver("good", "p-1")), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"profileID": ProfileID(c)})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedID     string
	}{
		{name: "Happy Path", authHeader: "Bearer good", expectedStatus: http.StatusOK, expectedID: "p-1"},
		{name: "Missing Header", expectedStatus: http.StatusUnauthorized},
		{name: "Invalid Format", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized},
		{name: "Rejected Token", authHeader: "Bearer bad", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedID, body["profileID"])
			} else {
				assert.Equal(t, models.CodeUnauthenticated, body["code"])
			}
		})
	}
}

func TestWebSocketAuthRequired_AcceptsQueryToken(t *testing.T) {
	app := fiber.New()
	app.Get("/ws", WebSocketAuthRequired(staticResolver("good", "p-1")), func(c *fiber.Ctx) error {
		return c.SendString(ProfileID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws?token=good", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "p-1", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStructuredLogger_IncludesRequestAndProfile(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLoggerTo(&buf, "production", "info")

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger(logger))
	app.Get("/me", AuthRequired(staticResolver("good", "p-9")), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	line := buf.String()
	assert.Contains(t, line, `"msg":"request processed"`)
	assert.Contains(t, line, `"request_id":"req-42"`)
	assert.Contains(t, line, `"status":204`)
}

func TestRateLimiter(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	limiter := NewRateLimiter(rdb, observability.Discard())

	app := fiber.New()
	app.Post("/react", AuthRequired(staticResolver("good", "p-1")), limiter.Limit("react", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	hit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/react", nil)
		req.Header.Set("Authorization", "Bearer good")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusTooManyRequests, hit())

	key := RateLimitKey("react", "profile:p-1")
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit())
}

func TestRateLimiter_FailurePolicies(t *testing.T) {
	for _, tt := range []struct {
		name   string
		policy FailPolicy
		status int
	}{
		{name: "Fail Open", policy: FailOpen, status: http.StatusOK},
		{name: "Fail Closed", policy: FailClosed, status: http.StatusServiceUnavailable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewRateLimiter(nil, observability.Discard()).WithPolicy(tt.policy)
			app := fiber.New()
			app.Get("/x", limiter.Limit("x", 1, time.Minute), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestTracingMiddleware_SetsTraceHeader(t *testing.T) {
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/t", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/t", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, strings.Contains(resp.Header.Get("X-Trace-ID"), " "))
}
