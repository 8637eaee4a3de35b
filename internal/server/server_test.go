package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kindred/internal/config"
	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/service"
	"kindred/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type harness struct {
	t   *testing.T
	db  *gorm.DB
	app *fiber.App
}

func newHarness(t *testing.T, rdb *redis.Client, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:               testSecret,
		AllowedOrigins:          "http://localhost:5173",
		Env:                     "test",
		IdentityCacheTTLSeconds: 60,
	}
	if mutate != nil {
		mutate(cfg)
	}

	db := testutil.NewDB(t)
	s := NewServer(cfg, db, rdb, observability.Discard())
	return &harness{t: t, db: db, app: s.App()}
}

func (h *harness) token(p models.Profile) string {
	h.t.Helper()
	tok, err := service.IssueToken(testSecret, p.UserID, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body interface{}) *http.Response {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, nil, nil)

	resp := h.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.do(http.MethodGet, "/health/live", "", nil)

	resp := h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, nil, nil)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"unknown subject", mustToken(t, "nobody"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.do(http.MethodGet, "/api/profiles/me", tt.token, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func mustToken(t *testing.T, subject string) string {
	t.Helper()
	tok, err := service.IssueToken(testSecret, subject, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestRegisterThenFetchOwnProfile(t *testing.T) {
	h := newHarness(t, nil, nil)
	tok := mustToken(t, "auth0|alice")

	resp := h.do(http.MethodPost, "/api/profiles", tok, fiber.Map{"username": "Alice", "first_name": "Alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Profile
	decode(t, resp, &created)
	assert.Equal(t, "alice", created.Username)

	resp = h.do(http.MethodPost, "/api/profiles", tok, fiber.Map{"username": "alice2"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/profiles/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.Profile
	decode(t, resp, &me)
	assert.Equal(t, created.ID, me.ID)
}

func TestFriendRequestFlow(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")

	resp := h.do(http.MethodPost, "/api/friends/requests/"+bob.ID, h.token(alice), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var req models.FriendRequest
	decode(t, resp, &req)

	resp = h.do(http.MethodPost, "/api/friends/requests/"+bob.ID, h.token(alice), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(http.MethodPost, "/api/friends/requests/"+req.ID+"/accept", h.token(alice), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "only the addressee may accept")

	resp = h.do(http.MethodPost, "/api/friends/requests/"+req.ID+"/accept", h.token(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/profiles/"+bob.ID+"/relationship", h.token(alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var edge service.Edge
	decode(t, resp, &edge)
	assert.Equal(t, service.FriendshipFriends, edge.Friendship)

	resp = h.do(http.MethodGet, "/api/notifications", h.token(alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notifs struct {
		Data []models.Notification `json:"data"`
	}
	decode(t, resp, &notifs)
	require.Len(t, notifs.Data, 1)
	assert.Equal(t, models.NotificationFriendAccept, notifs.Data[0].Type)
}

func TestBlockHidesProfileAndPosts(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")
	post := testutil.CreatePost(t, h.db, bob.ID, "hello")

	resp := h.do(http.MethodPost, "/api/profiles/"+bob.ID+"/block", h.token(alice), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/profiles/"+alice.ID, h.token(bob), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/posts/"+post.ID, h.token(alice), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(http.MethodPost, "/api/posts/"+post.ID+"/react", h.token(alice), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReactionToggleOverHTTP(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")
	post := testutil.CreatePost(t, h.db, bob.ID, "hello")
	path := "/api/posts/" + post.ID + "/react"

	var result service.ReactionResult
	resp := h.do(http.MethodPost, path, h.token(alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)
	assert.True(t, result.Reacted)
	assert.Equal(t, 1, result.LikeCount)

	resp = h.do(http.MethodPost, path, h.token(alice), fiber.Map{"type": "LOVE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)
	assert.Equal(t, service.OutcomeChanged, result.Outcome)
	require.NotNil(t, result.Type)
	assert.Equal(t, models.ReactionLove, *result.Type)

	resp = h.do(http.MethodDelete, path, h.token(alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)
	assert.False(t, result.Reacted)
	assert.Equal(t, 0, result.LikeCount)

	resp = h.do(http.MethodPost, path, h.token(alice), fiber.Map{"type": "MEH"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReactionRateLimit(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	h := newHarness(t, rdb, func(cfg *config.Config) { cfg.ReactionRateLimit = 2 })
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")
	post := testutil.CreatePost(t, h.db, bob.ID, "hello")
	path := "/api/posts/" + post.ID + "/react"

	for i := 0; i < 2; i++ {
		resp := h.do(http.MethodPost, path, h.token(alice), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := h.do(http.MethodPost, path, h.token(alice), nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCommentAndThread(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")
	post := testutil.CreatePost(t, h.db, bob.ID, "hello")

	resp := h.do(http.MethodPost, "/api/posts/"+post.ID+"/comments", h.token(alice), fiber.Map{"content": "nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var top models.Comment
	decode(t, resp, &top)

	resp = h.do(http.MethodPost, "/api/posts/"+post.ID+"/comments", h.token(bob),
		fiber.Map{"content": "thanks", "parent_comment_id": top.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reply models.Comment
	decode(t, resp, &reply)

	resp = h.do(http.MethodPost, "/api/posts/"+post.ID+"/comments", h.token(alice),
		fiber.Map{"content": "too deep", "parent_comment_id": reply.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/comments/"+top.ID+"/replies", h.token(alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var replies struct {
		Data []models.Comment `json:"data"`
	}
	decode(t, resp, &replies)
	require.Len(t, replies.Data, 1)
	assert.Equal(t, reply.ID, replies.Data[0].ID)

	resp = h.do(http.MethodGet, "/api/posts/"+post.ID, h.token(alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Post
	decode(t, resp, &got)
	assert.Equal(t, 2, got.CommentCount)

	resp = h.do(http.MethodDelete, "/api/comments/"+top.ID, h.token(bob), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConversationOverHTTP(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")

	resp := h.do(http.MethodPost, "/api/conversations", h.token(alice), fiber.Map{"participant_ids": []string{bob.ID}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var conv models.Conversation
	decode(t, resp, &conv)

	msgPath := "/api/conversations/" + conv.ID + "/messages"
	resp = h.do(http.MethodPost, msgPath, h.token(alice), fiber.Map{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(http.MethodPost, msgPath, h.token(alice), fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/conversations", h.token(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inbox []service.ConversationSummary
	decode(t, resp, &inbox)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(1), inbox[0].UnreadCount)

	resp = h.do(http.MethodGet, msgPath, h.token(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/conversations", h.token(bob), nil)
	decode(t, resp, &inbox)
	assert.Equal(t, int64(0), inbox[0].UnreadCount)

	carol := testutil.CreateProfile(t, h.db, "carol")
	resp = h.do(http.MethodGet, msgPath, h.token(carol), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNotificationReadEndpoints(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")

	resp := h.do(http.MethodPost, "/api/profiles/"+alice.ID+"/follow", h.token(bob), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var count struct {
		Count int64 `json:"count"`
	}
	resp = h.do(http.MethodGet, "/api/notifications/unread-count", h.token(alice), nil)
	decode(t, resp, &count)
	assert.Equal(t, int64(1), count.Count)

	resp = h.do(http.MethodPost, "/api/notifications/read-all", h.token(alice), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/notifications/unread-count", h.token(alice), nil)
	decode(t, resp, &count)
	assert.Equal(t, int64(0), count.Count)
}

func TestNotificationStreamRequiresUpgrade(t *testing.T) {
	h := newHarness(t, nil, nil)
	resp := h.do(http.MethodGet, "/ws/notifications", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestCancelFriendRequest(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")

	resp := h.do(http.MethodDelete, "/api/friends/requests/"+bob.ID, h.token(alice), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(http.MethodPost, "/api/friends/requests/"+bob.ID, h.token(alice), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(http.MethodDelete, "/api/friends/requests/"+bob.ID, h.token(alice), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/friends/requests", h.token(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var incoming []models.FriendRequest
	decode(t, resp, &incoming)
	assert.Empty(t, incoming)
}

func TestEditCommentAndDeletePost(t *testing.T) {
	h := newHarness(t, nil, nil)
	alice := testutil.CreateProfile(t, h.db, "alice")
	bob := testutil.CreateProfile(t, h.db, "bob")
	post := testutil.CreatePost(t, h.db, bob.ID, "hello")

	resp := h.do(http.MethodPost, "/api/posts/"+post.ID+"/comments", h.token(alice), fiber.Map{"content": "nicee"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var comment models.Comment
	decode(t, resp, &comment)

	resp = h.do(http.MethodPatch, "/api/comments/"+comment.ID, h.token(bob), fiber.Map{"content": "nice"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = h.do(http.MethodPatch, "/api/comments/"+comment.ID, h.token(alice), fiber.Map{"content": "nice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var edited models.Comment
	decode(t, resp, &edited)
	assert.Equal(t, "nice", edited.Content)

	resp = h.do(http.MethodDelete, "/api/posts/"+post.ID, h.token(alice), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = h.do(http.MethodDelete, "/api/posts/"+post.ID, h.token(bob), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/posts/"+post.ID, h.token(bob), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = h.do(http.MethodGet, "/api/notifications/unread-count", h.token(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unread struct {
		Count int64 `json:"count"`
	}
	decode(t, resp, &unread)
	assert.Zero(t, unread.Count, "the comment notification went with the post")
}

func TestLineageOverHTTP(t *testing.T) {
	h := newHarness(t, nil, nil)
	elder := testutil.CreateProfile(t, h.db, "elder")
	cousin := testutil.CreateProfile(t, h.db, "cousin")

	resp := h.do(http.MethodPost, "/api/lineages", h.token(elder), fiber.Map{"name": "", "type": "CLAN"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(http.MethodPost, "/api/lineages", h.token(elder),
		fiber.Map{"name": "Okafor Clan", "type": "CLAN", "invite_ids": []string{cousin.ID}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var lineage models.Lineage
	decode(t, resp, &lineage)
	assert.Equal(t, models.LineageClan, lineage.Type)

	resp = h.do(http.MethodPost, "/api/lineages/"+lineage.ID+"/join", h.token(cousin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var membership models.LineageMembership
	decode(t, resp, &membership)
	assert.Equal(t, models.LineageRoleDescendant, membership.Role)

	resp = h.do(http.MethodGet, "/api/lineages/mine", h.token(cousin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []service.LineageSummary
	decode(t, resp, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, lineage.ID, mine[0].ID)

	resp = h.do(http.MethodGet, "/api/lineages/"+lineage.ID, h.token(cousin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Lineage
	decode(t, resp, &got)
	assert.Len(t, got.Members, 2)

	resp = h.do(http.MethodDelete, "/api/lineages/"+lineage.ID+"/leave", h.token(cousin), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(http.MethodPost, "/api/lineages/"+lineage.ID+"/invite/"+cousin.ID, h.token(cousin), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(http.MethodGet, "/api/notifications", h.token(elder), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inbox struct {
		Data []models.Notification `json:"data"`
	}
	decode(t, resp, &inbox)
	require.Len(t, inbox.Data, 1)
	assert.Equal(t, models.NotificationLineageAccept, inbox.Data[0].Type)
}
