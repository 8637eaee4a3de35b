package service

import (
	"context"
	"testing"
	"time"

	"kindred/internal/cache"
	"kindred/internal/models"
	"kindred/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestJWTResolver_ResolveCaller(t *testing.T) {
	env := newTestEnv(t)
	mr, rdb := testutil.NewRedis(t)
	p := env.profile(t, "caller")
	resolver := NewJWTResolver(testSecret, env.store, rdb, time.Minute)
	ctx := context.Background()

	valid, err := IssueToken(testSecret, p.UserID, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, p.UserID, -time.Hour)
	require.NoError(t, err)
	foreign, err := IssueToken("another-secret", p.UserID, time.Hour)
	require.NoError(t, err)
	unknown, err := IssueToken(testSecret, "nobody", time.Hour)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": p.UserID}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "Happy Path", token: valid},
		{name: "Expired Token", token: expired, wantErr: true},
		{name: "Wrong Secret", token: foreign, wantErr: true},
		{name: "Missing Expiry", token: noExp, wantErr: true},
		{name: "Malformed Token", token: "malformed.token.here", wantErr: true},
		{name: "Unknown Subject", token: unknown, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveCaller(ctx, tt.token)
			if tt.wantErr {
				assertCode(t, err, models.CodeUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, p.ID, got)
		})
	}

	assert.True(t, mr.Exists(cache.IdentityKey(p.UserID)))
	assert.False(t, mr.Exists(cache.IdentityKey("nobody")))
}

func TestJWTResolver_ServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	mr, rdb := testutil.NewRedis(t)
	resolver := NewJWTResolver(testSecret, env.store, rdb, time.Minute)

	require.NoError(t, mr.Set(cache.IdentityKey("cached-sub"), `"cached-profile"`))
	token, err := IssueToken(testSecret, "cached-sub", time.Hour)
	require.NoError(t, err)

	got, err := resolver.ResolveCaller(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "cached-profile", got)
}

func TestJWTResolver_WorksWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	p := env.profile(t, "caller")
	resolver := NewJWTResolver(testSecret, env.store, nil, time.Minute)

	token, err := IssueToken(testSecret, p.UserID, time.Hour)
	require.NoError(t, err)

	got, err := resolver.ResolveCaller(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got)
}
