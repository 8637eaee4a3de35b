// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"kindred/internal/database"
	"kindred/internal/models"
	"kindred/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Int64

// NewDB returns a fresh, migrated in-memory SQLite database. A single
// connection keeps every statement on the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(observability.Discard()))
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "migrate sqlite")
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// CreateProfile inserts a profile with a unique username derived from name.
func CreateProfile(t *testing.T, db *gorm.DB, name string) models.Profile {
	t.Helper()

	n := seq.Add(1)
	p := models.Profile{
		UserID:    fmt.Sprintf("sub-%s-%d", name, n),
		Username:  fmt.Sprintf("%s_%d", name, n),
		FirstName: name,
	}
	require.NoError(t, db.Create(&p).Error, "create profile %s", name)
	return p
}

// CreatePost inserts a public post authored by profileID.
func CreatePost(t *testing.T, db *gorm.DB, profileID, content string) models.Post {
	t.Helper()

	p := models.Post{ProfileID: profileID, Content: content, Visibility: models.VisibilityPublic}
	require.NoError(t, db.Create(&p).Error, "create post")
	return p
}
