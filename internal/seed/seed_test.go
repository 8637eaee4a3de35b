package seed

import (
	"context"
	"testing"

	"kindred/internal/models"
	"kindred/internal/observability"
	"kindred/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsername(t *testing.T) {
	assert.Equal(t, "maryjones3", username("Mary", "Jones", 3))
	assert.Equal(t, "obrien0", username("O'", "Brien", 0))
	assert.Equal(t, "jos1", username("José", "", 1))
}

func TestRunBuildsConsistentGraph(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewSeeder(db, observability.Discard(), 42)

	report, err := s.Run(context.Background(), Options{Profiles: 6, PostsPerProfile: 2})
	require.NoError(t, err)

	assert.Equal(t, 6, report.Profiles)
	assert.Equal(t, 6, report.Follows)
	assert.Equal(t, 3, report.Friendships)
	assert.Equal(t, 1, report.Kinships)
	assert.Equal(t, 1, report.Lineages)
	assert.Equal(t, 12, report.Posts)
	assert.Equal(t, 24, report.Comments)
	assert.Equal(t, 2, report.Conversations)
	assert.Equal(t, 6, report.Messages)

	var profiles int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&profiles).Error)
	assert.Equal(t, int64(6), profiles)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		var reactions, comments int64
		require.NoError(t, db.Model(&models.PostReaction{}).Where("post_id = ?", p.ID).Count(&reactions).Error)
		require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments).Error)
		assert.Equal(t, int(reactions), p.LikeCount, "like_count of %s", p.ID)
		assert.Equal(t, int(comments), p.CommentCount, "comment_count of %s", p.ID)
	}

	var members, invites int64
	require.NoError(t, db.Model(&models.LineageMembership{}).Count(&members).Error)
	require.NoError(t, db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationLineageInvite).Count(&invites).Error)
	assert.Equal(t, int64(3), members)
	assert.Equal(t, int64(3), invites)

	var pending int64
	require.NoError(t, db.Model(&models.FriendRequest{}).
		Where("status = ?", models.FriendRequestPending).Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}

func TestRunRejectsTinyGraph(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewSeeder(db, observability.Discard(), 1).Run(context.Background(), Options{Profiles: 1})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewSeeder(db, observability.Discard(), 7).Run(context.Background(), DefaultOptions)
	require.NoError(t, err)

	require.NoError(t, Clear(db))

	for _, model := range []interface{}{&models.Profile{}, &models.Post{}, &models.Notification{}, &models.Message{}, &models.LineageMembership{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}
}
