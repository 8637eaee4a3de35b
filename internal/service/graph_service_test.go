package service

import (
	"context"
	"testing"

	"kindred/internal/models"
	"kindred/internal/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphService_BlockIsSymmetricAndDropsFollows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.profile(t, "a")
	b := env.profile(t, "b")
	c := env.profile(t, "c")

	require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID}))
	require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: b.ID, TargetID: a.ID}))
	require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: c.ID, TargetID: b.ID}))

	require.NoError(t, env.graph.Block(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID}))

	ab, err := env.graph.AreBlocked(ctx, a.ID, b.ID)
	require.NoError(t, err)
	ba, err := env.graph.AreBlocked(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ab)
	assert.True(t, ba)

	following, err := env.store.Graph().IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following)
	following, err = env.store.Graph().IsFollowing(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, following)

	err = env.graph.Follow(ctx, EdgeInput{ActorID: b.ID, TargetID: a.ID})
	assertCode(t, err, models.CodeForbidden)

	// a's follow of b is gone, and a may not list b's followers at all.
	followers, err := env.graph.ListFollowers(ctx, ListInput{OwnerID: b.ID, ViewerID: c.ID})
	require.NoError(t, err)
	require.Len(t, followers.Data, 1)
	assert.Equal(t, c.ID, followers.Data[0].ID)

	_, err = env.graph.ListFollowers(ctx, ListInput{OwnerID: b.ID, ViewerID: a.ID})
	assertCode(t, err, models.CodeForbidden)
	_, err = env.graph.ListFollowing(ctx, ListInput{OwnerID: a.ID, ViewerID: b.ID})
	assertCode(t, err, models.CodeForbidden)

	require.NoError(t, env.graph.Unblock(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID}))
	ab, err = env.graph.AreBlocked(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ab)
}

func TestGraphService_FollowNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.profile(t, "a")
	b := env.profile(t, "b")

	for i := 0; i < 2; i++ {
		require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID}))
	}
	require.NoError(t, env.graph.Unfollow(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID}))
	require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID}))

	assert.EqualValues(t, 1, env.countNotifications(t, b.ID, models.NotificationFollow))

	err := env.graph.Follow(ctx, EdgeInput{ActorID: a.ID, TargetID: a.ID})
	assertCode(t, err, models.CodeValidation)
}

func TestGraphService_Edge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.profile(t, "a")
	b := env.profile(t, "b")

	require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: b.ID, TargetID: a.ID}))
	require.NoError(t, env.graph.Mute(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID}))
	req, err := env.friends.Send(ctx, PairInput{ActorID: b.ID, OtherID: a.ID})
	require.NoError(t, err)

	edge, err := env.graph.Edge(ctx, EdgeInput{ActorID: a.ID, TargetID: b.ID})
	require.NoError(t, err)
	assert.False(t, edge.IsFollowing)
	assert.True(t, edge.IsFollowedBy)
	assert.True(t, edge.IsMuted)
	assert.Equal(t, FriendshipPendingReceived, edge.Friendship)
	require.NotNil(t, edge.RequestID)
	assert.Equal(t, req.ID, *edge.RequestID)

	_, err = env.friends.Accept(ctx, RespondInput{RequestID: req.ID, ActorID: a.ID})
	require.NoError(t, err)
	edge, err = env.graph.Edge(ctx, EdgeInput{ActorID: b.ID, TargetID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, FriendshipFriends, edge.Friendship)
	assert.Nil(t, edge.RequestID)
}

func TestGraphService_KinshipLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.profile(t, "a")
	b := env.profile(t, "b")
	c := env.profile(t, "c")

	k, err := env.graph.CreateKinship(ctx, KinshipInput{ActorID: a.ID, TargetID: b.ID, Relation: models.KinshipSibling})
	require.NoError(t, err)
	assert.False(t, k.Verified)

	_, err = env.graph.CreateKinship(ctx, KinshipInput{ActorID: a.ID, TargetID: b.ID, Relation: "FRIEND"})
	assertCode(t, err, models.CodeValidation)

	_, err = env.graph.VerifyKinship(ctx, k.ID, a.ID)
	assertCode(t, err, models.CodeForbidden)

	verified, err := env.graph.VerifyKinship(ctx, k.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.EqualValues(t, 1, env.countNotifications(t, a.ID, models.NotificationKinshipVerified))

	views, err := env.graph.ListKinships(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].IAmA)
	assert.Equal(t, a.ID, views[0].Relative.ID)
	assert.True(t, views[0].Verified)

	assertCode(t, env.graph.DeleteKinship(ctx, k.ID, c.ID), models.CodeForbidden)
	require.NoError(t, env.graph.DeleteKinship(ctx, k.ID, b.ID))

	views, err = env.graph.ListKinships(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestGraphService_ListFollowersPagesToTheEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.profile(t, "owner")

	want := map[string]bool{}
	for i := 0; i < 7; i++ {
		p := env.profile(t, "fan")
		require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: p.ID, TargetID: owner.ID}))
		want[p.ID] = true
	}

	got := map[string]bool{}
	req := pagination.Request{Limit: 3}
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "pagination did not terminate")
		page, err := env.graph.ListFollowers(ctx, ListInput{OwnerID: owner.ID, ViewerID: owner.ID, Page: req})
		require.NoError(t, err)
		for _, s := range page.Data {
			assert.False(t, got[s.ID], "duplicate %s", s.ID)
			got[s.ID] = true
		}
		if page.NextCursor == nil {
			break
		}
		req.Cursor = *page.NextCursor
	}
	assert.Equal(t, want, got)
}
