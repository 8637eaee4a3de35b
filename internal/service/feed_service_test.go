package service

import (
	"context"
	"testing"

	"kindred/internal/models"
	"kindred/internal/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedIDs(t *testing.T, env *testEnv, in FeedInput) []string {
	t.Helper()
	var ids []string
	for pages := 0; ; pages++ {
		require.Less(t, pages, 20, "feed pagination did not terminate")
		page, err := env.feed.ListFeed(context.Background(), in)
		require.NoError(t, err)
		for _, p := range page.Data {
			ids = append(ids, p.ID)
		}
		if page.NextCursor == nil {
			return ids
		}
		in.Page.Cursor = *page.NextCursor
	}
}

func TestFeedService_VisibilityBlocksAndMutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	viewer := env.profile(t, "viewer")
	friend := env.profile(t, "friend")
	stranger := env.profile(t, "stranger")
	muted := env.profile(t, "muted")
	blocker := env.profile(t, "blocker")

	require.NoError(t, env.graph.Follow(ctx, EdgeInput{ActorID: viewer.ID, TargetID: friend.ID}))
	require.NoError(t, env.graph.Mute(ctx, EdgeInput{ActorID: viewer.ID, TargetID: muted.ID}))
	require.NoError(t, env.graph.Block(ctx, EdgeInput{ActorID: blocker.ID, TargetID: viewer.ID}))

	mk := func(author string, v models.Visibility) string {
		p, err := env.feed.CreatePost(ctx, CreatePostInput{AuthorID: author, Content: "post", Visibility: v})
		require.NoError(t, err)
		return p.ID
	}
	own := mk(viewer.ID, models.VisibilityPrivate)
	friendFollowers := mk(friend.ID, models.VisibilityFollowers)
	friendPrivate := mk(friend.ID, models.VisibilityPrivate)
	strangerPublic := mk(stranger.ID, "")
	strangerFollowers := mk(stranger.ID, models.VisibilityFollowers)
	mutedPublic := mk(muted.ID, models.VisibilityPublic)
	blockerPublic := mk(blocker.ID, models.VisibilityPublic)

	got := feedIDs(t, env, FeedInput{ViewerID: viewer.ID, Page: pagination.Request{Limit: 2}})
	assert.ElementsMatch(t, []string{own, friendFollowers, strangerPublic}, got)
	assert.NotContains(t, got, friendPrivate)
	assert.NotContains(t, got, strangerFollowers)
	assert.NotContains(t, got, mutedPublic)
	assert.NotContains(t, got, blockerPublic)

	got = feedIDs(t, env, FeedInput{ViewerID: viewer.ID, AuthorID: muted.ID})
	assert.Equal(t, []string{mutedPublic}, got)

	_, err := env.feed.ListFeed(ctx, FeedInput{ViewerID: viewer.ID, AuthorID: blocker.ID})
	assertCode(t, err, models.CodeForbidden)

	_, err = env.feed.GetPost(ctx, strangerFollowers, viewer.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = env.feed.GetPost(ctx, blockerPublic, viewer.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestFeedService_CommentThreads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.profile(t, "owner")
	fan := env.profile(t, "fan")
	post := env.post(t, owner.ID)
	otherPost := env.post(t, owner.ID)

	top, err := env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: fan.ID, PostID: post.ID, Content: "top"})
	require.NoError(t, err)
	reply, err := env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: owner.ID, PostID: post.ID, Content: "reply", ParentCommentID: top.ID})
	require.NoError(t, err)

	_, err = env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: fan.ID, PostID: post.ID, Content: "deeper", ParentCommentID: reply.ID})
	assertCode(t, err, models.CodeValidation)
	_, err = env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: fan.ID, PostID: otherPost.ID, Content: "elsewhere", ParentCommentID: top.ID})
	assertCode(t, err, models.CodeValidation)

	stored, err := env.store.Posts().GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CommentCount)
	assert.EqualValues(t, 1, env.countNotifications(t, owner.ID, models.NotificationComment))

	comments, err := env.feed.ListComments(ctx, ThreadInput{ViewerID: fan.ID, SubjectID: post.ID})
	require.NoError(t, err)
	require.Len(t, comments.Data, 1)
	assert.Equal(t, top.ID, comments.Data[0].ID)

	replies, err := env.feed.ListReplies(ctx, ThreadInput{ViewerID: fan.ID, SubjectID: top.ID})
	require.NoError(t, err)
	require.Len(t, replies.Data, 1)
	assert.Equal(t, reply.ID, replies.Data[0].ID)

	_, err = env.reactions.React(ctx, ReactInput{ActorID: owner.ID, Kind: models.SubjectComment, SubjectID: top.ID})
	require.NoError(t, err)

	assertCode(t, env.feed.DeleteComment(ctx, top.ID, owner.ID), models.CodeForbidden)
	require.NoError(t, env.feed.DeleteComment(ctx, top.ID, fan.ID))

	stored, err = env.store.Posts().GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CommentCount)
	assert.Zero(t, env.countNotifications(t, fan.ID, models.NotificationLike))

	var remaining int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestFeedService_CommentsHideBlockedAuthors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.profile(t, "owner")
	viewer := env.profile(t, "viewer")
	troll := env.profile(t, "troll")
	post := env.post(t, owner.ID)

	_, err := env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: troll.ID, PostID: post.ID, Content: "first"})
	require.NoError(t, err)
	kept, err := env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: owner.ID, PostID: post.ID, Content: "second"})
	require.NoError(t, err)

	require.NoError(t, env.graph.Block(ctx, EdgeInput{ActorID: viewer.ID, TargetID: troll.ID}))

	page, err := env.feed.ListComments(ctx, ThreadInput{ViewerID: viewer.ID, SubjectID: post.ID})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, kept.ID, page.Data[0].ID)
}

func TestFeedService_DeletePostCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.profile(t, "owner")
	fan := env.profile(t, "fan")
	post := env.post(t, owner.ID)

	comment, err := env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: fan.ID, PostID: post.ID, Content: "nice"})
	require.NoError(t, err)
	_, err = env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: owner.ID, PostID: post.ID, Content: "thanks", ParentCommentID: comment.ID})
	require.NoError(t, err)
	_, err = env.reactions.React(ctx, ReactInput{ActorID: fan.ID, Kind: models.SubjectPost, SubjectID: post.ID})
	require.NoError(t, err)
	_, err = env.reactions.React(ctx, ReactInput{ActorID: owner.ID, Kind: models.SubjectComment, SubjectID: comment.ID})
	require.NoError(t, err)
	other := env.post(t, owner.ID)
	_, err = env.reactions.React(ctx, ReactInput{ActorID: fan.ID, Kind: models.SubjectPost, SubjectID: other.ID})
	require.NoError(t, err)

	assertCode(t, env.feed.DeletePost(ctx, post.ID, fan.ID), models.CodeForbidden)
	require.NoError(t, env.feed.DeletePost(ctx, post.ID, owner.ID))

	_, err = env.feed.GetPost(ctx, post.ID, owner.ID)
	assertCode(t, err, models.CodeNotFound)
	assertCode(t, env.feed.DeletePost(ctx, post.ID, owner.ID), models.CodeNotFound)

	count := func(model interface{}, query string, arg string) int64 {
		var n int64
		require.NoError(t, env.db.Model(model).Where(query, arg).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.Comment{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.PostReaction{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.CommentReaction{}, "comment_id = ?", comment.ID))
	assert.Zero(t, count(&models.Notification{}, "post_id = ?", post.ID))

	assert.EqualValues(t, 1, env.countNotifications(t, owner.ID, models.NotificationLike), "other posts keep their notifications")
	stored, err := env.store.Posts().GetPost(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LikeCount)
}

func TestFeedService_UpdateComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.profile(t, "owner")
	fan := env.profile(t, "fan")
	post := env.post(t, owner.ID)

	comment, err := env.feed.CreateComment(ctx, CreateCommentInput{AuthorID: fan.ID, PostID: post.ID, Content: "frist"})
	require.NoError(t, err)

	_, err = env.feed.UpdateComment(ctx, UpdateCommentInput{ActorID: owner.ID, CommentID: comment.ID, Content: "first"})
	assertCode(t, err, models.CodeForbidden)
	_, err = env.feed.UpdateComment(ctx, UpdateCommentInput{ActorID: fan.ID, CommentID: comment.ID, Content: "   "})
	assertCode(t, err, models.CodeValidation)
	_, err = env.feed.UpdateComment(ctx, UpdateCommentInput{ActorID: fan.ID, CommentID: post.ID, Content: "first"})
	assertCode(t, err, models.CodeNotFound)

	updated, err := env.feed.UpdateComment(ctx, UpdateCommentInput{ActorID: fan.ID, CommentID: comment.ID, Content: " first "})
	require.NoError(t, err)
	assert.Equal(t, "first", updated.Content)

	stored, err := env.store.Posts().GetComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Content)
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))
}
