package repository

import (
	"context"
	"testing"
	"time"

	"kindred/internal/models"
	"kindred/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepository_DirectConversationAndUnread(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	a := testutil.CreateProfile(t, db, "a")
	b := testutil.CreateProfile(t, db, "b")
	c := testutil.CreateProfile(t, db, "c")

	conv := &models.Conversation{
		CreatedByID: a.ID,
		Participants: []models.ConversationParticipant{
			{ProfileID: a.ID, Role: models.ParticipantRoleOwner},
			{ProfileID: b.ID, Role: models.ParticipantRoleMember},
		},
	}
	require.NoError(t, s.Chat().CreateConversation(ctx, conv))

	found, err := s.Chat().FindDirectConversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, conv.ID, found.ID)

	none, err := s.Chat().FindDirectConversation(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	var sent []string
	for _, body := range []string{"one", "two", "three"} {
		msg := &models.Message{ConversationID: conv.ID, SenderID: a.ID, Content: body}
		require.NoError(t, s.Chat().CreateMessage(ctx, msg))
		sent = append(sent, msg.ID)
	}

	counts, err := s.Chat().UnreadCounts(ctx, b.ID, []string{conv.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts[conv.ID])

	counts, err = s.Chat().UnreadCounts(ctx, a.ID, []string{conv.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts[conv.ID], "own messages are never unread")

	now := time.Now().UTC()
	inserted, err := s.Chat().InsertReads(ctx, b.ID, sent[:2], now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inserted)

	inserted, err = s.Chat().InsertReads(ctx, b.ID, sent, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inserted)

	unread, err := s.Chat().UnreadMessageIDs(ctx, conv.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	last, err := s.Chat().LastMessages(ctx, []string{conv.ID})
	require.NoError(t, err)
	assert.Equal(t, sent[2], last[conv.ID].ID)

	ids, err := s.Chat().ParticipantIDs(ctx, conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
