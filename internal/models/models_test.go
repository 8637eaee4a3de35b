package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePair(t *testing.T) {
	lo, hi := NormalizePair("b", "a")
	assert.Equal(t, "a", lo)
	assert.Equal(t, "b", hi)

	lo2, hi2 := NormalizePair("a", "b")
	assert.Equal(t, lo, lo2)
	assert.Equal(t, hi, hi2)
}

func TestFriendshipBeforeCreateCanonicalizes(t *testing.T) {
	f := &Friendship{UserAID: "zed", UserBID: "amy"}
	require.NoError(t, f.BeforeCreate(nil))

	assert.Equal(t, "amy", f.UserAID)
	assert.Equal(t, "zed", f.UserBID)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "zed", f.Other("amy"))
	assert.Equal(t, "amy", f.Other("zed"))
}

func TestFriendRequestBeforeCreateFillsPair(t *testing.T) {
	r := &FriendRequest{RequesterID: "m", AddresseeID: "c"}
	require.NoError(t, r.BeforeCreate(nil))

	assert.Equal(t, "c", r.PairLo)
	assert.Equal(t, "m", r.PairHi)
	assert.Equal(t, "m", r.RequesterID, "direction is preserved")
}

func TestModelBeforeCreateKeepsPresetID(t *testing.T) {
	m := &Model{ID: "fixed"}
	require.NoError(t, m.BeforeCreate(nil))
	assert.Equal(t, "fixed", m.ID)
}

func TestReactionTypeValid(t *testing.T) {
	for _, rt := range []ReactionType{ReactionLike, ReactionLove, ReactionLaugh, ReactionAngry, ReactionSad} {
		assert.True(t, rt.Valid(), rt)
	}
	assert.False(t, ReactionType("WOW").Valid())
	assert.False(t, ReactionType("").Valid())
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewUnauthenticatedError("no token"), 401},
		{NewNotFoundError("Post", "p1"), 404},
		{NewForbiddenError("nope"), 403},
		{NewConflictError("already"), 409},
		{NewValidationError("bad"), 400},
		{NewInternalError(errors.New("boom")), 500},
		{errors.New("plain"), 500},
		{fmt.Errorf("wrapped: %w", NewConflictError("x")), 409},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewNotFoundError("Profile", "x"))
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeConflict))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("other")))
}

func TestStringRef(t *testing.T) {
	assert.Nil(t, StringRef(""))
	ref := StringRef("abc")
	require.NotNil(t, ref)
	assert.Equal(t, "abc", Deref(ref))
	assert.Equal(t, "", Deref(nil))
}
