package pagination

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, DefaultLimit, Request{}.Clamp(MaxLimit))
	assert.Equal(t, DefaultLimit, Request{Limit: -3}.Clamp(MaxLimit))
	assert.Equal(t, 7, Request{Limit: 7}.Clamp(MaxLimit))
	assert.Equal(t, MaxLimit, Request{Limit: 500}.Clamp(MaxLimit))
	assert.Equal(t, MaxMessageLimit, Request{Limit: 500}.Clamp(MaxMessageLimit))
	assert.Equal(t, 5, Request{}.Clamp(5))
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func identity(s string) string { return s }

func TestBuildWithExtraRow(t *testing.T) {
	page := Build(ids(4), 3, identity)

	assert.Equal(t, []string{"0", "1", "2"}, page.Data)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "2", *page.NextCursor)
}

func TestBuildLastPage(t *testing.T) {
	page := Build(ids(3), 3, identity)
	assert.Len(t, page.Data, 3)
	assert.Nil(t, page.NextCursor)

	empty := Build[string](nil, 3, identity)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)
	assert.Nil(t, empty.NextCursor)
}

func TestMapKeepsCursor(t *testing.T) {
	page := Build(ids(3), 2, identity)
	mapped := Map(page, func(s string) int {
		n, _ := strconv.Atoi(s)
		return n * 10
	})
	assert.Equal(t, []int{0, 10}, mapped.Data)
	assert.Equal(t, page.NextCursor, mapped.NextCursor)
}
