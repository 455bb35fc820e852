package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func sampleContent() Content {
	c := NewContent(
		UserAuthor(10, "alice", strp("ally")),
		Posted{ID: 20, Name: "bob"},
		"hello world",
		time.Unix(100, 0),
	)
	c.Liked = []UserID{1, 2, 3}
	c.Pinned = []UserID{2}
	return c
}

func TestContentQueryEmptyMatchesAll(t *testing.T) {
	assert.True(t, ContentQuery{}.Matches(sampleContent()))
	assert.True(t, UserQuery{}.Matches(NewUser(1)))
}

func TestAuthorQuery(t *testing.T) {
	c := sampleContent()

	byID := AuthorQuery{Kind: ByUserID, ID: 10}
	assert.True(t, byID.Matches(c.Author))
	byID.ID = 11
	assert.False(t, byID.Matches(c.Author))

	name, err := NewAuthorQuery(ByUserName, "^ali")
	require.NoError(t, err)
	assert.True(t, name.Matches(c.Author))

	nick, err := NewAuthorQuery(ByUserNick, "^ally$")
	require.NoError(t, err)
	assert.True(t, nick.Matches(c.Author))
	assert.False(t, nick.Matches(UserAuthor(1, "ally", nil)))

	virt, err := NewAuthorQuery(ByVirtual, "ali")
	require.NoError(t, err)
	assert.False(t, virt.Matches(c.Author))
	assert.True(t, virt.Matches(VirtualAuthor("alien")))

	anyQ, err := NewAuthorQuery(ByAny, "^ally$")
	require.NoError(t, err)
	assert.True(t, anyQ.Matches(c.Author))
	assert.True(t, anyQ.Matches(VirtualAuthor("ally")))
}

func TestPostedQueryRejectsVirtual(t *testing.T) {
	_, err := NewPostedQuery(ByVirtual, "x")
	assert.Error(t, err)
	_, err = NewPostedQuery(ByUserName, "(")
	assert.Error(t, err)

	q, err := NewPostedQuery(ByAny, "bo")
	require.NoError(t, err)
	assert.True(t, q.Matches(sampleContent().Posted))
}

func TestContentQuerySetsAndCounts(t *testing.T) {
	c := sampleContent()
	two, _ := ParseRange("2..")
	four, _ := ParseRange("4..")

	assert.True(t, ContentQuery{Liked: []UserID{1, 3}}.Matches(c))
	assert.False(t, ContentQuery{Liked: []UserID{1, 9}}.Matches(c))
	assert.True(t, ContentQuery{LikedNum: &two}.Matches(c))
	assert.False(t, ContentQuery{LikedNum: &four}.Matches(c))
	assert.False(t, ContentQuery{PinnedNum: &two}.Matches(c))

	re, err := CompilePattern("wor")
	require.NoError(t, err)
	assert.True(t, ContentQuery{Content: re, Pinned: []UserID{2}}.Matches(c))
}

func TestUserQuery(t *testing.T) {
	a, b := NewContentID(), NewContentID()
	u := NewUser(1)
	u.Bookmark = []ContentID{a, b}
	u.Posted = []ContentID{a}

	exactlyOne := Exactly(1)
	assert.True(t, UserQuery{Bookmark: []ContentID{b}, PostedNum: &exactlyOne}.Matches(u))
	assert.False(t, UserQuery{Posted: []ContentID{b}}.Matches(u))
	assert.False(t, UserQuery{BookmarkNum: &exactlyOne}.Matches(u))
}

func TestParseUserID(t *testing.T) {
	for _, in := range []string{"123", "<@123>", "<@!123>", " 123 "} {
		id, err := ParseUserID(in)
		require.NoError(t, err, in)
		assert.Equal(t, UserID(123), id)
	}
	_, err := ParseUserID("abc")
	assert.Error(t, err)
}
