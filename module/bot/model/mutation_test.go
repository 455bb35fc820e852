package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMutationPartial(t *testing.T) {
	u := NewUser(1)
	u.SubAdmin = true

	yes := true
	UserMutation{Admin: &yes}.Apply(&u)
	assert.True(t, u.Admin)
	assert.True(t, u.SubAdmin)

	before := u.Clone()
	m := UserMutation{}
	assert.True(t, m.IsEmpty())
	m.Apply(&u)
	assert.Equal(t, before, u)
}

func TestSedReplacesFirstMatch(t *testing.T) {
	m, err := SedText(`(\w+)@`, "<$1>")
	require.NoError(t, err)
	assert.Equal(t, "mail <a> and b@", m.Apply("mail a@ and b@"))
	assert.Equal(t, "nothing", m.Apply("nothing"))

	_, err = SedText("(", "")
	assert.Error(t, err)
}

func TestContentMutationAppendsEdited(t *testing.T) {
	c := sampleContent()
	t1 := time.Unix(200, 0)
	ContentMutation{Edited: t1}.Apply(&c)
	assert.Equal(t, "hello world", c.Content)
	assert.Equal(t, []time.Time{t1}, c.Edited)

	text := CompleteText("bye")
	author := VirtualAuthor("ghost")
	t2 := time.Unix(300, 0)
	ContentMutation{Author: &author, Content: &text, Edited: t2}.Apply(&c)
	assert.Equal(t, "bye", c.Content)
	assert.Equal(t, author, c.Author)
	assert.Equal(t, []time.Time{t1, t2}, c.Edited)
}

func TestSetHelpers(t *testing.T) {
	s, ok := InsertMember([]UserID{1}, 2)
	assert.True(t, ok)
	s, ok = InsertMember(s, 2)
	assert.False(t, ok)
	assert.Equal(t, []UserID{1, 2}, s)

	s, ok = DeleteMember(s, 1)
	assert.True(t, ok)
	_, ok = DeleteMember(s, 1)
	assert.False(t, ok)
	assert.Equal(t, []UserID{2}, s)
}
