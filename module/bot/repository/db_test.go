package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"PBot/data/database/mgo/mongoutil"
	"PBot/module/bot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// 两个后端跑同一组用例；Mongo 需要副本集（事务），通过 PBOT_TEST_MONGO_URI 打开
func stores(t *testing.T) map[string]func(t *testing.T) *Store {
	out := map[string]func(t *testing.T) *Store{
		"memory": func(t *testing.T) *Store { return NewMemStore() },
	}
	uri := os.Getenv("PBOT_TEST_MONGO_URI")
	if uri == "" {
		return out
	}
	out["mongodb"] = func(t *testing.T) *Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
			Uri:      uri,
			Database: "pbot_test_" + model.NewContentID().String()[:8],
		})
		require.NoError(t, err)
		require.NoError(t, EnsureIndexes(ctx, cli.GetDB()))
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = cli.GetDB().Drop(ctx)
			_ = cli.Close(ctx)
		})
		return NewMongoStore(cli)
	}
	return out
}

func eachStore(t *testing.T, fn func(t *testing.T, s *Store)) {
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, mk(t))
		})
	}
}

func newContent(poster model.UserID, text string) model.Content {
	return model.NewContent(
		model.UserAuthor(poster, "alice", nil),
		model.Posted{ID: poster, Name: "alice"},
		text,
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	)
}

func TestUserInsertFindDelete(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		ok, err := s.Users.Insert(ctx, model.NewUser(1))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Users.Insert(ctx, model.NewUser(1))
		require.NoError(t, err)
		assert.False(t, ok, "duplicate insert must report false")

		exists, err := s.Users.IsExists(ctx, 1)
		require.NoError(t, err)
		assert.True(t, exists)

		u, err := s.Users.Find(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.UserID(1), u.ID)
		assert.Empty(t, u.Posted)

		_, err = s.Users.Find(ctx, 2)
		assert.ErrorIs(t, err, ErrNotFound)

		deleted, err := s.Users.Delete(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.UserID(1), deleted.ID)

		_, err = s.Users.Delete(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserUpdatePartial(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.Users.Insert(ctx, model.NewUser(7))
		require.NoError(t, err)

		yes := true
		u, err := s.Users.Update(ctx, 7, model.UserMutation{Admin: &yes})
		require.NoError(t, err)
		assert.True(t, u.Admin)
		assert.False(t, u.SubAdmin)

		u, err = s.Users.Update(ctx, 7, model.UserMutation{SubAdmin: &yes})
		require.NoError(t, err)
		assert.True(t, u.Admin, "absent field must be left untouched")
		assert.True(t, u.SubAdmin)

		_, err = s.Users.Update(ctx, 8, model.UserMutation{Admin: &yes})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserMembership(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		_, err := s.Users.Insert(ctx, model.NewUser(1))
		require.NoError(t, err)
		cid := model.NewContentID()

		ok, err := s.Users.InsertMember(ctx, 1, model.UserFieldBookmark, cid)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Users.InsertMember(ctx, 1, model.UserFieldBookmark, cid)
		require.NoError(t, err)
		assert.False(t, ok, "set semantics")

		ok, err = s.Users.IsMember(ctx, 1, model.UserFieldBookmark, cid)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Users.IsMember(ctx, 1, model.UserFieldPosted, cid)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.Users.DeleteMember(ctx, 1, model.UserFieldBookmark, cid)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Users.DeleteMember(ctx, 1, model.UserFieldBookmark, cid)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Users.InsertMember(ctx, 99, model.UserFieldBookmark, cid)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Users.IsMember(ctx, 99, model.UserFieldBookmark, cid)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserFinds(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		c1, c2 := model.NewContentID(), model.NewContentID()
		for _, id := range []model.UserID{1, 2, 3} {
			_, err := s.Users.Insert(ctx, model.NewUser(id))
			require.NoError(t, err)
		}
		_, _ = s.Users.InsertMember(ctx, 1, model.UserFieldBookmark, c1)
		_, _ = s.Users.InsertMember(ctx, 1, model.UserFieldBookmark, c2)
		_, _ = s.Users.InsertMember(ctx, 2, model.UserFieldBookmark, c1)

		all, err := s.Users.Finds(ctx, model.UserQuery{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		got, err := s.Users.Finds(ctx, model.UserQuery{Bookmark: []model.ContentID{c1}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []model.UserID{1, 2}, userIDs(got))

		r, err := model.ParseRange("2..")
		require.NoError(t, err)
		got, err = s.Users.Finds(ctx, model.UserQuery{BookmarkNum: &r})
		require.NoError(t, err)
		assert.Equal(t, []model.UserID{1}, userIDs(got))

		zero := model.Exactly(0)
		got, err = s.Users.Finds(ctx, model.UserQuery{BookmarkNum: &zero})
		require.NoError(t, err)
		assert.Equal(t, []model.UserID{3}, userIDs(got))
	})
}

func TestContentLifecycle(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		c := newContent(1, "hello world")

		ok, err := s.Contents.Insert(ctx, c)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Contents.Insert(ctx, c)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Contents.Find(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello world", got.Content)
		assert.Equal(t, model.UserID(1), got.Author.ID)
		assert.True(t, got.Created.Equal(c.Created))

		sed, err := model.SedText("world", "there")
		require.NoError(t, err)
		edited := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		virtual := model.VirtualAuthor("anon")
		got, err = s.Contents.Update(ctx, c.ID, model.ContentMutation{Author: &virtual, Content: &sed, Edited: edited})
		require.NoError(t, err)
		assert.Equal(t, "hello there", got.Content)
		assert.Equal(t, model.AuthorVirtual, got.Author.Kind)
		require.Len(t, got.Edited, 1)

		again, err := s.Contents.Find(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello there", again.Content)
		require.Len(t, again.Edited, 1)
		assert.True(t, again.Edited[0].Equal(edited))

		_, err = s.Contents.Delete(ctx, c.ID)
		require.NoError(t, err)
		_, err = s.Contents.Find(ctx, c.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestContentMembershipAndFinds(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		a := newContent(1, "first post")
		b := newContent(2, "second post")
		v := model.NewContent(model.VirtualAuthor("ghost"), model.Posted{ID: 3, Name: "carol"}, "boo", time.Now().UTC())
		for _, c := range []model.Content{a, b, v} {
			_, err := s.Contents.Insert(ctx, c)
			require.NoError(t, err)
		}

		ok, err := s.Contents.InsertMember(ctx, a.ID, model.ContentFieldLiked, 10)
		require.NoError(t, err)
		assert.True(t, ok)
		_, _ = s.Contents.InsertMember(ctx, a.ID, model.ContentFieldLiked, 11)
		_, _ = s.Contents.InsertMember(ctx, b.ID, model.ContentFieldLiked, 10)
		_, _ = s.Contents.InsertMember(ctx, b.ID, model.ContentFieldPinned, 10)

		ok, err = s.Contents.InsertMember(ctx, a.ID, model.ContentFieldLiked, 10)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Contents.Finds(ctx, model.ContentQuery{Liked: []model.UserID{10}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []model.ContentID{a.ID, b.ID}, contentIDs(got))

		r, _ := model.ParseRange("2..=2")
		got, err = s.Contents.Finds(ctx, model.ContentQuery{LikedNum: &r})
		require.NoError(t, err)
		assert.Equal(t, []model.ContentID{a.ID}, contentIDs(got))

		re, _ := model.CompilePattern("^sec")
		got, err = s.Contents.Finds(ctx, model.ContentQuery{Content: re})
		require.NoError(t, err)
		assert.Equal(t, []model.ContentID{b.ID}, contentIDs(got))

		vq, _ := model.NewAuthorQuery(model.ByVirtual, "gh")
		got, err = s.Contents.Finds(ctx, model.ContentQuery{Author: &vq})
		require.NoError(t, err)
		assert.Equal(t, []model.ContentID{v.ID}, contentIDs(got))

		pq := model.PostedQuery{Kind: model.ByUserID, ID: 2}
		got, err = s.Contents.Finds(ctx, model.ContentQuery{Posted: &pq})
		require.NoError(t, err)
		assert.Equal(t, []model.ContentID{b.ID}, contentIDs(got))

		ok, err = s.Contents.DeleteMember(ctx, b.ID, model.ContentFieldPinned, 10)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.Contents.IsMember(ctx, b.ID, model.ContentFieldPinned, 10)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Contents.DeleteMember(ctx, model.NewContentID(), model.ContentFieldPinned, 10)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemStoreReturnsCopies(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	c := newContent(1, "x")
	_, err := s.Contents.Insert(ctx, c)
	require.NoError(t, err)

	got, err := s.Contents.Find(ctx, c.ID)
	require.NoError(t, err)
	got.Liked = append(got.Liked, 5)

	again, err := s.Contents.Find(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Liked)
}

func TestUnknownFieldRejected(t *testing.T) {
	s := NewMemStore()
	_, err := s.Users.InsertMember(context.Background(), 1, model.UserField("friends"), model.NewContentID())
	assert.Error(t, err)
}

func TestRangeFilter(t *testing.T) {
	assert.Nil(t, rangeFilter(nil))

	all, _ := model.ParseRange("..")
	assert.Nil(t, rangeFilter(&all))

	r, _ := model.ParseRange("2..5")
	assert.Equal(t, bson.M{"$gte": uint32(2), "$lt": uint32(5)}, rangeFilter(&r))

	r, _ = model.ParseRange("..=3")
	assert.Equal(t, bson.M{"$lte": uint32(3)}, rangeFilter(&r))
}

func TestContentFilterPushdown(t *testing.T) {
	vq, _ := model.NewAuthorQuery(model.ByVirtual, "x")
	r := model.Exactly(1)
	f := contentFilter(model.ContentQuery{
		Author:    &vq,
		Liked:     []model.UserID{4},
		PinnedNum: &r,
	})
	assert.Equal(t, authorKindVirtual, f[FieldAuthorKind])
	assert.Equal(t, bson.M{"$all": []int64{4}}, f[FieldLiked])
	assert.Equal(t, bson.M{"$gte": uint32(1), "$lte": uint32(1)}, f[FieldPinned+sizeSuffix])
	_, hasPinned := f[FieldPinned]
	assert.False(t, hasPinned, "empty subset filter must not be pushed down")
}

func TestDocRoundTripKeepsVirtualAuthor(t *testing.T) {
	nick := "ali"
	c := model.NewContent(model.UserAuthor(1, "alice", &nick), model.Posted{ID: 1, Name: "alice", Nick: &nick}, "t", time.Now().UTC())
	back, err := toContentDoc(c).toModel()
	require.NoError(t, err)
	assert.Equal(t, c.ID, back.ID)
	assert.Equal(t, "ali", *back.Author.Nick)

	c.Author = model.VirtualAuthor("anon")
	doc := toContentDoc(c)
	assert.Equal(t, authorKindVirtual, doc.Author.Kind)
	assert.Zero(t, doc.Author.ID)
}

func userIDs(us []model.User) []model.UserID {
	out := make([]model.UserID, 0, len(us))
	for _, u := range us {
		out = append(out, u.ID)
	}
	return out
}

func contentIDs(cs []model.Content) []model.ContentID {
	out := make([]model.ContentID, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}
