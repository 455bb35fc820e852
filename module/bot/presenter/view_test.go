package presenter

import (
	"testing"
	"time"

	"PBot/module/bot/model"
	"PBot/module/bot/usecase"
	"PBot/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(v View, name string) string {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestContentView(t *testing.T) {
	nick := "Ali"
	c := model.NewContent(model.UserAuthor(1, "alice", &nick), model.Posted{ID: 2, Name: "bob"}, "hello",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c.Liked = []model.UserID{3, 4}

	v := Content("Posted", c)
	assert.Equal(t, "Posted", v.Title)
	assert.Equal(t, "hello", v.Description)
	assert.Equal(t, "Ali (<@1>)", field(v, "Author"))
	assert.Equal(t, "bob (<@2>)", field(v, "Posted by"))
	assert.Equal(t, "2", field(v, "Likes"))
	assert.Equal(t, "never", field(v, "Edited"))

	c.Author = model.VirtualAuthor("ghost")
	c.Edited = []time.Time{time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)}
	v = Content("Edited", c)
	assert.Equal(t, "ghost (virtual)", field(v, "Author"))
	assert.Equal(t, "1 time(s), last 2024-02-02T00:00:00Z", field(v, "Edited"))
}

func TestPagedViews(t *testing.T) {
	p := usecase.Page[model.User]{
		Items: []usecase.Indexed[model.User]{{Index: 5, Item: model.NewUser(9)}},
		Page:  2,
		Pages: 2,
		Total: 6,
	}
	views := Users(p)
	require.Len(t, views, 2)
	assert.Equal(t, "page 2/2, 6 total", views[0].Description)
	assert.Equal(t, "#5", views[1].Title)

	ids := usecase.Page[model.UserID]{Page: 1, Items: []usecase.Indexed[model.UserID]{}}
	v := UserList("Likes", ids)
	assert.Equal(t, "(empty)", v.Description)
	assert.Equal(t, "page 1/1, 0 total", field(v, "Page"))

	ids.Items = append(ids.Items, usecase.Indexed[model.UserID]{Index: 0, Item: 7})
	assert.Equal(t, "0. <@7>", UserList("Likes", ids).Description)
}

func TestToggleView(t *testing.T) {
	v := Toggle(usecase.ToggleMemberOutput{Field: model.ContentFieldPinned, Added: false, UserID: 1})
	assert.Equal(t, "Unpinned", v.Title)
	v = Toggle(usecase.ToggleMemberOutput{Field: model.ContentFieldLiked, Added: true, UserID: 1})
	assert.Equal(t, "Liked", v.Title)
}

func TestErrorView(t *testing.T) {
	v := Error(errs.ErrPermissionDenied)
	assert.Equal(t, "Not permitted", v.Title)
	assert.Equal(t, "not permitted", v.Description)
	assert.Equal(t, ColorError, v.Color)

	v = Error(errs.ErrRule.WithDetail("content is already liked"))
	assert.Equal(t, "content is already liked", v.Description)
	assert.Equal(t, ColorWarn, v.Color)
}
