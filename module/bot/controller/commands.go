package controller

import (
	"context"

	"PBot/module/bot/model"
	"PBot/module/bot/presenter"
	"PBot/module/bot/usecase"
	"PBot/service/events"
	"PBot/tools/errs"
)

// command 解析后的一条命令；op 同时是串行锁的 key
type command interface {
	op() string
	authorize(ctx context.Context, c *Controller, m Message) error
	run(ctx context.Context, c *Controller, m Message) (result, error)
}

type result struct {
	views []presenter.View
	event *events.Event
}

func single(v presenter.View, e *events.Event) result {
	return result{views: []presenter.View{v}, event: e}
}

type public struct{}

func (public) authorize(context.Context, *Controller, Message) error { return nil }

func self(id *model.UserID, m Message) model.UserID {
	if id != nil {
		return *id
	}
	return m.AuthorID
}

// resolveAuthor 真实用户署名需要向平台查询名字与昵称
func (c *Controller) resolveAuthor(ctx context.Context, m Message, a authorArg) (model.Author, error) {
	if a.virtual != nil {
		return model.VirtualAuthor(*a.virtual), nil
	}
	if c.resolver == nil {
		return model.Author{}, errs.ErrNotFound.WrapMsg("cannot resolve user", "id", *a.user)
	}
	p, err := c.resolver.Resolve(ctx, m.GuildID, *a.user)
	if err != nil {
		return model.Author{}, errs.ErrNotFound.WrapMsg("cannot resolve user", "id", *a.user)
	}
	return model.UserAuthor(*a.user, p.Name, p.Nick), nil
}

// ---- user ----

type userRegister struct{ public }

func (*userRegister) op() string { return "user.register" }

func (*userRegister) run(ctx context.Context, c *Controller, m Message) (result, error) {
	out, err := c.uc.RegisterUser.Execute(ctx, usecase.RegisterUserInput{UserID: m.AuthorID})
	if err != nil {
		return result{}, err
	}
	e := c.event(events.UserRegistered, m).WithUser(m.AuthorID)
	return single(presenter.User("Registered", out.User), &e), nil
}

type userGet struct {
	public
	id *model.UserID
}

func (*userGet) op() string { return "user.get" }

func (cmd *userGet) run(ctx context.Context, c *Controller, m Message) (result, error) {
	out, err := c.uc.GetUser.Execute(ctx, usecase.GetUserInput{UserID: self(cmd.id, m)})
	if err != nil {
		return result{}, err
	}
	return single(presenter.User("User", out.User), nil), nil
}

type userGets struct {
	public
	page  uint32
	query model.UserQuery
}

func (*userGets) op() string { return "user.gets" }

func (cmd *userGets) run(ctx context.Context, c *Controller, _ Message) (result, error) {
	out, err := c.uc.GetUsers.Execute(ctx, usecase.GetUsersInput{Page: cmd.page, Query: cmd.query})
	if err != nil {
		return result{}, err
	}
	return result{views: presenter.Users(out.Users)}, nil
}

type userEdit struct {
	id       model.UserID
	mutation model.UserMutation
}

func (*userEdit) op() string { return "user.edit" }

func (*userEdit) authorize(ctx context.Context, c *Controller, m Message) error {
	return c.requireAdmin(ctx, m)
}

func (cmd *userEdit) run(ctx context.Context, c *Controller, m Message) (result, error) {
	out, err := c.uc.EditUser.Execute(ctx, usecase.EditUserInput{UserID: cmd.id, Mutation: cmd.mutation})
	if err != nil {
		return result{}, err
	}
	e := c.event(events.UserEdited, m).WithUser(cmd.id)
	return single(presenter.User("Edited", out.User), &e), nil
}

type userUnregister struct {
	id *model.UserID
}

func (*userUnregister) op() string { return "user.unregister" }

// 注销自己不需要权限，注销别人需要 admin
func (cmd *userUnregister) authorize(ctx context.Context, c *Controller, m Message) error {
	if self(cmd.id, m) == m.AuthorID {
		return nil
	}
	return c.requireAdmin(ctx, m)
}

func (cmd *userUnregister) run(ctx context.Context, c *Controller, m Message) (result, error) {
	id := self(cmd.id, m)
	out, err := c.uc.UnregisterUser.Execute(ctx, usecase.UnregisterUserInput{UserID: id})
	if err != nil {
		return result{}, err
	}
	e := c.event(events.UserUnregistered, m).WithUser(id)
	return single(presenter.User("Unregistered", out.User), &e), nil
}

type userBookmark struct {
	public
	content model.ContentID
	add     bool
}

func (cmd *userBookmark) op() string {
	if cmd.add {
		return "user.bookmark"
	}
	return "user.unbookmark"
}

func (cmd *userBookmark) run(ctx context.Context, c *Controller, m Message) (result, error) {
	in := usecase.BookmarkInput{UserID: m.AuthorID, ContentID: cmd.content}
	var (
		out  usecase.BookmarkOutput
		err  error
		kind events.Kind
	)
	if cmd.add {
		out, err = c.uc.BookmarkContent.Execute(ctx, in)
		kind = events.UserBookmarked
	} else {
		out, err = c.uc.UnbookmarkContent.Execute(ctx, in)
		kind = events.UserUnbookmarked
	}
	if err != nil {
		return result{}, err
	}
	e := c.event(kind, m).WithUser(m.AuthorID).WithContent(cmd.content)
	return single(presenter.Bookmark(out, cmd.add), &e), nil
}

type userBookmarkShow struct {
	public
	page uint32
	id   *model.UserID
}

func (*userBookmarkShow) op() string { return "user.bookmark.show" }

func (cmd *userBookmarkShow) run(ctx context.Context, c *Controller, m Message) (result, error) {
	out, err := c.uc.GetBookmarks.Execute(ctx, usecase.GetBookmarksInput{UserID: self(cmd.id, m), Page: cmd.page})
	if err != nil {
		return result{}, err
	}
	return single(presenter.ContentList("Bookmarks of "+out.UserID.Mention(), out.Bookmarks), nil), nil
}

// ---- content ----

type contentPost struct {
	public
	author authorArg
	text   string
}

func (*contentPost) op() string { return "content.post" }

func (cmd *contentPost) run(ctx context.Context, c *Controller, m Message) (result, error) {
	author, err := c.resolveAuthor(ctx, m, cmd.author)
	if err != nil {
		return result{}, err
	}
	out, err := c.uc.PostContent.Execute(ctx, usecase.PostContentInput{
		Author:  author,
		Posted:  m.posted(),
		Content: cmd.text,
	})
	if err != nil {
		return result{}, err
	}
	e := c.event(events.ContentPosted, m).WithContent(out.Content.ID)
	return single(presenter.Content("Posted", out.Content), &e), nil
}

type contentGet struct {
	public
	id model.ContentID
}

func (*contentGet) op() string { return "content.get" }

func (cmd *contentGet) run(ctx context.Context, c *Controller, _ Message) (result, error) {
	out, err := c.uc.GetContent.Execute(ctx, usecase.GetContentInput{ContentID: cmd.id})
	if err != nil {
		return result{}, err
	}
	return single(presenter.Content("Content", out.Content), nil), nil
}

type contentGets struct {
	public
	page  uint32
	query model.ContentQuery
}

func (*contentGets) op() string { return "content.gets" }

func (cmd *contentGets) run(ctx context.Context, c *Controller, _ Message) (result, error) {
	out, err := c.uc.GetContents.Execute(ctx, usecase.GetContentsInput{Page: cmd.page, Query: cmd.query})
	if err != nil {
		return result{}, err
	}
	return result{views: presenter.Contents(out.Contents)}, nil
}

type contentEdit struct {
	id     model.ContentID
	author *authorArg
	text   *model.ContentTextMutation
}

func (*contentEdit) op() string { return "content.edit" }

func (cmd *contentEdit) authorize(ctx context.Context, c *Controller, m Message) error {
	return c.requireContentEditor(ctx, m, cmd.id)
}

func (cmd *contentEdit) run(ctx context.Context, c *Controller, m Message) (result, error) {
	in := usecase.EditContentInput{ContentID: cmd.id, Content: cmd.text}
	if cmd.author != nil {
		author, err := c.resolveAuthor(ctx, m, *cmd.author)
		if err != nil {
			return result{}, err
		}
		in.Author = &author
	}
	out, err := c.uc.EditContent.Execute(ctx, in)
	if err != nil {
		return result{}, err
	}
	e := c.event(events.ContentEdited, m).WithContent(cmd.id)
	return single(presenter.Content("Edited", out.Content), &e), nil
}

type contentWithdraw struct {
	id model.ContentID
}

func (*contentWithdraw) op() string { return "content.withdraw" }

func (cmd *contentWithdraw) authorize(ctx context.Context, c *Controller, m Message) error {
	return c.requireContentEditor(ctx, m, cmd.id)
}

func (cmd *contentWithdraw) run(ctx context.Context, c *Controller, m Message) (result, error) {
	out, err := c.uc.WithdrawContent.Execute(ctx, usecase.WithdrawContentInput{ContentID: cmd.id})
	if err != nil {
		return result{}, err
	}
	e := c.event(events.ContentWithdrawn, m).WithContent(cmd.id)
	return single(presenter.Content("Withdrawn", out.Content), &e), nil
}

type contentToggle struct {
	public
	id    model.ContentID
	field model.ContentField
	add   bool
}

func (cmd *contentToggle) op() string {
	switch {
	case cmd.field == model.ContentFieldLiked && cmd.add:
		return "content.like"
	case cmd.field == model.ContentFieldLiked:
		return "content.unlike"
	case cmd.add:
		return "content.pin"
	default:
		return "content.unpin"
	}
}

func (cmd *contentToggle) interactor(c *Controller) (*usecase.ToggleMember, events.Kind) {
	switch {
	case cmd.field == model.ContentFieldLiked && cmd.add:
		return c.uc.LikeContent, events.ContentLiked
	case cmd.field == model.ContentFieldLiked:
		return c.uc.UnlikeContent, events.ContentUnliked
	case cmd.add:
		return c.uc.PinContent, events.ContentPinned
	default:
		return c.uc.UnpinContent, events.ContentUnpinned
	}
}

func (cmd *contentToggle) run(ctx context.Context, c *Controller, m Message) (result, error) {
	uc, kind := cmd.interactor(c)
	out, err := uc.Execute(ctx, usecase.ToggleMemberInput{ContentID: cmd.id, UserID: m.AuthorID})
	if err != nil {
		return result{}, err
	}
	e := c.event(kind, m).WithUser(m.AuthorID).WithContent(cmd.id)
	return single(presenter.Toggle(out), &e), nil
}

type contentMembers struct {
	public
	id    model.ContentID
	page  uint32
	field model.ContentField
}

func (cmd *contentMembers) op() string {
	if cmd.field == model.ContentFieldLiked {
		return "content.like.show"
	}
	return "content.pin.show"
}

func (cmd *contentMembers) run(ctx context.Context, c *Controller, _ Message) (result, error) {
	uc, title := c.uc.GetLikes, "Liked by"
	if cmd.field == model.ContentFieldPinned {
		uc, title = c.uc.GetPins, "Pinned by"
	}
	out, err := uc.Execute(ctx, usecase.GetMembersInput{ContentID: cmd.id, Page: cmd.page})
	if err != nil {
		return result{}, err
	}
	return single(presenter.UserList(title, out.Users), nil), nil
}
