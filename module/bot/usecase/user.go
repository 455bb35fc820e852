package usecase

import (
	"context"

	"PBot/module/bot/model"
	"PBot/module/bot/repository"
)

type RegisterUserInput struct {
	UserID model.UserID
}

type RegisterUserOutput struct {
	User model.User
}

// RegisterUser 注册；同一 id 第二次注册违反规则
type RegisterUser struct {
	users repository.UserRepository
}

func (uc *RegisterUser) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	u := model.NewUser(in.UserID)
	ok, err := uc.users.Insert(ctx, u)
	if err != nil {
		return RegisterUserOutput{}, err
	}
	if !ok {
		return RegisterUserOutput{}, ErrAlreadyRegistered
	}
	return RegisterUserOutput{User: u}, nil
}

type GetUserInput struct {
	UserID model.UserID
}

type GetUserOutput struct {
	User model.User
}

type GetUser struct {
	users repository.UserRepository
}

func (uc *GetUser) Execute(ctx context.Context, in GetUserInput) (GetUserOutput, error) {
	u, err := uc.users.Find(ctx, in.UserID)
	if err != nil {
		return GetUserOutput{}, userNotFound(err)
	}
	return GetUserOutput{User: u}, nil
}

type GetUsersInput struct {
	Page  uint32
	Query model.UserQuery
}

type GetUsersOutput struct {
	Users Page[model.User]
}

// GetUsers 按条件分页列出用户，每页 EntityPageSize 条
type GetUsers struct {
	users repository.UserRepository
}

func (uc *GetUsers) Execute(ctx context.Context, in GetUsersInput) (GetUsersOutput, error) {
	if in.Page == 0 {
		return GetUsersOutput{}, ErrPageZero
	}
	all, err := uc.users.Finds(ctx, in.Query)
	if err != nil {
		return GetUsersOutput{}, err
	}
	p, err := paginate(all, in.Page, EntityPageSize)
	if err != nil {
		return GetUsersOutput{}, err
	}
	return GetUsersOutput{Users: p}, nil
}

type EditUserInput struct {
	UserID   model.UserID
	Mutation model.UserMutation
}

type EditUserOutput struct {
	User model.User
}

// EditUser 部分更新；空 mutation 直接返回原实体
type EditUser struct {
	users repository.UserRepository
}

func (uc *EditUser) Execute(ctx context.Context, in EditUserInput) (EditUserOutput, error) {
	var (
		u   model.User
		err error
	)
	if in.Mutation.IsEmpty() {
		u, err = uc.users.Find(ctx, in.UserID)
	} else {
		u, err = uc.users.Update(ctx, in.UserID, in.Mutation)
	}
	if err != nil {
		return EditUserOutput{}, userNotFound(err)
	}
	return EditUserOutput{User: u}, nil
}

type UnregisterUserInput struct {
	UserID model.UserID
}

type UnregisterUserOutput struct {
	User model.User
}

type UnregisterUser struct {
	users repository.UserRepository
}

func (uc *UnregisterUser) Execute(ctx context.Context, in UnregisterUserInput) (UnregisterUserOutput, error) {
	u, err := uc.users.Delete(ctx, in.UserID)
	if err != nil {
		return UnregisterUserOutput{}, userNotFound(err)
	}
	return UnregisterUserOutput{User: u}, nil
}

type BookmarkInput struct {
	UserID    model.UserID
	ContentID model.ContentID
}

type BookmarkOutput struct {
	UserID    model.UserID
	ContentID model.ContentID
}

// BookmarkContent 收藏；要求用户已注册且投稿存在
type BookmarkContent struct {
	users    repository.UserRepository
	contents repository.ContentRepository
}

func (uc *BookmarkContent) Execute(ctx context.Context, in BookmarkInput) (BookmarkOutput, error) {
	ok, err := uc.users.IsExists(ctx, in.UserID)
	if err != nil {
		return BookmarkOutput{}, err
	}
	if !ok {
		return BookmarkOutput{}, ErrUserNotFound
	}
	if ok, err = uc.contents.IsExists(ctx, in.ContentID); err != nil {
		return BookmarkOutput{}, err
	}
	if !ok {
		return BookmarkOutput{}, ErrContentNotFound
	}
	inserted, err := uc.users.InsertMember(ctx, in.UserID, model.UserFieldBookmark, in.ContentID)
	if err != nil {
		return BookmarkOutput{}, userNotFound(err)
	}
	if !inserted {
		return BookmarkOutput{}, ErrAlreadyBookmarked
	}
	return BookmarkOutput(in), nil
}

// UnbookmarkContent 取消收藏；投稿已被撤回时也允许
type UnbookmarkContent struct {
	users repository.UserRepository
}

func (uc *UnbookmarkContent) Execute(ctx context.Context, in BookmarkInput) (BookmarkOutput, error) {
	deleted, err := uc.users.DeleteMember(ctx, in.UserID, model.UserFieldBookmark, in.ContentID)
	if err != nil {
		return BookmarkOutput{}, userNotFound(err)
	}
	if !deleted {
		return BookmarkOutput{}, ErrNotBookmarked
	}
	return BookmarkOutput(in), nil
}

type GetBookmarksInput struct {
	UserID model.UserID
	Page   uint32
}

type GetBookmarksOutput struct {
	UserID    model.UserID
	Bookmarks Page[model.ContentID]
}

// GetBookmarks 分页列出收藏，每页 MemberPageSize 条
type GetBookmarks struct {
	users repository.UserRepository
}

func (uc *GetBookmarks) Execute(ctx context.Context, in GetBookmarksInput) (GetBookmarksOutput, error) {
	if in.Page == 0 {
		return GetBookmarksOutput{}, ErrPageZero
	}
	u, err := uc.users.Find(ctx, in.UserID)
	if err != nil {
		return GetBookmarksOutput{}, userNotFound(err)
	}
	p, err := paginate(u.Bookmark, in.Page, MemberPageSize)
	if err != nil {
		return GetBookmarksOutput{}, err
	}
	return GetBookmarksOutput{UserID: in.UserID, Bookmarks: p}, nil
}
