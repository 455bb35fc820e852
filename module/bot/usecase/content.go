package usecase

import (
	"context"
	"errors"
	"time"

	"PBot/logger"
	"PBot/module/bot/model"
	"PBot/module/bot/repository"

	"go.uber.org/zap"
)

type PostContentInput struct {
	Author  model.Author
	Posted  model.Posted
	Content string
}

type PostContentOutput struct {
	Content model.Content
}

// PostContent 投稿；发布者必须已注册，成功后写入其 posted 集合
type PostContent struct {
	users    repository.UserRepository
	contents repository.ContentRepository
	now      func() time.Time
}

func (uc *PostContent) Execute(ctx context.Context, in PostContentInput) (PostContentOutput, error) {
	ok, err := uc.users.IsExists(ctx, in.Posted.ID)
	if err != nil {
		return PostContentOutput{}, err
	}
	if !ok {
		return PostContentOutput{}, ErrUserNotFound
	}

	c := model.NewContent(in.Author, in.Posted, in.Content, uc.now())
	inserted, err := uc.contents.Insert(ctx, c)
	if err != nil {
		return PostContentOutput{}, err
	}
	if !inserted {
		return PostContentOutput{}, ErrContentIDCollision
	}
	if _, err := uc.users.InsertMember(ctx, in.Posted.ID, model.UserFieldPosted, c.ID); err != nil {
		// 发布者在检查之后被注销，撤掉刚写入的投稿
		if _, derr := uc.contents.Delete(ctx, c.ID); derr != nil {
			logger.Error("rollback orphan content", zap.String("content", c.ID.String()),
				zap.Uint64("poster", uint64(in.Posted.ID)), zap.Error(derr))
		}
		return PostContentOutput{}, userNotFound(err)
	}
	return PostContentOutput{Content: c}, nil
}

type GetContentInput struct {
	ContentID model.ContentID
}

type GetContentOutput struct {
	Content model.Content
}

type GetContent struct {
	contents repository.ContentRepository
}

func (uc *GetContent) Execute(ctx context.Context, in GetContentInput) (GetContentOutput, error) {
	c, err := uc.contents.Find(ctx, in.ContentID)
	if err != nil {
		return GetContentOutput{}, contentNotFound(err)
	}
	return GetContentOutput{Content: c}, nil
}

type GetContentsInput struct {
	Page  uint32
	Query model.ContentQuery
}

type GetContentsOutput struct {
	Contents Page[model.Content]
}

// GetContents 按条件分页列出投稿，每页 EntityPageSize 条
type GetContents struct {
	contents repository.ContentRepository
}

func (uc *GetContents) Execute(ctx context.Context, in GetContentsInput) (GetContentsOutput, error) {
	if in.Page == 0 {
		return GetContentsOutput{}, ErrPageZero
	}
	all, err := uc.contents.Finds(ctx, in.Query)
	if err != nil {
		return GetContentsOutput{}, err
	}
	p, err := paginate(all, in.Page, EntityPageSize)
	if err != nil {
		return GetContentsOutput{}, err
	}
	return GetContentsOutput{Contents: p}, nil
}

type EditContentInput struct {
	ContentID model.ContentID
	Author    *model.Author
	Content   *model.ContentTextMutation
}

type EditContentOutput struct {
	Content model.Content
}

// EditContent 修改署名或正文，编辑时间总会追加到历史
type EditContent struct {
	contents repository.ContentRepository
	now      func() time.Time
}

func (uc *EditContent) Execute(ctx context.Context, in EditContentInput) (EditContentOutput, error) {
	c, err := uc.contents.Update(ctx, in.ContentID, model.ContentMutation{
		Author:  in.Author,
		Content: in.Content,
		Edited:  uc.now(),
	})
	if err != nil {
		return EditContentOutput{}, contentNotFound(err)
	}
	return EditContentOutput{Content: c}, nil
}

type WithdrawContentInput struct {
	ContentID model.ContentID
}

type WithdrawContentOutput struct {
	Content model.Content
}

// WithdrawContent 撤回投稿，同时从发布者的 posted 中移除；发布者已注销时忽略
type WithdrawContent struct {
	users    repository.UserRepository
	contents repository.ContentRepository
}

func (uc *WithdrawContent) Execute(ctx context.Context, in WithdrawContentInput) (WithdrawContentOutput, error) {
	c, err := uc.contents.Delete(ctx, in.ContentID)
	if err != nil {
		return WithdrawContentOutput{}, contentNotFound(err)
	}
	if _, err := uc.users.DeleteMember(ctx, c.Posted.ID, model.UserFieldPosted, c.ID); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		return WithdrawContentOutput{}, err
	}
	return WithdrawContentOutput{Content: c}, nil
}

type ToggleMemberInput struct {
	ContentID model.ContentID
	UserID    model.UserID
}

type ToggleMemberOutput struct {
	ContentID model.ContentID
	UserID    model.UserID
	Field     model.ContentField
	Added     bool
}

// ToggleMember like/unlike/pin/unpin；加入时要求用户已注册，重复加入或移除不存在的成员违反规则
type ToggleMember struct {
	users    repository.UserRepository
	contents repository.ContentRepository
	field    model.ContentField
	add      bool
	dupErr   error
}

func newToggle(users repository.UserRepository, contents repository.ContentRepository, field model.ContentField, add bool) *ToggleMember {
	t := &ToggleMember{users: users, contents: contents, field: field, add: add}
	switch {
	case field == model.ContentFieldLiked && add:
		t.dupErr = ErrAlreadyLiked
	case field == model.ContentFieldLiked:
		t.dupErr = ErrNotLiked
	case add:
		t.dupErr = ErrAlreadyPinned
	default:
		t.dupErr = ErrNotPinned
	}
	return t
}

func (uc *ToggleMember) Execute(ctx context.Context, in ToggleMemberInput) (ToggleMemberOutput, error) {
	var (
		changed bool
		err     error
	)
	if uc.add {
		var ok bool
		if ok, err = uc.users.IsExists(ctx, in.UserID); err != nil {
			return ToggleMemberOutput{}, err
		}
		if !ok {
			return ToggleMemberOutput{}, ErrUserNotFound
		}
		changed, err = uc.contents.InsertMember(ctx, in.ContentID, uc.field, in.UserID)
	} else {
		changed, err = uc.contents.DeleteMember(ctx, in.ContentID, uc.field, in.UserID)
	}
	if err != nil {
		return ToggleMemberOutput{}, contentNotFound(err)
	}
	if !changed {
		return ToggleMemberOutput{}, uc.dupErr
	}
	return ToggleMemberOutput{ContentID: in.ContentID, UserID: in.UserID, Field: uc.field, Added: uc.add}, nil
}

type GetMembersInput struct {
	ContentID model.ContentID
	Page      uint32
}

type GetMembersOutput struct {
	ContentID model.ContentID
	Field     model.ContentField
	Users     Page[model.UserID]
}

// GetMembers 分页列出点赞或置顶的用户，每页 MemberPageSize 条
type GetMembers struct {
	contents repository.ContentRepository
	field    model.ContentField
}

func (uc *GetMembers) Execute(ctx context.Context, in GetMembersInput) (GetMembersOutput, error) {
	if in.Page == 0 {
		return GetMembersOutput{}, ErrPageZero
	}
	c, err := uc.contents.Find(ctx, in.ContentID)
	if err != nil {
		return GetMembersOutput{}, contentNotFound(err)
	}
	p, err := paginate(*c.Set(uc.field), in.Page, MemberPageSize)
	if err != nil {
		return GetMembersOutput{}, err
	}
	return GetMembersOutput{ContentID: in.ContentID, Field: uc.field, Users: p}, nil
}
