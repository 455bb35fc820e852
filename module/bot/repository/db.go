package repository

import (
	"context"
	"errors"
	"fmt"

	"PBot/module/bot/model"

	pkgerrors "github.com/pkg/errors"
)

// ErrNotFound 指定 id 不存在
var ErrNotFound = errors.New("not found")

// NoUniqueError 唯一键命中了多条记录；正常运行不应出现
type NoUniqueError struct {
	Matched int64
}

func (e *NoUniqueError) Error() string {
	return fmt.Sprintf("unique key matched %d documents", e.Matched)
}

// InternalError 后端 I/O 或协议错误
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string {
	return "repository internal error: " + e.Cause.Error()
}

func (e *InternalError) Unwrap() error { return e.Cause }

func internal(err error) error {
	if err == nil {
		return nil
	}
	var ie *InternalError
	if errors.As(err, &ie) {
		return err
	}
	return &InternalError{Cause: pkgerrors.WithStack(err)}
}

// UserRepository 用户仓储
//
// InsertMember / DeleteMember 只报告是否发生变化，"已存在"/"不存在" 是否算错误由调用方决定。
type UserRepository interface {
	Insert(ctx context.Context, user model.User) (bool, error)
	IsExists(ctx context.Context, id model.UserID) (bool, error)
	Find(ctx context.Context, id model.UserID) (model.User, error)
	Finds(ctx context.Context, query model.UserQuery) ([]model.User, error)
	Update(ctx context.Context, id model.UserID, mutation model.UserMutation) (model.User, error)
	IsMember(ctx context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error)
	InsertMember(ctx context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error)
	DeleteMember(ctx context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error)
	Delete(ctx context.Context, id model.UserID) (model.User, error)
}

// ContentRepository 投稿仓储
type ContentRepository interface {
	Insert(ctx context.Context, content model.Content) (bool, error)
	IsExists(ctx context.Context, id model.ContentID) (bool, error)
	Find(ctx context.Context, id model.ContentID) (model.Content, error)
	Finds(ctx context.Context, query model.ContentQuery) ([]model.Content, error)
	Update(ctx context.Context, id model.ContentID, mutation model.ContentMutation) (model.Content, error)
	IsMember(ctx context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error)
	InsertMember(ctx context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error)
	DeleteMember(ctx context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error)
	Delete(ctx context.Context, id model.ContentID) (model.Content, error)
}

// Store 一个后端下的全部仓储；启动时按配置选定一次
type Store struct {
	Backend  string
	Users    UserRepository
	Contents ContentRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping 后端就绪检查
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close 释放后端连接
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func checkUserField(f model.UserField) error {
	switch f {
	case model.UserFieldPosted, model.UserFieldBookmark:
		return nil
	}
	return fmt.Errorf("unknown user set field %q", f)
}

func checkContentField(f model.ContentField) error {
	switch f {
	case model.ContentFieldLiked, model.ContentFieldPinned:
		return nil
	}
	return fmt.Errorf("unknown content set field %q", f)
}
