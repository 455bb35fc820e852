package usecase

import (
	"errors"
	"fmt"
	"time"

	"PBot/module/bot/model"
	"PBot/module/bot/repository"
)

// Kind 业务错误分类，控制器据此选择面板
type Kind int

const (
	KindNotFound   Kind = iota + 1 // 用户未注册 / 找不到投稿
	KindRule                       // 违反业务规则
	KindOutOfRange                 // 分页越界
)

// Error 可区分的业务错误；不同规则是不同的值，errors.Is 按指针比较
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrUserNotFound       = &Error{KindNotFound, "user is not registered"}
	ErrContentNotFound    = &Error{KindNotFound, "cannot find content"}
	ErrAlreadyRegistered  = &Error{KindRule, "user is already registered"}
	ErrAlreadyBookmarked  = &Error{KindRule, "content is already bookmarked"}
	ErrNotBookmarked      = &Error{KindRule, "content is not bookmarked"}
	ErrAlreadyLiked       = &Error{KindRule, "content is already liked"}
	ErrNotLiked           = &Error{KindRule, "content is not liked"}
	ErrAlreadyPinned      = &Error{KindRule, "content is already pinned"}
	ErrNotPinned          = &Error{KindRule, "content is not pinned"}
	ErrContentIDCollision = &Error{KindRule, "generated content id already exists, retry"}
	ErrPageZero           = &Error{KindOutOfRange, "page starts from 1"}
	ErrPageOutOfRange     = &Error{KindOutOfRange, "page out of range"}
)

// KindOf 非业务错误（仓储故障等）返回 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// 分页大小
const (
	EntityPageSize = 5  // 实体列表
	MemberPageSize = 20 // 成员列表
)

// Indexed 条目及其在完整结果集中的下标（从 0 开始）
type Indexed[T any] struct {
	Index int
	Item  T
}

// Page 一页结果
type Page[T any] struct {
	Items []Indexed[T]
	Page  uint32
	Pages int
	Total int
}

// paginate page 从 1 开始；起点越界报错，终点越界截断。空结果集的第 1 页返回空页
func paginate[T any](all []T, page uint32, size int) (Page[T], error) {
	if page == 0 {
		return Page[T]{}, ErrPageZero
	}
	total := len(all)
	out := Page[T]{
		Items: []Indexed[T]{},
		Page:  page,
		Pages: (total + size - 1) / size,
		Total: total,
	}
	start := int(page-1) * size
	if start >= total {
		if total == 0 && page == 1 {
			return out, nil
		}
		return Page[T]{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, out.Pages)
	}
	end := min(start+size, total)
	for i := start; i < end; i++ {
		out.Items = append(out.Items, Indexed[T]{Index: i, Item: all[i]})
	}
	return out, nil
}

func userNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func contentNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrContentNotFound
	}
	return err
}

// Interactors 全部用例；仓储在启动时注入一次
type Interactors struct {
	RegisterUser      *RegisterUser
	GetUser           *GetUser
	GetUsers          *GetUsers
	EditUser          *EditUser
	UnregisterUser    *UnregisterUser
	BookmarkContent   *BookmarkContent
	UnbookmarkContent *UnbookmarkContent
	GetBookmarks      *GetBookmarks

	PostContent     *PostContent
	GetContent      *GetContent
	GetContents     *GetContents
	EditContent     *EditContent
	WithdrawContent *WithdrawContent
	LikeContent     *ToggleMember
	UnlikeContent   *ToggleMember
	GetLikes        *GetMembers
	PinContent      *ToggleMember
	UnpinContent    *ToggleMember
	GetPins         *GetMembers
}

// New now 为 nil 时使用 time.Now().UTC()
func New(store *repository.Store, now func() time.Time) *Interactors {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	users, contents := store.Users, store.Contents
	return &Interactors{
		RegisterUser:      &RegisterUser{users: users},
		GetUser:           &GetUser{users: users},
		GetUsers:          &GetUsers{users: users},
		EditUser:          &EditUser{users: users},
		UnregisterUser:    &UnregisterUser{users: users},
		BookmarkContent:   &BookmarkContent{users: users, contents: contents},
		UnbookmarkContent: &UnbookmarkContent{users: users},
		GetBookmarks:      &GetBookmarks{users: users},

		PostContent:     &PostContent{users: users, contents: contents, now: now},
		GetContent:      &GetContent{contents: contents},
		GetContents:     &GetContents{contents: contents},
		EditContent:     &EditContent{contents: contents, now: now},
		WithdrawContent: &WithdrawContent{users: users, contents: contents},
		LikeContent:     newToggle(users, contents, model.ContentFieldLiked, true),
		UnlikeContent:   newToggle(users, contents, model.ContentFieldLiked, false),
		GetLikes:        &GetMembers{contents: contents, field: model.ContentFieldLiked},
		PinContent:      newToggle(users, contents, model.ContentFieldPinned, true),
		UnpinContent:    newToggle(users, contents, model.ContentFieldPinned, false),
		GetPins:         &GetMembers{contents: contents, field: model.ContentFieldPinned},
	}
}
