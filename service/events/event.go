package events

import (
	"context"
	"encoding/json"
	"time"

	"PBot/module/bot/model"

	"github.com/google/uuid"
)

// Kind 领域事件类型
type Kind string

const (
	UserRegistered   Kind = "user.registered"
	UserEdited       Kind = "user.edited"
	UserUnregistered Kind = "user.unregistered"
	UserBookmarked   Kind = "user.bookmarked"
	UserUnbookmarked Kind = "user.unbookmarked"
	ContentPosted    Kind = "content.posted"
	ContentEdited    Kind = "content.edited"
	ContentWithdrawn Kind = "content.withdrawn"
	ContentLiked     Kind = "content.liked"
	ContentUnliked   Kind = "content.unliked"
	ContentPinned    Kind = "content.pinned"
	ContentUnpinned  Kind = "content.unpinned"
)

// Event 一次成功的写操作
type Event struct {
	ID      string           `json:"id"`
	Kind    Kind             `json:"kind"`
	Actor   model.UserID     `json:"actor,string"`
	User    *model.UserID    `json:"user,omitempty,string"`
	Content *model.ContentID `json:"content,omitempty"`
	At      time.Time        `json:"at"`
}

// New 填好 ID 与时间
func New(kind Kind, actor model.UserID, at time.Time) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Actor: actor, At: at}
}

// WithUser 目标用户
func (e Event) WithUser(id model.UserID) Event {
	e.User = &id
	return e
}

// WithContent 目标投稿
func (e Event) WithContent(id model.ContentID) Event {
	e.Content = &id
	return e
}

// Key 分区 / 去重用的键：优先投稿，其次用户，最后操作者
func (e Event) Key() string {
	switch {
	case e.Content != nil:
		return e.Content.String()
	case e.User != nil:
		return e.User.String()
	}
	return e.Actor.String()
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 事件出口；发布失败只记日志，不影响命令结果
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop 不发布
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
