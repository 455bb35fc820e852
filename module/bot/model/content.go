package model

import "time"

// AuthorKind Author 的变体
type AuthorKind int

const (
	AuthorUser    AuthorKind = iota + 1 // 真实平台用户
	AuthorVirtual                       // 虚拟署名（匿名 / 任意名字）
)

// Author 被署名者；发帖时平台身份的快照，不是对 User 的引用
type Author struct {
	Kind AuthorKind
	ID   UserID  // 仅 AuthorUser
	Name string  // 用户名或虚拟名
	Nick *string // 服务器昵称，仅 AuthorUser 且存在时
}

// UserAuthor 构造真实用户署名
func UserAuthor(id UserID, name string, nick *string) Author {
	return Author{Kind: AuthorUser, ID: id, Name: name, Nick: nick}
}

// VirtualAuthor 构造虚拟署名
func VirtualAuthor(name string) Author {
	return Author{Kind: AuthorVirtual, Name: name}
}

// IsUser 是否真实用户署名
func (a Author) IsUser() bool { return a.Kind == AuthorUser }

// DisplayName 昵称优先
func (a Author) DisplayName() string {
	if a.Nick != nil && *a.Nick != "" {
		return *a.Nick
	}
	return a.Name
}

// Posted 实际发出命令的用户快照
type Posted struct {
	ID   UserID
	Name string
	Nick *string
}

// DisplayName 昵称优先
func (p Posted) DisplayName() string {
	if p.Nick != nil && *p.Nick != "" {
		return *p.Nick
	}
	return p.Name
}

// Content 投稿
type Content struct {
	ID      ContentID
	Author  Author      // 署名（可能是虚拟的）
	Posted  Posted      // 发出 post 命令的人（总是真实用户）
	Content string      // 正文
	Liked   []UserID    // 点赞的用户
	Pinned  []UserID    // 置顶的用户
	Created time.Time   // 投稿时间
	Edited  []time.Time // 编辑历史，按时间追加
}

// NewContent 新投稿，集合均为空
func NewContent(author Author, posted Posted, text string, created time.Time) Content {
	return Content{
		ID:      NewContentID(),
		Author:  author,
		Posted:  posted,
		Content: text,
		Liked:   []UserID{},
		Pinned:  []UserID{},
		Created: created,
		Edited:  []time.Time{},
	}
}

// Clone 深拷贝
func (c Content) Clone() Content {
	c.Liked = cloneSet(c.Liked)
	c.Pinned = cloneSet(c.Pinned)
	c.Edited = cloneSet(c.Edited)
	if c.Author.Nick != nil {
		n := *c.Author.Nick
		c.Author.Nick = &n
	}
	if c.Posted.Nick != nil {
		n := *c.Posted.Nick
		c.Posted.Nick = &n
	}
	return c
}

// ContentField 投稿上的集合字段
type ContentField string

const (
	ContentFieldLiked  ContentField = "liked"
	ContentFieldPinned ContentField = "pinned"
)

// Set 返回字段对应的集合
func (c *Content) Set(f ContentField) *[]UserID {
	switch f {
	case ContentFieldLiked:
		return &c.Liked
	case ContentFieldPinned:
		return &c.Pinned
	}
	return nil
}
