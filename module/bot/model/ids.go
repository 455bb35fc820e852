package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// UserID 来自聊天平台的用户 ID（Discord snowflake），用户存在后不可变
type UserID uint64

// ParseUserID 解析十进制 ID；同时接受 <@123> / <@!123> 的提及写法
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserID(n), nil
}

func (id UserID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Mention 渲染为平台提及格式
func (id UserID) Mention() string {
	return "<@" + id.String() + ">"
}

// ContentID 投稿 ID（UUID v4），投稿时生成
type ContentID uuid.UUID

// NewContentID 生成新的随机 ID
func NewContentID() ContentID {
	return ContentID(uuid.New())
}

// ParseContentID 解析 UUID 文本
func ParseContentID(s string) (ContentID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid content id %q: %w", s, err)
	}
	return ContentID(u), nil
}

func (id ContentID) String() string {
	return uuid.UUID(id).String()
}

func (id ContentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ContentID) UnmarshalText(b []byte) error {
	v, err := ParseContentID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
