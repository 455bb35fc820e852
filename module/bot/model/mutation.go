package model

import (
	"regexp"
	"time"
)

// UserMutation 用户的部分更新：非 nil 字段覆盖，nil 字段不动
type UserMutation struct {
	Admin    *bool
	SubAdmin *bool
}

// IsEmpty 没有任何字段
func (m UserMutation) IsEmpty() bool {
	return m.Admin == nil && m.SubAdmin == nil
}

// Apply 作用到 u 上
func (m UserMutation) Apply(u *User) {
	if m.Admin != nil {
		u.Admin = *m.Admin
	}
	if m.SubAdmin != nil {
		u.SubAdmin = *m.SubAdmin
	}
}

// TextMutationKind 正文修改方式
type TextMutationKind int

const (
	TextComplete TextMutationKind = iota + 1 // 整体替换
	TextSed                                  // 正则替换
)

// ContentTextMutation 正文修改
type ContentTextMutation struct {
	Kind    TextMutationKind
	Text    string         // TextComplete
	Capture *regexp.Regexp // TextSed
	Replace string         // TextSed；支持 $1 / ${name} 引用
}

// CompleteText 整体替换
func CompleteText(text string) ContentTextMutation {
	return ContentTextMutation{Kind: TextComplete, Text: text}
}

// SedText 正则替换；capture 在此编译
func SedText(capture, replace string) (ContentTextMutation, error) {
	re, err := CompilePattern(capture)
	if err != nil {
		return ContentTextMutation{}, err
	}
	return ContentTextMutation{Kind: TextSed, Capture: re, Replace: replace}, nil
}

// Apply 返回修改后的正文。Sed 只替换第一个匹配，与 s/x/y/ 相同
func (m ContentTextMutation) Apply(current string) string {
	switch m.Kind {
	case TextComplete:
		return m.Text
	case TextSed:
		loc := m.Capture.FindStringSubmatchIndex(current)
		if loc == nil {
			return current
		}
		var dst []byte
		dst = m.Capture.ExpandString(dst, m.Replace, current, loc)
		return current[:loc[0]] + string(dst) + current[loc[1]:]
	}
	return current
}

// ContentMutation 投稿的部分更新；Edited 总会追加到编辑历史
type ContentMutation struct {
	Author  *Author
	Content *ContentTextMutation
	Edited  time.Time
}

// Apply 作用到 c 上
func (m ContentMutation) Apply(c *Content) {
	if m.Author != nil {
		c.Author = *m.Author
	}
	if m.Content != nil {
		c.Content = m.Content.Apply(c.Content)
	}
	c.Edited = append(c.Edited, m.Edited)
}
