package model

import (
	"fmt"
	"regexp"
)

// IdentityKind 身份过滤条件的变体
type IdentityKind int

const (
	ByUserID   IdentityKind = iota + 1 // 指定用户 ID
	ByUserName                         // 用户名正则
	ByUserNick                         // 昵称正则
	ByVirtual                          // 虚拟署名正则（仅 author）
	ByAny                              // 用户名或昵称（或虚拟名）正则
)

var identityKindNames = map[IdentityKind]string{
	ByUserID:   "UserId",
	ByUserName: "UserName",
	ByUserNick: "UserNick",
	ByVirtual:  "Virtual",
	ByAny:      "Any",
}

func (k IdentityKind) String() string {
	if s, ok := identityKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("IdentityKind(%d)", int(k))
}

// IdentityKindOf 由线上变体名取得 kind
func IdentityKindOf(name string) (IdentityKind, bool) {
	for k, s := range identityKindNames {
		if s == name {
			return k, true
		}
	}
	return 0, false
}

// AuthorQuery 署名过滤
type AuthorQuery struct {
	Kind    IdentityKind
	ID      UserID         // ByUserID
	Pattern *regexp.Regexp // 其它变体
}

// PostedQuery 发布者过滤；不支持 ByVirtual
type PostedQuery struct {
	Kind    IdentityKind
	ID      UserID
	Pattern *regexp.Regexp
}

// CompilePattern 解析阶段编译正则，失败立即返回
func CompilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", expr, err)
	}
	return re, nil
}

// NewAuthorQuery 构造正则类署名过滤
func NewAuthorQuery(kind IdentityKind, expr string) (AuthorQuery, error) {
	if kind == ByUserID {
		return AuthorQuery{}, fmt.Errorf("%s takes a user id, not a pattern", kind)
	}
	re, err := CompilePattern(expr)
	if err != nil {
		return AuthorQuery{}, err
	}
	return AuthorQuery{Kind: kind, Pattern: re}, nil
}

// NewPostedQuery 构造正则类发布者过滤
func NewPostedQuery(kind IdentityKind, expr string) (PostedQuery, error) {
	switch kind {
	case ByUserID:
		return PostedQuery{}, fmt.Errorf("%s takes a user id, not a pattern", kind)
	case ByVirtual:
		return PostedQuery{}, fmt.Errorf("%s is not applicable to posted", kind)
	}
	re, err := CompilePattern(expr)
	if err != nil {
		return PostedQuery{}, err
	}
	return PostedQuery{Kind: kind, Pattern: re}, nil
}

func matchNick(re *regexp.Regexp, nick *string) bool {
	return nick != nil && re.MatchString(*nick)
}

// Matches 判断署名是否满足条件
func (q AuthorQuery) Matches(a Author) bool {
	switch q.Kind {
	case ByUserID:
		return a.IsUser() && a.ID == q.ID
	case ByUserName:
		return a.IsUser() && q.Pattern.MatchString(a.Name)
	case ByUserNick:
		return a.IsUser() && matchNick(q.Pattern, a.Nick)
	case ByVirtual:
		return a.Kind == AuthorVirtual && q.Pattern.MatchString(a.Name)
	case ByAny:
		return q.Pattern.MatchString(a.Name) || matchNick(q.Pattern, a.Nick)
	}
	return false
}

// Matches 判断发布者是否满足条件
func (q PostedQuery) Matches(p Posted) bool {
	switch q.Kind {
	case ByUserID:
		return p.ID == q.ID
	case ByUserName:
		return q.Pattern.MatchString(p.Name)
	case ByUserNick:
		return matchNick(q.Pattern, p.Nick)
	case ByAny:
		return q.Pattern.MatchString(p.Name) || matchNick(q.Pattern, p.Nick)
	}
	return false
}

// ContentQuery 投稿过滤，所有条件 AND；全空时匹配全部
type ContentQuery struct {
	Author    *AuthorQuery
	Posted    *PostedQuery
	Content   *regexp.Regexp
	Liked     []UserID // 子集匹配
	LikedNum  *Range   // 作用于 len(liked)
	Pinned    []UserID
	PinnedNum *Range
}

// Matches 判断投稿是否满足全部条件
func (q ContentQuery) Matches(c Content) bool {
	if q.Author != nil && !q.Author.Matches(c.Author) {
		return false
	}
	if q.Posted != nil && !q.Posted.Matches(c.Posted) {
		return false
	}
	if q.Content != nil && !q.Content.MatchString(c.Content) {
		return false
	}
	if !ContainsAll(c.Liked, q.Liked) {
		return false
	}
	if q.LikedNum != nil && !q.LikedNum.ContainsLen(len(c.Liked)) {
		return false
	}
	if !ContainsAll(c.Pinned, q.Pinned) {
		return false
	}
	if q.PinnedNum != nil && !q.PinnedNum.ContainsLen(len(c.Pinned)) {
		return false
	}
	return true
}

// UserQuery 用户过滤
type UserQuery struct {
	Bookmark    []ContentID
	BookmarkNum *Range
	Posted      []ContentID
	PostedNum   *Range
}

// Matches 判断用户是否满足全部条件
func (q UserQuery) Matches(u User) bool {
	if !ContainsAll(u.Bookmark, q.Bookmark) {
		return false
	}
	if q.BookmarkNum != nil && !q.BookmarkNum.ContainsLen(len(u.Bookmark)) {
		return false
	}
	if !ContainsAll(u.Posted, q.Posted) {
		return false
	}
	if q.PostedNum != nil && !q.PostedNum.ContainsLen(len(u.Posted)) {
		return false
	}
	return true
}
