package model

// User 已注册的用户
type User struct {
	ID       UserID      // 平台用户 ID，全局唯一
	Admin    bool        // 管理员
	SubAdmin bool        // 副管理员：可编辑/撤回他人投稿
	Posted   []ContentID // 投稿过的内容
	Bookmark []ContentID // 收藏的内容
}

// NewUser 注册时的初始状态
func NewUser(id UserID) User {
	return User{ID: id, Posted: []ContentID{}, Bookmark: []ContentID{}}
}

// Clone 深拷贝，仓储层返回副本，避免调用方改到内部状态
func (u User) Clone() User {
	u.Posted = cloneSet(u.Posted)
	u.Bookmark = cloneSet(u.Bookmark)
	return u
}

// UserField 用户上的集合字段
type UserField string

const (
	UserFieldPosted   UserField = "posted"
	UserFieldBookmark UserField = "bookmark"
)

// Set 返回字段对应的集合
func (u *User) Set(f UserField) *[]ContentID {
	switch f {
	case UserFieldPosted:
		return &u.Posted
	case UserFieldBookmark:
		return &u.Bookmark
	}
	return nil
}
