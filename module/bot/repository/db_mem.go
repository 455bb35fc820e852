package repository

import (
	"context"
	"sync"

	"PBot/module/bot/model"
)

// NewMemStore 内存后端：每种实体一把互斥锁 + 线性扫描；用于测试和无需持久化的部署
func NewMemStore() *Store {
	return &Store{
		Backend:  "memory",
		Users:    &memUserDB{},
		Contents: &memContentDB{},
	}
}

type memUserDB struct {
	mu    sync.Mutex
	items []model.User
}

func (db *memUserDB) index(id model.UserID) int {
	for i := range db.items {
		if db.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (db *memUserDB) Insert(_ context.Context, user model.User) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.index(user.ID) >= 0 {
		return false, nil
	}
	db.items = append(db.items, user.Clone())
	return true, nil
}

func (db *memUserDB) IsExists(_ context.Context, id model.UserID) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.index(id) >= 0, nil
}

func (db *memUserDB) Find(_ context.Context, id model.UserID) (model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return model.User{}, ErrNotFound
	}
	return db.items[i].Clone(), nil
}

func (db *memUserDB) Finds(_ context.Context, query model.UserQuery) ([]model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.User, 0)
	for _, u := range db.items {
		if query.Matches(u) {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (db *memUserDB) Update(_ context.Context, id model.UserID, mutation model.UserMutation) (model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return model.User{}, ErrNotFound
	}
	mutation.Apply(&db.items[i])
	return db.items[i].Clone(), nil
}

func (db *memUserDB) IsMember(_ context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error) {
	if err := checkUserField(field); err != nil {
		return false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	return model.Contains(*db.items[i].Set(field), elem), nil
}

func (db *memUserDB) InsertMember(_ context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error) {
	if err := checkUserField(field); err != nil {
		return false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	set := db.items[i].Set(field)
	var ok bool
	*set, ok = model.InsertMember(*set, elem)
	return ok, nil
}

func (db *memUserDB) DeleteMember(_ context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error) {
	if err := checkUserField(field); err != nil {
		return false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	set := db.items[i].Set(field)
	var ok bool
	*set, ok = model.DeleteMember(*set, elem)
	return ok, nil
}

func (db *memUserDB) Delete(_ context.Context, id model.UserID) (model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return model.User{}, ErrNotFound
	}
	u := db.items[i]
	db.items = append(db.items[:i], db.items[i+1:]...)
	return u, nil
}

type memContentDB struct {
	mu    sync.Mutex
	items []model.Content
}

func (db *memContentDB) index(id model.ContentID) int {
	for i := range db.items {
		if db.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (db *memContentDB) Insert(_ context.Context, content model.Content) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.index(content.ID) >= 0 {
		return false, nil
	}
	db.items = append(db.items, content.Clone())
	return true, nil
}

func (db *memContentDB) IsExists(_ context.Context, id model.ContentID) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.index(id) >= 0, nil
}

func (db *memContentDB) Find(_ context.Context, id model.ContentID) (model.Content, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return model.Content{}, ErrNotFound
	}
	return db.items[i].Clone(), nil
}

func (db *memContentDB) Finds(_ context.Context, query model.ContentQuery) ([]model.Content, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Content, 0)
	for _, c := range db.items {
		if query.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (db *memContentDB) Update(_ context.Context, id model.ContentID, mutation model.ContentMutation) (model.Content, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return model.Content{}, ErrNotFound
	}
	mutation.Apply(&db.items[i])
	return db.items[i].Clone(), nil
}

func (db *memContentDB) IsMember(_ context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error) {
	if err := checkContentField(field); err != nil {
		return false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	return model.Contains(*db.items[i].Set(field), elem), nil
}

func (db *memContentDB) InsertMember(_ context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error) {
	if err := checkContentField(field); err != nil {
		return false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	set := db.items[i].Set(field)
	var ok bool
	*set, ok = model.InsertMember(*set, elem)
	return ok, nil
}

func (db *memContentDB) DeleteMember(_ context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error) {
	if err := checkContentField(field); err != nil {
		return false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	set := db.items[i].Set(field)
	var ok bool
	*set, ok = model.DeleteMember(*set, elem)
	return ok, nil
}

func (db *memContentDB) Delete(_ context.Context, id model.ContentID) (model.Content, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.index(id)
	if i < 0 {
		return model.Content{}, ErrNotFound
	}
	c := db.items[i]
	db.items = append(db.items[:i], db.items[i+1:]...)
	return c, nil
}
