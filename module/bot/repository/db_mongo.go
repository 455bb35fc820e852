package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PBot/data/database/mgo/mongoutil"
	"PBot/module/bot/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UserCollection    = "users"
	ContentCollection = "contents"
)

// 集合字段名
const (
	FieldID           = "id"
	FieldAdmin        = "admin"
	FieldSubAdmin     = "sub_admin"
	FieldPosted       = "posted"
	FieldBookmark     = "bookmark"
	FieldAuthor       = "author"
	FieldAuthorKind   = "author.kind"
	FieldAuthorID     = "author.id"
	FieldPostedID     = "posted.id"
	FieldContent      = "content"
	FieldLiked        = "liked"
	FieldPinned       = "pinned"
	FieldCreated      = "created"
	FieldEdited       = "edited"
	sizeSuffix        = "_size"
	authorKindUser    = "user"
	authorKindVirtual = "virtual"
)

// 每个集合字段旁边维护一个 <field>_size 计数，计数区间过滤可以下推到数据库
type userDoc struct {
	ID           int64    `bson:"id"`
	Admin        bool     `bson:"admin"`
	SubAdmin     bool     `bson:"sub_admin"`
	Posted       []string `bson:"posted"`
	PostedSize   int      `bson:"posted_size"`
	Bookmark     []string `bson:"bookmark"`
	BookmarkSize int      `bson:"bookmark_size"`
}

type authorDoc struct {
	Kind string  `bson:"kind"`
	ID   int64   `bson:"id,omitempty"`
	Name string  `bson:"name"`
	Nick *string `bson:"nick,omitempty"`
}

type postedDoc struct {
	ID   int64   `bson:"id"`
	Name string  `bson:"name"`
	Nick *string `bson:"nick,omitempty"`
}

type contentDoc struct {
	ID         string      `bson:"id"`
	Author     authorDoc   `bson:"author"`
	Posted     postedDoc   `bson:"posted"`
	Content    string      `bson:"content"`
	Liked      []int64     `bson:"liked"`
	LikedSize  int         `bson:"liked_size"`
	Pinned     []int64     `bson:"pinned"`
	PinnedSize int         `bson:"pinned_size"`
	Created    time.Time   `bson:"created"`
	Edited     []time.Time `bson:"edited"`
}

func toUserDoc(u model.User) userDoc {
	return userDoc{
		ID:           int64(u.ID),
		Admin:        u.Admin,
		SubAdmin:     u.SubAdmin,
		Posted:       contentIDStrings(u.Posted),
		PostedSize:   len(u.Posted),
		Bookmark:     contentIDStrings(u.Bookmark),
		BookmarkSize: len(u.Bookmark),
	}
}

func (d userDoc) toModel() (model.User, error) {
	posted, err := parseContentIDs(d.Posted)
	if err != nil {
		return model.User{}, err
	}
	bookmark, err := parseContentIDs(d.Bookmark)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		ID:       model.UserID(d.ID),
		Admin:    d.Admin,
		SubAdmin: d.SubAdmin,
		Posted:   posted,
		Bookmark: bookmark,
	}, nil
}

func toContentDoc(c model.Content) contentDoc {
	a := authorDoc{Name: c.Author.Name, Nick: c.Author.Nick}
	if c.Author.IsUser() {
		a.Kind = authorKindUser
		a.ID = int64(c.Author.ID)
	} else {
		a.Kind = authorKindVirtual
	}
	edited := c.Edited
	if edited == nil {
		edited = []time.Time{}
	}
	return contentDoc{
		ID:         c.ID.String(),
		Author:     a,
		Posted:     postedDoc{ID: int64(c.Posted.ID), Name: c.Posted.Name, Nick: c.Posted.Nick},
		Content:    c.Content,
		Liked:      userIDInts(c.Liked),
		LikedSize:  len(c.Liked),
		Pinned:     userIDInts(c.Pinned),
		PinnedSize: len(c.Pinned),
		Created:    c.Created,
		Edited:     edited,
	}
}

func (d contentDoc) toModel() (model.Content, error) {
	id, err := model.ParseContentID(d.ID)
	if err != nil {
		return model.Content{}, err
	}
	var author model.Author
	switch d.Author.Kind {
	case authorKindUser:
		author = model.UserAuthor(model.UserID(d.Author.ID), d.Author.Name, d.Author.Nick)
	case authorKindVirtual:
		author = model.VirtualAuthor(d.Author.Name)
	default:
		return model.Content{}, fmt.Errorf("content %s: unknown author kind %q", d.ID, d.Author.Kind)
	}
	edited := d.Edited
	if edited == nil {
		edited = []time.Time{}
	}
	return model.Content{
		ID:      id,
		Author:  author,
		Posted:  model.Posted{ID: model.UserID(d.Posted.ID), Name: d.Posted.Name, Nick: d.Posted.Nick},
		Content: d.Content,
		Liked:   userIDsOf(d.Liked),
		Pinned:  userIDsOf(d.Pinned),
		Created: d.Created,
		Edited:  edited,
	}, nil
}

func contentIDStrings(ids []model.ContentID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseContentIDs(ss []string) ([]model.ContentID, error) {
	out := make([]model.ContentID, 0, len(ss))
	for _, s := range ss {
		id, err := model.ParseContentID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func userIDInts(ids []model.UserID) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func userIDsOf(ns []int64) []model.UserID {
	out := make([]model.UserID, 0, len(ns))
	for _, n := range ns {
		out = append(out, model.UserID(n))
	}
	return out
}

// rangeFilter 计数区间转为 $gte/$gt/$lte/$lt；全开区间返回 nil
func rangeFilter(r *model.Range) bson.M {
	if r == nil {
		return nil
	}
	m := bson.M{}
	switch r.Lower.Kind {
	case model.Included:
		m["$gte"] = r.Lower.Value
	case model.Excluded:
		m["$gt"] = r.Lower.Value
	}
	switch r.Upper.Kind {
	case model.Included:
		m["$lte"] = r.Upper.Value
	case model.Excluded:
		m["$lt"] = r.Upper.Value
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// userFilter 能下推的部分；其余条件由 query.Matches 在读出后补齐
func userFilter(q model.UserQuery) bson.M {
	f := bson.M{}
	if len(q.Bookmark) > 0 {
		f[FieldBookmark] = bson.M{"$all": contentIDStrings(q.Bookmark)}
	}
	if m := rangeFilter(q.BookmarkNum); m != nil {
		f[FieldBookmark+sizeSuffix] = m
	}
	if len(q.Posted) > 0 {
		f[FieldPosted] = bson.M{"$all": contentIDStrings(q.Posted)}
	}
	if m := rangeFilter(q.PostedNum); m != nil {
		f[FieldPosted+sizeSuffix] = m
	}
	return f
}

// contentFilter 正则类条件不下推，统一走 Go 的 regexp 语义，和内存后端保持一致
func contentFilter(q model.ContentQuery) bson.M {
	f := bson.M{}
	if q.Author != nil {
		switch q.Author.Kind {
		case model.ByUserID:
			f[FieldAuthorKind] = authorKindUser
			f[FieldAuthorID] = int64(q.Author.ID)
		case model.ByUserName, model.ByUserNick:
			f[FieldAuthorKind] = authorKindUser
		case model.ByVirtual:
			f[FieldAuthorKind] = authorKindVirtual
		}
	}
	if q.Posted != nil && q.Posted.Kind == model.ByUserID {
		f[FieldPostedID] = int64(q.Posted.ID)
	}
	if len(q.Liked) > 0 {
		f[FieldLiked] = bson.M{"$all": userIDInts(q.Liked)}
	}
	if m := rangeFilter(q.LikedNum); m != nil {
		f[FieldLiked+sizeSuffix] = m
	}
	if len(q.Pinned) > 0 {
		f[FieldPinned] = bson.M{"$all": userIDInts(q.Pinned)}
	}
	if m := rangeFilter(q.PinnedNum); m != nil {
		f[FieldPinned+sizeSuffix] = m
	}
	return f
}

// memberUpdate 条件 $push / $pull，并同步维护计数
func memberUpdate(field string, elem any, insert bool) (bson.M, bson.M) {
	if insert {
		return bson.M{field: bson.M{"$ne": elem}}, bson.M{
			"$push": bson.M{field: elem},
			"$inc":  bson.M{field + sizeSuffix: 1},
		}
	}
	return bson.M{field: elem}, bson.M{
		"$pull": bson.M{field: elem},
		"$inc":  bson.M{field + sizeSuffix: -1},
	}
}

// findUnique 按唯一键取一条；命中 0 条为 ErrNotFound，多于 1 条为 NoUniqueError
func findUnique[D any](ctx context.Context, coll *mongo.Collection, filter bson.M) (D, error) {
	var zero D
	cur, err := coll.Find(ctx, filter, options.Find().SetLimit(2))
	if err != nil {
		return zero, internal(err)
	}
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return zero, internal(err)
	}
	switch len(docs) {
	case 0:
		return zero, ErrNotFound
	case 1:
		return docs[0], nil
	}
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return zero, internal(err)
	}
	return zero, &NoUniqueError{Matched: n}
}

func findAll[D any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]D, error) {
	cur, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, internal(err)
	}
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, internal(err)
	}
	return docs, nil
}

func isExists(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, internal(err)
	}
	return n > 0, nil
}

// passThrough 领域错误原样返回，其它统一包成 InternalError
func passThrough(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var nu *NoUniqueError
	if errors.As(err, &nu) {
		return err
	}
	return internal(err)
}

// NewMongoStore MongoDB 后端；所有读-改-写都在多文档事务里完成
func NewMongoStore(cli *mongoutil.Client) *Store {
	db := cli.GetDB()
	return &Store{
		Backend: "mongodb",
		Users: &mongoUserDB{
			coll: db.Collection(UserCollection),
			tx:   cli.GetTx(),
		},
		Contents: &mongoContentDB{
			coll: db.Collection(ContentCollection),
			tx:   cli.GetTx(),
		},
		ping:  cli.Ping,
		close: cli.Close,
	}
}

// EnsureIndexes 两个集合的 id 唯一索引；已存在同名索引时跳过
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	collections := map[string][]mongo.IndexModel{
		UserCollection: {{
			Keys:    bson.D{{Key: FieldID, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user_id"),
		}},
		ContentCollection: {
			{
				Keys:    bson.D{{Key: FieldID, Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_content_id"),
			},
			{
				Keys:    bson.D{{Key: FieldPostedID, Value: 1}},
				Options: options.Index().SetName("ix_posted_id"),
			},
		},
	}

	for collName, indexes := range collections {
		coll := db.Collection(collName)

		existing, err := coll.Indexes().ListSpecifications(ctx)
		if err != nil {
			return fmt.Errorf("list indexes for %s: %w", collName, err)
		}
		existingNames := make(map[string]struct{}, len(existing))
		for _, spec := range existing {
			existingNames[spec.Name] = struct{}{}
		}

		for _, idx := range indexes {
			if _, ok := existingNames[*idx.Options.Name]; ok {
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
				return fmt.Errorf("create index %s on %s: %w", *idx.Options.Name, collName, err)
			}
		}
	}
	return nil
}

type mongoUserDB struct {
	coll *mongo.Collection
	tx   mongoutil.Tx
}

func userKey(id model.UserID) bson.M {
	return bson.M{FieldID: int64(id)}
}

func (db *mongoUserDB) Insert(ctx context.Context, user model.User) (bool, error) {
	var inserted bool
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		inserted = false
		ok, err := isExists(ctx, db.coll, userKey(user.ID))
		if err != nil || ok {
			return err
		}
		if _, err := db.coll.InsertOne(ctx, toUserDoc(user)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil
			}
			return err
		}
		inserted = true
		return nil
	})
	return inserted, passThrough(err)
}

func (db *mongoUserDB) IsExists(ctx context.Context, id model.UserID) (bool, error) {
	return isExists(ctx, db.coll, userKey(id))
}

func (db *mongoUserDB) Find(ctx context.Context, id model.UserID) (model.User, error) {
	doc, err := findUnique[userDoc](ctx, db.coll, userKey(id))
	if err != nil {
		return model.User{}, err
	}
	u, err := doc.toModel()
	return u, internal(err)
}

func (db *mongoUserDB) Finds(ctx context.Context, query model.UserQuery) ([]model.User, error) {
	docs, err := findAll[userDoc](ctx, db.coll, userFilter(query))
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.toModel()
		if err != nil {
			return nil, internal(err)
		}
		if query.Matches(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (db *mongoUserDB) Update(ctx context.Context, id model.UserID, mutation model.UserMutation) (model.User, error) {
	var updated model.User
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		doc, err := findUnique[userDoc](ctx, db.coll, userKey(id))
		if err != nil {
			return err
		}
		u, err := doc.toModel()
		if err != nil {
			return err
		}
		mutation.Apply(&u)
		set := bson.M{FieldAdmin: u.Admin, FieldSubAdmin: u.SubAdmin}
		if _, err := db.coll.UpdateOne(ctx, userKey(id), bson.M{"$set": set}); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return model.User{}, passThrough(err)
	}
	return updated, nil
}

func (db *mongoUserDB) IsMember(ctx context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error) {
	if err := checkUserField(field); err != nil {
		return false, err
	}
	doc, err := findUnique[userDoc](ctx, db.coll, userKey(id))
	if err != nil {
		return false, err
	}
	u, err := doc.toModel()
	if err != nil {
		return false, internal(err)
	}
	return model.Contains(*u.Set(field), elem), nil
}

func (db *mongoUserDB) InsertMember(ctx context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error) {
	return db.updateMember(ctx, id, field, elem, true)
}

func (db *mongoUserDB) DeleteMember(ctx context.Context, id model.UserID, field model.UserField, elem model.ContentID) (bool, error) {
	return db.updateMember(ctx, id, field, elem, false)
}

func (db *mongoUserDB) updateMember(ctx context.Context, id model.UserID, field model.UserField, elem model.ContentID, insert bool) (bool, error) {
	if err := checkUserField(field); err != nil {
		return false, err
	}
	var changed bool
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		changed = false
		if _, err := findUnique[userDoc](ctx, db.coll, userKey(id)); err != nil {
			return err
		}
		cond, update := memberUpdate(string(field), elem.String(), insert)
		cond[FieldID] = int64(id)
		res, err := db.coll.UpdateOne(ctx, cond, update)
		if err != nil {
			return err
		}
		changed = res.ModifiedCount == 1
		return nil
	})
	return changed, passThrough(err)
}

func (db *mongoUserDB) Delete(ctx context.Context, id model.UserID) (model.User, error) {
	var deleted model.User
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		doc, err := findUnique[userDoc](ctx, db.coll, userKey(id))
		if err != nil {
			return err
		}
		if deleted, err = doc.toModel(); err != nil {
			return err
		}
		_, err = db.coll.DeleteOne(ctx, userKey(id))
		return err
	})
	if err != nil {
		return model.User{}, passThrough(err)
	}
	return deleted, nil
}

type mongoContentDB struct {
	coll *mongo.Collection
	tx   mongoutil.Tx
}

func contentKey(id model.ContentID) bson.M {
	return bson.M{FieldID: id.String()}
}

func (db *mongoContentDB) Insert(ctx context.Context, content model.Content) (bool, error) {
	var inserted bool
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		inserted = false
		ok, err := isExists(ctx, db.coll, contentKey(content.ID))
		if err != nil || ok {
			return err
		}
		if _, err := db.coll.InsertOne(ctx, toContentDoc(content)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil
			}
			return err
		}
		inserted = true
		return nil
	})
	return inserted, passThrough(err)
}

func (db *mongoContentDB) IsExists(ctx context.Context, id model.ContentID) (bool, error) {
	return isExists(ctx, db.coll, contentKey(id))
}

func (db *mongoContentDB) Find(ctx context.Context, id model.ContentID) (model.Content, error) {
	doc, err := findUnique[contentDoc](ctx, db.coll, contentKey(id))
	if err != nil {
		return model.Content{}, err
	}
	c, err := doc.toModel()
	return c, internal(err)
}

func (db *mongoContentDB) Finds(ctx context.Context, query model.ContentQuery) ([]model.Content, error) {
	docs, err := findAll[contentDoc](ctx, db.coll, contentFilter(query))
	if err != nil {
		return nil, err
	}
	out := make([]model.Content, 0, len(docs))
	for _, d := range docs {
		c, err := d.toModel()
		if err != nil {
			return nil, internal(err)
		}
		if query.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (db *mongoContentDB) Update(ctx context.Context, id model.ContentID, mutation model.ContentMutation) (model.Content, error) {
	var updated model.Content
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		doc, err := findUnique[contentDoc](ctx, db.coll, contentKey(id))
		if err != nil {
			return err
		}
		c, err := doc.toModel()
		if err != nil {
			return err
		}
		mutation.Apply(&c)
		next := toContentDoc(c)
		set := bson.M{
			FieldAuthor:  next.Author,
			FieldContent: next.Content,
			FieldEdited:  next.Edited,
		}
		if _, err := db.coll.UpdateOne(ctx, contentKey(id), bson.M{"$set": set}); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return model.Content{}, passThrough(err)
	}
	return updated, nil
}

func (db *mongoContentDB) IsMember(ctx context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error) {
	if err := checkContentField(field); err != nil {
		return false, err
	}
	doc, err := findUnique[contentDoc](ctx, db.coll, contentKey(id))
	if err != nil {
		return false, err
	}
	c, err := doc.toModel()
	if err != nil {
		return false, internal(err)
	}
	return model.Contains(*c.Set(field), elem), nil
}

func (db *mongoContentDB) InsertMember(ctx context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error) {
	return db.updateMember(ctx, id, field, elem, true)
}

func (db *mongoContentDB) DeleteMember(ctx context.Context, id model.ContentID, field model.ContentField, elem model.UserID) (bool, error) {
	return db.updateMember(ctx, id, field, elem, false)
}

func (db *mongoContentDB) updateMember(ctx context.Context, id model.ContentID, field model.ContentField, elem model.UserID, insert bool) (bool, error) {
	if err := checkContentField(field); err != nil {
		return false, err
	}
	var changed bool
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		changed = false
		if _, err := findUnique[contentDoc](ctx, db.coll, contentKey(id)); err != nil {
			return err
		}
		cond, update := memberUpdate(string(field), int64(elem), insert)
		cond[FieldID] = id.String()
		res, err := db.coll.UpdateOne(ctx, cond, update)
		if err != nil {
			return err
		}
		changed = res.ModifiedCount == 1
		return nil
	})
	return changed, passThrough(err)
}

func (db *mongoContentDB) Delete(ctx context.Context, id model.ContentID) (model.Content, error) {
	var deleted model.Content
	err := db.tx.Transaction(ctx, func(ctx context.Context) error {
		doc, err := findUnique[contentDoc](ctx, db.coll, contentKey(id))
		if err != nil {
			return err
		}
		if deleted, err = doc.toModel(); err != nil {
			return err
		}
		_, err = db.coll.DeleteOne(ctx, contentKey(id))
		return err
	})
	if err != nil {
		return model.Content{}, passThrough(err)
	}
	return deleted, nil
}
