package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"PBot/module/bot/model"
	"PBot/tools/decode"
)

// decodeStrict 严格解析 JSON 参数：未知字段与尾随内容都报错，数字保留为 json.Number
func decodeStrict(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json %q: %w", s, err)
	}
	// More() 对尾随的 ] 或 } 返回 false，需要读到 EOF 才算完整
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json %q: trailing data", s)
	}
	return nil
}

func loose(raw json.RawMessage) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// jsonUserID 数字、数字字符串或提及写法都接受
type jsonUserID model.UserID

func (j *jsonUserID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	id, err := model.ParseUserID(s)
	if err != nil {
		return err
	}
	*j = jsonUserID(id)
	return nil
}

// readUserID 字符串按 ParseUserID 解析以支持提及写法，其余按数字读取
func readUserID(v any) (model.UserID, error) {
	if s, ok := v.(string); ok {
		return model.ParseUserID(s)
	}
	n, err := decode.ReadUint64(v)
	if err != nil {
		return 0, err
	}
	return model.UserID(n), nil
}

func userIDs(in []jsonUserID) []model.UserID {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.UserID, len(in))
	for i, id := range in {
		out[i] = model.UserID(id)
	}
	return out
}

type userQueryArg struct {
	Bookmark    []model.ContentID `json:"bookmark"`
	BookmarkNum *model.Range      `json:"bookmark_num"`
	Posted      []model.ContentID `json:"posted"`
	PostedNum   *model.Range      `json:"posted_num"`
}

func parseUserQuery(s string) (model.UserQuery, error) {
	var a userQueryArg
	if err := decodeStrict(s, &a); err != nil {
		return model.UserQuery{}, err
	}
	return model.UserQuery{
		Bookmark:    a.Bookmark,
		BookmarkNum: a.BookmarkNum,
		Posted:      a.Posted,
		PostedNum:   a.PostedNum,
	}, nil
}

type contentQueryArg struct {
	Author    json.RawMessage `json:"author"`
	Posted    json.RawMessage `json:"posted"`
	Content   *string         `json:"content"`
	Liked     []jsonUserID    `json:"liked"`
	LikedNum  *model.Range    `json:"liked_num"`
	Pinned    []jsonUserID    `json:"pinned"`
	PinnedNum *model.Range    `json:"pinned_num"`
}

func parseContentQuery(s string) (model.ContentQuery, error) {
	var a contentQueryArg
	if err := decodeStrict(s, &a); err != nil {
		return model.ContentQuery{}, err
	}
	q := model.ContentQuery{
		Liked:     userIDs(a.Liked),
		LikedNum:  a.LikedNum,
		Pinned:    userIDs(a.Pinned),
		PinnedNum: a.PinnedNum,
	}
	if !absent(a.Author) {
		kind, id, expr, err := parseIdentity("author", a.Author)
		if err != nil {
			return model.ContentQuery{}, err
		}
		aq := model.AuthorQuery{Kind: kind, ID: id}
		if kind != model.ByUserID {
			if aq, err = model.NewAuthorQuery(kind, expr); err != nil {
				return model.ContentQuery{}, err
			}
		}
		q.Author = &aq
	}
	if !absent(a.Posted) {
		kind, id, expr, err := parseIdentity("posted", a.Posted)
		if err != nil {
			return model.ContentQuery{}, err
		}
		pq := model.PostedQuery{Kind: kind, ID: id}
		if kind != model.ByUserID {
			if pq, err = model.NewPostedQuery(kind, expr); err != nil {
				return model.ContentQuery{}, err
			}
		}
		q.Posted = &pq
	}
	if a.Content != nil {
		re, err := model.CompilePattern(*a.Content)
		if err != nil {
			return model.ContentQuery{}, err
		}
		q.Content = re
	}
	return q, nil
}

// parseIdentity 解析 {"UserId": id} 或 {"UserName"|"UserNick"|"Virtual"|"Any": regex}
func parseIdentity(key string, raw json.RawMessage) (model.IdentityKind, model.UserID, string, error) {
	v, err := loose(raw)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%s: %w", key, err)
	}
	variant, payload, err := decode.Single(v)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%s: %w", key, err)
	}
	kind, ok := model.IdentityKindOf(variant)
	if !ok {
		return 0, 0, "", fmt.Errorf("%s: unknown variant %q", key, variant)
	}
	if kind == model.ByUserID {
		id, err := readUserID(payload)
		if err != nil {
			return 0, 0, "", fmt.Errorf("%s.%s: %w", key, variant, err)
		}
		return kind, id, "", nil
	}
	expr, err := decode.ReadString(payload)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%s.%s: %w", key, variant, err)
	}
	return kind, 0, expr, nil
}

type userMutationArg struct {
	Admin    *bool `json:"admin"`
	SubAdmin *bool `json:"sub_admin"`
}

func parseUserMutation(s string) (model.UserMutation, error) {
	var a userMutationArg
	if err := decodeStrict(s, &a); err != nil {
		return model.UserMutation{}, err
	}
	return model.UserMutation{Admin: a.Admin, SubAdmin: a.SubAdmin}, nil
}

// authorArg 署名参数；真实用户的名字在执行时才向平台查询
type authorArg struct {
	user    *model.UserID
	virtual *string
}

type contentMutationArg struct {
	Author  json.RawMessage `json:"author"`
	Content json.RawMessage `json:"content"`
}

type sedArg struct {
	Capture string `json:"capture"`
	Replace string `json:"replace"`
}

func parseContentMutation(s string) (*authorArg, *model.ContentTextMutation, error) {
	var a contentMutationArg
	if err := decodeStrict(s, &a); err != nil {
		return nil, nil, err
	}

	var author *authorArg
	if !absent(a.Author) {
		v, err := loose(a.Author)
		if err != nil {
			return nil, nil, fmt.Errorf("author: %w", err)
		}
		variant, payload, err := decode.Single(v)
		if err != nil {
			return nil, nil, fmt.Errorf("author: %w", err)
		}
		switch variant {
		case "User":
			id, err := readUserID(payload)
			if err != nil {
				return nil, nil, fmt.Errorf("author.User: %w", err)
			}
			author = &authorArg{user: &id}
		case "Virtual":
			name, err := decode.ReadString(payload)
			if err != nil {
				return nil, nil, fmt.Errorf("author.Virtual: %w", err)
			}
			author = &authorArg{virtual: &name}
		default:
			return nil, nil, fmt.Errorf("author: unknown variant %q", variant)
		}
	}

	var text *model.ContentTextMutation
	if !absent(a.Content) {
		v, err := loose(a.Content)
		if err != nil {
			return nil, nil, fmt.Errorf("content: %w", err)
		}
		variant, payload, err := decode.Single(v)
		if err != nil {
			return nil, nil, fmt.Errorf("content: %w", err)
		}
		switch variant {
		case "Complete":
			s, err := decode.ReadString(payload)
			if err != nil {
				return nil, nil, fmt.Errorf("content.Complete: %w", err)
			}
			m := model.CompleteText(s)
			text = &m
		case "Sed":
			sed, err := decode.Decode[sedArg](payload)
			if err != nil {
				return nil, nil, fmt.Errorf("content.Sed: %w", err)
			}
			if sed.Capture == "" {
				return nil, nil, fmt.Errorf("content.Sed: capture is required")
			}
			m, err := model.SedText(sed.Capture, sed.Replace)
			if err != nil {
				return nil, nil, fmt.Errorf("content.Sed: %w", err)
			}
			text = &m
		default:
			return nil, nil, fmt.Errorf("content: unknown variant %q", variant)
		}
	}
	return author, text, nil
}
