package controller

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"PBot/module/bot/model"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
)

const rootUse = "pbot"

var verbs = map[string]struct{}{"user": {}, "content": {}}

// 平台提及 <@123> 里的尖括号会被 shell 规则当成重定向，切分前先换成占位符
var (
	mentionRe = regexp.MustCompile(`<(@!?\d+)>`)
	unmask    = strings.NewReplacer("\uE000", "<", "\uE001", ">")
)

func split(text string) ([]string, error) {
	text = mentionRe.ReplaceAllString(text, "\uE000$1\uE001")
	p := shellwords.NewParser()
	tokens, err := p.Parse(text)
	if err != nil {
		return nil, err
	}
	if runes := []rune(text); p.Position >= 0 && p.Position < len(runes) {
		return nil, fmt.Errorf("unexpected %q, quote arguments that contain shell operators", string(runes[p.Position]))
	}
	for i := range tokens {
		tokens[i] = unmask.Replace(tokens[i])
	}
	return tokens, nil
}

// tokenize 按 shell 规则切分；ok=false 表示不是发给机器人的消息
func (c *Controller) tokenize(text string) (tokens []string, ok bool, err error) {
	text = strings.TrimSpace(text)
	if c.prefix != "" {
		if !strings.HasPrefix(text, c.prefix) {
			return nil, false, nil
		}
		text = strings.TrimSpace(strings.TrimPrefix(text, c.prefix))
	}
	if text == "" {
		return nil, false, nil
	}
	tokens, err = split(text)
	if err != nil {
		if c.prefix == "" {
			// 没有前缀时只认 user / content 开头的消息
			fields := strings.Fields(text)
			if _, known := verbs[fields[0]]; !known || !resolves(fields) {
				return nil, false, nil
			}
		}
		return nil, true, err
	}
	if len(tokens) == 0 {
		return nil, false, nil
	}
	if c.prefix == "" {
		if _, known := verbs[tokens[0]]; !known || !resolves(tokens) {
			return nil, false, nil
		}
	}
	return tokens, true, nil
}

// resolves 没有前缀时第二个词也要是已知子命令或 flag，"user profile is great" 这类聊天直接忽略
func resolves(tokens []string) bool {
	if len(tokens) < 2 || strings.HasPrefix(tokens[1], "-") {
		return true
	}
	root := newRoot(&parsed{})
	cmd, _, err := root.Find(tokens[:2])
	return err == nil && cmd.Parent() != root
}

// parsed 解析结果：cmd 为 nil 时 help 中是用法文本
type parsed struct {
	cmd  command
	help string
}

func newRoot(out *parsed) *cobra.Command {
	root := &cobra.Command{
		Use:           rootUse,
		Short:         "social content bot",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(userCommand(out), contentCommand(out))
	return root
}

// parse 每条消息构造一棵新的命令树，flag 状态不跨消息共享
func parse(tokens []string) (*parsed, error) {
	out := &parsed{}
	var buf bytes.Buffer

	root := newRoot(out)
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	root.SetArgs(tokens)

	if err := root.Execute(); err != nil {
		return nil, err
	}
	if out.cmd == nil {
		out.help = buf.String()
		if out.help == "" {
			out.help = root.UsageString()
		}
	}
	return out, nil
}

// group 只有子命令的节点：无参数时打印用法，未知子命令报错
func group(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
	}
}

func userCommand(out *parsed) *cobra.Command {
	user := group("user", "manage registered users")

	user.AddCommand(
		&cobra.Command{
			Use:   "register",
			Short: "register yourself",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				out.cmd = &userRegister{}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get [USER_ID]",
			Short: "show a user, yourself by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := optionalUserID(args, 0)
				if err != nil {
					return err
				}
				out.cmd = &userGet{id: id}
				return nil
			},
		},
		&cobra.Command{
			Use:   "gets PAGE [QUERY_JSON]",
			Short: "list users matching a query",
			Long: `list users matching a query, 5 per page

QUERY_JSON keys (all optional):
  bookmark      ["<content id>", ...]  must contain all of them
  bookmark_num  "<range>"              e.g. "3", "2..", "..=4", "1..3"
  posted        ["<content id>", ...]
  posted_num    "<range>"`,
			Args: cobra.RangeArgs(1, 2),
			RunE: func(_ *cobra.Command, args []string) error {
				page, err := parsePage(args[0])
				if err != nil {
					return err
				}
				q, err := parseUserQuery(argOr(args, 1, "{}"))
				if err != nil {
					return err
				}
				out.cmd = &userGets{page: page, query: q}
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit USER_ID MUTATION_JSON",
			Short: "change user flags (admin only)",
			Long: `change user flags (admin only)

MUTATION_JSON keys (all optional):
  admin      true|false
  sub_admin  true|false`,
			Args: cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := model.ParseUserID(args[0])
				if err != nil {
					return err
				}
				mut, err := parseUserMutation(args[1])
				if err != nil {
					return err
				}
				out.cmd = &userEdit{id: id, mutation: mut}
				return nil
			},
		},
		&cobra.Command{
			Use:   "unregister [USER_ID]",
			Short: "remove a user, yourself by default; others need admin",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := optionalUserID(args, 0)
				if err != nil {
					return err
				}
				out.cmd = &userUnregister{id: id}
				return nil
			},
		},
		bookmarkCommand(out),
	)
	return user
}

func bookmarkCommand(out *parsed) *cobra.Command {
	bookmark := group("bookmark", "manage your bookmarks")
	toggle := func(use string, add bool) *cobra.Command {
		return &cobra.Command{
			Use:  use + " CONTENT_ID",
			Args: cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := model.ParseContentID(args[0])
				if err != nil {
					return err
				}
				out.cmd = &userBookmark{content: id, add: add}
				return nil
			},
		}
	}
	do, undo := toggle("do", true), toggle("undo", false)
	do.Short, undo.Short = "bookmark a content", "remove a bookmark"

	bookmark.AddCommand(do, undo, &cobra.Command{
		Use:   "show PAGE [USER_ID]",
		Short: "list bookmarks, 20 per page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			page, err := parsePage(args[0])
			if err != nil {
				return err
			}
			id, err := optionalUserID(args, 1)
			if err != nil {
				return err
			}
			out.cmd = &userBookmarkShow{page: page, id: id}
			return nil
		},
	})
	return bookmark
}

func contentCommand(out *parsed) *cobra.Command {
	content := group("content", "post and browse contents")

	var (
		virt   string
		userID string
		text   string
	)
	post := &cobra.Command{
		Use:   "post (--virt NAME | --user-id USER_ID) --content TEXT",
		Short: "post a content attributed to a user or a virtual name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := &contentPost{text: text}
			if cmd.Flags().Changed("virt") {
				p.author = authorArg{virtual: &virt}
			} else {
				id, err := model.ParseUserID(userID)
				if err != nil {
					return err
				}
				p.author = authorArg{user: &id}
			}
			out.cmd = p
			return nil
		},
	}
	post.Flags().StringVar(&virt, "virt", "", "virtual author name")
	post.Flags().StringVar(&userID, "user-id", "", "author user id")
	post.Flags().StringVar(&text, "content", "", "content text")
	post.MarkFlagsMutuallyExclusive("virt", "user-id")
	post.MarkFlagsOneRequired("virt", "user-id")
	_ = post.MarkFlagRequired("content")

	content.AddCommand(
		post,
		&cobra.Command{
			Use:   "get CONTENT_ID",
			Short: "show a content",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := model.ParseContentID(args[0])
				if err != nil {
					return err
				}
				out.cmd = &contentGet{id: id}
				return nil
			},
		},
		&cobra.Command{
			Use:   "gets PAGE [QUERY_JSON]",
			Short: "list contents matching a query",
			Long: `list contents matching a query, 5 per page

QUERY_JSON keys (all optional):
  author      {"UserId": id} | {"UserName": re} | {"UserNick": re} | {"Virtual": re} | {"Any": re}
  posted      same as author, without Virtual
  content     "<regex>"
  liked       [user id, ...]  must contain all of them
  liked_num   "<range>"
  pinned      [user id, ...]
  pinned_num  "<range>"`,
			Args: cobra.RangeArgs(1, 2),
			RunE: func(_ *cobra.Command, args []string) error {
				page, err := parsePage(args[0])
				if err != nil {
					return err
				}
				q, err := parseContentQuery(argOr(args, 1, "{}"))
				if err != nil {
					return err
				}
				out.cmd = &contentGets{page: page, query: q}
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit CONTENT_ID MUTATION_JSON",
			Short: "edit a content (poster, admin or sub admin)",
			Long: `edit a content (poster, admin or sub admin)

MUTATION_JSON keys (all optional):
  author   {"User": id} | {"Virtual": name}
  content  {"Complete": text} | {"Sed": {"capture": re, "replace": text}}`,
			Args: cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := model.ParseContentID(args[0])
				if err != nil {
					return err
				}
				author, text, err := parseContentMutation(args[1])
				if err != nil {
					return err
				}
				out.cmd = &contentEdit{id: id, author: author, text: text}
				return nil
			},
		},
		&cobra.Command{
			Use:   "withdraw CONTENT_ID",
			Short: "delete a content (poster, admin or sub admin)",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := model.ParseContentID(args[0])
				if err != nil {
					return err
				}
				out.cmd = &contentWithdraw{id: id}
				return nil
			},
		},
		memberCommand(out, "like", model.ContentFieldLiked),
		memberCommand(out, "pin", model.ContentFieldPinned),
	)
	return content
}

// memberCommand like / pin 共用的 do | undo | show
func memberCommand(out *parsed, use string, field model.ContentField) *cobra.Command {
	member := group(use, use+" contents")
	toggle := func(sub string, add bool) *cobra.Command {
		return &cobra.Command{
			Use:   sub + " CONTENT_ID",
			Short: fmt.Sprintf("%s %s", sub, use),
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := model.ParseContentID(args[0])
				if err != nil {
					return err
				}
				out.cmd = &contentToggle{id: id, field: field, add: add}
				return nil
			},
		}
	}
	member.AddCommand(toggle("do", true), toggle("undo", false), &cobra.Command{
		Use:   "show PAGE CONTENT_ID",
		Short: "list users, 20 per page",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			page, err := parsePage(args[0])
			if err != nil {
				return err
			}
			id, err := model.ParseContentID(args[1])
			if err != nil {
				return err
			}
			out.cmd = &contentMembers{id: id, page: page, field: field}
			return nil
		},
	})
	return member
}

func parsePage(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid page %q: must be a positive integer", s)
	}
	return uint32(n), nil
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

func optionalUserID(args []string, i int) (*model.UserID, error) {
	if i >= len(args) {
		return nil, nil
	}
	id, err := model.ParseUserID(args[i])
	if err != nil {
		return nil, err
	}
	return &id, nil
}
