package presenter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"PBot/module/bot/model"
	"PBot/module/bot/usecase"
	"PBot/tools/errs"
)

// 面板颜色
const (
	ColorSuccess = 0x2ECC71
	ColorInfo    = 0x3498DB
	ColorWarn    = 0xF1C40F
	ColorError   = 0xE74C3C
)

// Field 键值字段
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// View 与渠道无关的结果面板，由网关渲染为 embed
type View struct {
	Title       string
	Color       int
	Description string
	Fields      []Field
}

const timeLayout = time.RFC3339

func authorLine(a model.Author) string {
	if a.IsUser() {
		return fmt.Sprintf("%s (%s)", a.DisplayName(), a.ID.Mention())
	}
	return a.Name + " (virtual)"
}

func postedLine(p model.Posted) string {
	return fmt.Sprintf("%s (%s)", p.DisplayName(), p.ID.Mention())
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// User 单个用户
func User(title string, u model.User) View {
	return View{
		Title: title,
		Color: ColorSuccess,
		Fields: []Field{
			{Name: "User", Value: u.ID.Mention(), Inline: true},
			{Name: "ID", Value: u.ID.String(), Inline: true},
			{Name: "Admin", Value: yesNo(u.Admin), Inline: true},
			{Name: "Sub admin", Value: yesNo(u.SubAdmin), Inline: true},
			{Name: "Posted", Value: strconv.Itoa(len(u.Posted)), Inline: true},
			{Name: "Bookmarks", Value: strconv.Itoa(len(u.Bookmark)), Inline: true},
		},
	}
}

// Content 单条投稿
func Content(title string, c model.Content) View {
	edited := "never"
	if n := len(c.Edited); n > 0 {
		edited = fmt.Sprintf("%d time(s), last %s", n, c.Edited[n-1].Format(timeLayout))
	}
	return View{
		Title:       title,
		Color:       ColorSuccess,
		Description: c.Content,
		Fields: []Field{
			{Name: "ID", Value: c.ID.String()},
			{Name: "Author", Value: authorLine(c.Author), Inline: true},
			{Name: "Posted by", Value: postedLine(c.Posted), Inline: true},
			{Name: "Likes", Value: strconv.Itoa(len(c.Liked)), Inline: true},
			{Name: "Pins", Value: strconv.Itoa(len(c.Pinned)), Inline: true},
			{Name: "Created", Value: c.Created.Format(timeLayout), Inline: true},
			{Name: "Edited", Value: edited, Inline: true},
		},
	}
}

func pageFooter[T any](p usecase.Page[T]) string {
	return fmt.Sprintf("page %d/%d, %d total", p.Page, max(p.Pages, 1), p.Total)
}

// Users 分页用户：一个汇总面板加每个用户一个面板
func Users(p usecase.Page[model.User]) []View {
	views := []View{{Title: "Users", Color: ColorInfo, Description: pageFooter(p)}}
	for _, it := range p.Items {
		views = append(views, User(fmt.Sprintf("#%d", it.Index), it.Item))
	}
	return views
}

// Contents 分页投稿
func Contents(p usecase.Page[model.Content]) []View {
	views := []View{{Title: "Contents", Color: ColorInfo, Description: pageFooter(p)}}
	for _, it := range p.Items {
		views = append(views, Content(fmt.Sprintf("#%d", it.Index), it.Item))
	}
	return views
}

// UserList 成员列表（点赞 / 置顶），单个面板
func UserList(title string, p usecase.Page[model.UserID]) View {
	lines := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, fmt.Sprintf("%d. %s", it.Index, it.Item.Mention()))
	}
	return listView(title, lines, pageFooter(p))
}

// ContentList 收藏列表
func ContentList(title string, p usecase.Page[model.ContentID]) View {
	lines := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, fmt.Sprintf("%d. `%s`", it.Index, it.Item))
	}
	return listView(title, lines, pageFooter(p))
}

func listView(title string, lines []string, footer string) View {
	body := "(empty)"
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	return View{
		Title:       title,
		Color:       ColorInfo,
		Description: body,
		Fields:      []Field{{Name: "Page", Value: footer}},
	}
}

// Toggle like / unlike / pin / unpin
func Toggle(out usecase.ToggleMemberOutput) View {
	verb := map[model.ContentField][2]string{
		model.ContentFieldLiked:  {"Liked", "Unliked"},
		model.ContentFieldPinned: {"Pinned", "Unpinned"},
	}[out.Field]
	title := verb[1]
	if out.Added {
		title = verb[0]
	}
	return View{
		Title: title,
		Color: ColorSuccess,
		Fields: []Field{
			{Name: "Content", Value: out.ContentID.String()},
			{Name: "User", Value: out.UserID.Mention(), Inline: true},
		},
	}
}

// Bookmark 收藏 / 取消收藏
func Bookmark(out usecase.BookmarkOutput, added bool) View {
	title := "Unbookmarked"
	if added {
		title = "Bookmarked"
	}
	return View{
		Title: title,
		Color: ColorSuccess,
		Fields: []Field{
			{Name: "Content", Value: out.ContentID.String()},
			{Name: "User", Value: out.UserID.Mention(), Inline: true},
		},
	}
}

// Help 命令用法
func Help(usage string) View {
	return View{Title: "Usage", Color: ColorInfo, Description: "```\n" + strings.TrimSpace(usage) + "\n```"}
}

var errorTitles = map[int]string{
	errs.ParseError:          "Parse error",
	errs.NotFoundError:       "Not found",
	errs.RuleViolation:       "Rule violation",
	errs.PermissionDenied:    "Not permitted",
	errs.RepositoryError:     "Repository error",
	errs.OutOfRangeError:     "Out of range",
	errs.TimeoutError:        "Timed out",
	errs.ServerInternalError: "Internal error",
}

// Error 错误面板；Detail 为空时用分类自带的消息
func Error(e errs.CodeError) View {
	title, ok := errorTitles[e.Code]
	if !ok {
		title = "Error"
	}
	desc := e.Detail
	if desc == "" {
		desc = e.Msg
	}
	color := ColorError
	if e.Code == errs.RuleViolation || e.Code == errs.OutOfRangeError {
		color = ColorWarn
	}
	return View{Title: title, Color: color, Description: desc}
}
