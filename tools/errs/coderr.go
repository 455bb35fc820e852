package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// 面向用户的错误分类
const (
	ParseError          = 1001 // 命令/JSON/正则/UUID 解析失败
	NotFoundError       = 1002 // 用户未注册 / 找不到投稿
	RuleViolation       = 1003 // 重复注册、重复点赞等业务规则
	PermissionDenied    = 1004 // 权限不足（刻意不区分原因）
	RepositoryError     = 1005 // 仓储/后端故障
	OutOfRangeError     = 1006 // 分页越界
	TimeoutError        = 1007 // 串行区内超时
	ServerInternalError = 1500 // panic 等未预期错误
)

var (
	ErrParse            = NewCodeError(ParseError, "parse error")
	ErrNotFound         = NewCodeError(NotFoundError, "not found")
	ErrRule             = NewCodeError(RuleViolation, "rule violation")
	ErrPermissionDenied = NewCodeError(PermissionDenied, "not permitted")
	ErrRepository       = NewCodeError(RepositoryError, "repository error")
	ErrOutOfRange       = NewCodeError(OutOfRangeError, "page out of range")
	ErrTimeout          = NewCodeError(TimeoutError, "timed out")
	ErrInternal         = NewCodeError(ServerInternalError, "internal error")
)

func NewCodeError(code int, msg string) CodeError {
	return CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

// WithDetail 追加细节，返回新值
func (e CodeError) WithDetail(detail string) CodeError {
	var d string
	if e.Detail == "" {
		d = detail
	} else {
		d = e.Detail + ", " + detail
	}
	return CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

// Wrap 附带调用栈
func (e CodeError) Wrap() error {
	return pkgerrors.WithStack(e)
}

// WrapMsg 追加 msg + kv 到 Detail 并附带调用栈
func (e CodeError) WrapMsg(msg string, kv ...any) error {
	if msg != "" || len(kv) > 0 {
		e = e.WithDetail(toString(msg, kv))
	}
	return pkgerrors.WithStack(e)
}

// Is 同 code 即视为同一类错误
func (e CodeError) Is(target error) bool {
	var other CodeError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func (e CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// CodeOf 取出错误链中的 CodeError
func CodeOf(err error) (CodeError, bool) {
	var ce CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return CodeError{}, false
}

// New 带调用栈的普通错误，kv 以 "k=v" 形式拼接
func New(msg string, kv ...any) error {
	return pkgerrors.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprint(kv[i]))
		b.WriteString("=")
		if i+1 < len(kv) {
			b.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			b.WriteString("MISSING")
		}
	}
	return b.String()
}
