package safe

import (
	"fmt"
	"reflect"

	"PBot/logger"
	"PBot/tools/errs"

	"go.uber.org/zap"
)

// MustNotNil panics if the given value is nil.
// Useful for enforcing required fields during struct initialization.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// Recover 在 defer 中调用；把 panic 转成带栈的错误写日志，fields 用来标识出事的任务
func Recover(fields ...zap.Field) {
	if r := recover(); r != nil {
		err := errs.ErrPanic(r)
		logger.Error("panic recovered", append(fields, zap.Error(err), zap.Stack("stack"))...)
	}
}

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(f func(), fields ...zap.Field) {
	go func() {
		defer Recover(fields...)
		f()
	}()
}
