package errs

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrPanic 把 recover() 的值转为带栈的 CodeError
func ErrPanic(r any) error {
	if r == nil {
		return nil
	}
	return pkgerrors.WithStack(ErrInternal.WithDetail(fmt.Sprint(r)))
}
