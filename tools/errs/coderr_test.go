package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeErrorIsByCode(t *testing.T) {
	err := ErrNotFound.WrapMsg("content", "id", "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrRule))

	ce, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, NotFoundError, ce.Code)
	assert.Equal(t, "content, id=abc", ce.Detail)
	assert.Equal(t, "1002 not found content, id=abc", ce.Error())
}

func TestWrapMsgKeepsCause(t *testing.T) {
	base := errors.New("boom")
	err := WrapMsg(base, "insert user", "id", 1, "dangling")
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "insert user, id=1, dangling=MISSING")
	assert.Nil(t, Wrap(nil))
	assert.Nil(t, WrapMsg(nil, "x"))
}

func TestErrPanic(t *testing.T) {
	assert.Nil(t, ErrPanic(nil))
	err := ErrPanic("bad")
	ce, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ServerInternalError, ce.Code)
	assert.Equal(t, "bad", ce.Detail)
}
