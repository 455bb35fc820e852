package decode

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sedPayload struct {
	Capture string `json:"capture"`
	Replace string `json:"replace"`
}

func loose(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestDecodeStrict(t *testing.T) {
	p, err := Decode[sedPayload](loose(t, `{"capture":"a+","replace":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, sedPayload{Capture: "a+", Replace: "b"}, *p)

	_, err = Decode[sedPayload](loose(t, `{"capture":"a","replace":"b","extra":1}`))
	assert.Error(t, err)

	_, err = Decode[sedPayload](nil)
	assert.Error(t, err)
}

func TestDecodeNumbers(t *testing.T) {
	type page struct {
		N uint32 `json:"n"`
		I int64  `json:"i"`
	}
	p, err := Decode[page](loose(t, `{"n":3,"i":-4}`))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), p.N)
	assert.Equal(t, int64(-4), p.I)
}

func TestSingle(t *testing.T) {
	k, v, err := Single(loose(t, `{"Virtual":"anon"}`))
	require.NoError(t, err)
	assert.Equal(t, "Virtual", k)
	assert.Equal(t, "anon", v)

	_, _, err = Single(loose(t, `{"A":1,"B":2}`))
	assert.Error(t, err)
	_, _, err = Single(loose(t, `"x"`))
	assert.Error(t, err)
}

func TestReadUint64(t *testing.T) {
	n, err := ReadUint64(json.Number("123456789012345678"))
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789012345678), n)

	n, err = ReadUint64("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	_, err = ReadUint64(json.Number("-1"))
	assert.Error(t, err)
	_, err = ReadUint64(true)
	assert.Error(t, err)
}
