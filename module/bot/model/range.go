package model

import (
	"fmt"
	"strconv"
	"strings"
)

// BoundKind 区间端点类型
type BoundKind int

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound 区间端点
type Bound struct {
	Kind  BoundKind
	Value uint32
}

// Range 计数过滤区间，作用于集合长度
//
//	N      等于 N
//	N..    至少 N
//	..N    小于 N
//	..=N   至多 N
//	N..M   [N, M)
//	N..=M  [N, M]
//	..     任意
type Range struct {
	Lower Bound
	Upper Bound
}

// Exactly 单点区间
func Exactly(n uint32) Range {
	return Range{Lower: Bound{Included, n}, Upper: Bound{Included, n}}
}

// ParseRange 解析文本区间，端点两侧允许空白
func ParseRange(s string) (Range, error) {
	src := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("invalid range %q: empty", src)
	}

	idx := strings.Index(s, "..")
	if idx < 0 {
		n, err := parseBoundValue(s)
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", src, err)
		}
		return Exactly(n), nil
	}

	var r Range
	left := strings.TrimSpace(s[:idx])
	right := strings.TrimSpace(s[idx+2:])

	if left != "" {
		n, err := parseBoundValue(left)
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", src, err)
		}
		r.Lower = Bound{Included, n}
	}

	switch {
	case strings.HasPrefix(right, "="):
		right = strings.TrimSpace(right[1:])
		if right == "" {
			return Range{}, fmt.Errorf("invalid range %q: inclusive upper bound requires a value", src)
		}
		n, err := parseBoundValue(right)
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", src, err)
		}
		r.Upper = Bound{Included, n}
	case right != "":
		n, err := parseBoundValue(right)
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", src, err)
		}
		r.Upper = Bound{Excluded, n}
	}
	return r, nil
}

func parseBoundValue(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bound %q is not an unsigned 32-bit integer", s)
	}
	return uint32(n), nil
}

// Contains 判断 n 是否落在区间内
func (r Range) Contains(n uint32) bool {
	switch r.Lower.Kind {
	case Included:
		if n < r.Lower.Value {
			return false
		}
	case Excluded:
		if n <= r.Lower.Value {
			return false
		}
	}
	switch r.Upper.Kind {
	case Included:
		if n > r.Upper.Value {
			return false
		}
	case Excluded:
		if n >= r.Upper.Value {
			return false
		}
	}
	return true
}

// ContainsLen 对集合长度做判断
func (r Range) ContainsLen(n int) bool {
	if n < 0 {
		return false
	}
	if uint64(n) > uint64(^uint32(0)) {
		return r.Upper.Kind == Unbounded
	}
	return r.Contains(uint32(n))
}

func (r Range) String() string {
	if r.Lower.Kind == Included && r.Upper.Kind == Included && r.Lower.Value == r.Upper.Value {
		return strconv.FormatUint(uint64(r.Lower.Value), 10)
	}
	var b strings.Builder
	if r.Lower.Kind != Unbounded {
		b.WriteString(strconv.FormatUint(uint64(r.Lower.Value), 10))
	}
	b.WriteString("..")
	switch r.Upper.Kind {
	case Included:
		b.WriteString("=")
		b.WriteString(strconv.FormatUint(uint64(r.Upper.Value), 10))
	case Excluded:
		b.WriteString(strconv.FormatUint(uint64(r.Upper.Value), 10))
	}
	return b.String()
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Range) UnmarshalText(b []byte) error {
	v, err := ParseRange(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
