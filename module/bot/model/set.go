package model

// 集合字段以切片保存（保持插入顺序，分页展示稳定），以下函数保证元素唯一。

// Contains 判断集合是否包含 v
func Contains[T comparable](set []T, v T) bool {
	for _, e := range set {
		if e == v {
			return true
		}
	}
	return false
}

// ContainsAll 判断 sub 是否为 set 的子集
func ContainsAll[T comparable](set, sub []T) bool {
	for _, v := range sub {
		if !Contains(set, v) {
			return false
		}
	}
	return true
}

// InsertMember 不存在时追加；返回新集合与是否插入
func InsertMember[T comparable](set []T, v T) ([]T, bool) {
	if Contains(set, v) {
		return set, false
	}
	return append(set, v), true
}

// DeleteMember 存在时删除；返回新集合与是否删除
func DeleteMember[T comparable](set []T, v T) ([]T, bool) {
	for i, e := range set {
		if e == v {
			out := make([]T, 0, len(set)-1)
			out = append(out, set[:i]...)
			return append(out, set[i+1:]...), true
		}
	}
	return set, false
}

func cloneSet[T any](set []T) []T {
	if set == nil {
		return nil
	}
	out := make([]T, len(set))
	copy(out, set)
	return out
}
