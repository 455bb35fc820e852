package ids

import (
	"strconv"
	"sync/atomic"
)

// Counter 进程内递增的任务编号，只用于日志关联
//
// 由 main 创建并注入到消息入口，业务代码不直接持有。
type Counter struct {
	prefix string
	n      atomic.Uint64
}

func NewCounter(prefix string) *Counter {
	return &Counter{prefix: prefix}
}

// Next 从 1 开始
func (c *Counter) Next() uint64 {
	return c.n.Add(1)
}

// NextString 形如 "task-42"
func (c *Counter) NextString() string {
	return c.prefix + strconv.FormatUint(c.Next(), 10)
}
