package middleware

import (
	"github.com/gin-gonic/gin"
)

// MiddlewareManager 把一组中间件合成一个挂到 Engine 上
type MiddlewareManager struct {
	mids []gin.HandlerFunc
}

// NewManager 创建新的实例
func NewManager(mids ...gin.HandlerFunc) *MiddlewareManager {
	return &MiddlewareManager{mids: mids}
}

// Use 返回一个 gin.HandlerFunc，作为总控挂载到 Engine 上
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range m.mids {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
