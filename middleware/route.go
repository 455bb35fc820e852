package middleware

import (
	"github.com/gin-gonic/gin"
)

// 配置选项
type RouteOpt struct {
	NoLog bool // 探针类接口不记访问日志
}

// 封装 GET
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.NoLog {
		r.GET(path, handler)
		return
	}
	r.GET(path, AccessLog(), handler)
}
