package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"PBot/logger"
	"PBot/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 就绪检查对象（仓储后端）
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter /healthz 只要进程活着就 200；/readyz 需要后端可达
func NewRouter(backend string, p Pinger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.NewManager(middleware.Recovery()).Use())

	middleware.GET(r, "/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}, middleware.RouteOpt{NoLog: true})

	middleware.GET(r, "/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", zap.String("backend", backend), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "backend": backend})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "backend": backend})
	}, middleware.RouteOpt{})
	return r
}

// Server 包一层 http.Server，方便优雅退出
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run 阻塞直到 ctx 结束，然后在 5s 内关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
