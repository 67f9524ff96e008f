package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPService 面向支付 API 的 HTTP 服务封装。
// 创建支付的请求体很小，读超时收紧以挡住慢速连接占用。
type HTTPService struct {
	name   string
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		name: "api",
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return s.name
}

// Start 启动监听；正常关闭不算错误
func (s *HTTPService) Start(ctx context.Context) error {
	if s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止服务
func (s *HTTPService) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
