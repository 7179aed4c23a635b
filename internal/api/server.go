package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"knowgate/internal/cache"
	"knowgate/internal/domain/route"
	applog "knowgate/internal/platform/log"
	"knowgate/internal/platform/metrics"
)

// ServerConfig 服务配置
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RouteTimeout time.Duration // 单次路由请求超时
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		RouteTimeout: 30 * time.Second,
	}
}

// Server HTTP 服务器
type Server struct {
	config    *ServerConfig
	router    *route.Router
	store     *cache.Store
	scheduler *cache.Scheduler
	traces    TraceReader
	metrics   *metrics.Metrics
	httpSrv   *http.Server
}

// NewServer 创建服务器
func NewServer(config *ServerConfig, router *route.Router, store *cache.Store, scheduler *cache.Scheduler) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:    config,
		router:    router,
		store:     store,
		scheduler: scheduler,
	}
}

// SetTraceReader 设置追踪查询接口（可选，仅在 PostgreSQL 配置时启用）
func (s *Server) SetTraceReader(tr TraceReader) {
	s.traces = tr
}

// SetMetrics 设置指标（可选）
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 Knowledge routing API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler 返回 HTTP Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	routeHandler := NewRouteHandler(s.router, s.store, s.scheduler, s.config.RouteTimeout)
	routeHandler.traces = s.traces
	routeHandler.RegisterRoutes(r)

	return r
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
