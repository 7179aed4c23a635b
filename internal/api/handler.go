package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"knowgate/internal/cache"
	"knowgate/internal/domain/route"
)

// TraceReader 路由追踪查询接口
type TraceReader interface {
	RecentTraces(ctx context.Context, limit int) ([]route.RouteTrace, error)
}

// RouteHandler 知识路由 API 处理器
type RouteHandler struct {
	router       *route.Router
	store        *cache.Store
	scheduler    *cache.Scheduler
	traces       TraceReader
	routeTimeout time.Duration
}

// NewRouteHandler 创建处理器
func NewRouteHandler(router *route.Router, store *cache.Store, scheduler *cache.Scheduler, routeTimeout time.Duration) *RouteHandler {
	if routeTimeout <= 0 {
		routeTimeout = 30 * time.Second
	}
	return &RouteHandler{
		router:       router,
		store:        store,
		scheduler:    scheduler,
		routeTimeout: routeTimeout,
	}
}

// RegisterRoutes 注册路由
func (h *RouteHandler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/route", h.Route)
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/invalidate", h.CacheInvalidate)
		r.Post("/cache/clear", h.CacheClear)
		r.Post("/invalidation/run", h.RunInvalidation)
		if h.traces != nil {
			r.Get("/traces/recent", h.RecentTraces)
		}
	})
}

// Route 路由一条查询
func (h *RouteHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query   string            `json:"query"`
		Context map[string]string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.routeTimeout)
	defer cancel()

	result := h.router.Route(ctx, req.Query, req.Context)
	writeJSON(w, http.StatusOK, result)
}

// CacheStats 缓存统计
func (h *RouteHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// CacheInvalidate 按子串失效缓存条目
func (h *RouteHandler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Pattern) == "" {
		writeError(w, http.StatusBadRequest, "pattern is required")
		return
	}

	removed := h.store.InvalidateMatching(req.Pattern)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// CacheClear 清空缓存及持久化快照
func (h *RouteHandler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// RunInvalidation 立即执行一轮按类别失效
func (h *RouteHandler) RunInvalidation(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "invalidation scheduler not configured")
		return
	}
	removed := h.scheduler.RunAll()
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// RecentTraces 最近的路由追踪
func (h *RouteHandler) RecentTraces(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	traces, err := h.traces.RecentTraces(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load traces")
		return
	}
	writeJSON(w, http.StatusOK, traces)
}
