package cache

import (
	"context"
	"sync"
	"time"

	"knowgate/internal/domain/route"
	applog "knowgate/internal/platform/log"
	"knowgate/internal/platform/metrics"
)

// ── InvalidationScheduler ────────────────────────────────────

// 各类别默认失效关键词：命中查询文本即被清除
var defaultInvalidationPatterns = map[route.Category][]string{
	route.CategorySport:   {"match", "score", "result", "championship", "league"},
	route.CategoryFinance: {"price", "bitcoin", "crypto", "stock", "market"},
	route.CategoryNews:    {"news", "breaking", "urgent"},
	route.CategoryWeather: {"weather", "temperature", "forecast"},
}

// 各类别默认失效频率：变化越快的领域窗口越短
var defaultInvalidationFrequencies = map[route.Category]time.Duration{
	route.CategoryNews:    5 * time.Minute,
	route.CategoryFinance: 10 * time.Minute,
	route.CategorySport:   15 * time.Minute,
	route.CategoryWeather: 30 * time.Minute,
}

// categoryState 每个类别的上次失效时间
type categoryState struct {
	lastInvalidatedAt time.Time
	frequency         time.Duration
}

// Scheduler 按类别的主动缓存失效调度器。
// 请求路径上机会性触发，同时由外部定时器周期运行。
type Scheduler struct {
	mu      sync.Mutex
	store   *Store
	states  map[route.Category]*categoryState
	pattern map[route.Category][]string
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewScheduler 创建调度器，频率为固定配置（分钟），nil 使用默认值
func NewScheduler(store *Store, frequencies map[route.Category]time.Duration) *Scheduler {
	states := make(map[route.Category]*categoryState, len(defaultInvalidationFrequencies))
	for cat, freq := range defaultInvalidationFrequencies {
		states[cat] = &categoryState{frequency: freq}
	}
	for cat, freq := range frequencies {
		if freq > 0 {
			if st, ok := states[cat]; ok {
				st.frequency = freq
			} else {
				states[cat] = &categoryState{frequency: freq}
			}
		}
	}
	return &Scheduler{
		store:   store,
		states:  states,
		pattern: defaultInvalidationPatterns,
		now:     time.Now,
	}
}

// SetMetrics 设置指标收集（可选）
func (s *Scheduler) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock 注入时钟（测试用）
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// ShouldInvalidate 距上次失效是否已超过该类别的频率窗口。
// 未知类别永远返回 false，从未失效过的已知类别返回 true。
func (s *Scheduler) ShouldInvalidate(category route.Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldInvalidateLocked(category)
}

func (s *Scheduler) shouldInvalidateLocked(category route.Category) bool {
	st, ok := s.states[category]
	if !ok {
		return false
	}
	if st.lastInvalidatedAt.IsZero() {
		return true
	}
	return s.now().Sub(st.lastInvalidatedAt) >= st.frequency
}

// InvalidateIfDue 到期则按该类别的关键词逐一清除缓存并返回清除总数。
// 无论是否清除到条目都更新时间戳，避免空缓存时反复扫描。
func (s *Scheduler) InvalidateIfDue(category route.Category) int {
	s.mu.Lock()
	if !s.shouldInvalidateLocked(category) {
		s.mu.Unlock()
		return 0
	}
	st := s.states[category]
	st.lastInvalidatedAt = s.now()
	patterns := s.pattern[category]
	s.mu.Unlock()

	total := 0
	for _, p := range patterns {
		total += s.store.InvalidateMatching(p)
	}

	s.metrics.RecordInvalidation(string(category))
	if total > 0 {
		applog.Info("[Invalidation] Category invalidated", "category", category, "removed", total)
	}
	return total
}

// RunAll 对所有已知类别执行一轮失效检查
func (s *Scheduler) RunAll() int {
	s.mu.Lock()
	categories := make([]route.Category, 0, len(s.states))
	for cat := range s.states {
		categories = append(categories, cat)
	}
	s.mu.Unlock()

	total := 0
	for _, cat := range categories {
		total += s.InvalidateIfDue(cat)
	}
	return total
}

// Run 以固定间隔周期性执行 RunAll，直到 ctx 取消。
// 在独立 goroutine 中运行，独立于请求路径。
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.RunAll(); n > 0 {
				applog.Info("[Invalidation] Periodic sweep", "removed", n)
			}
		}
	}
}
