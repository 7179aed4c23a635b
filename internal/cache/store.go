package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"knowgate/internal/domain/route"
	applog "knowgate/internal/platform/log"
	"knowgate/internal/platform/metrics"
)

// ── CacheStore ───────────────────────────────────────────────

// Entry 单条缓存记录。仅当 now < ExpiresAt 时有效。
type Entry struct {
	Fingerprint string                  `json:"fingerprint"`
	Query       string                  `json:"query"`
	Category    route.Category          `json:"category"`
	Result      route.SynthesizedAnswer `json:"result"`
	CreatedAt   time.Time               `json:"created_at"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

// Stats 缓存统计
type Stats struct {
	TotalEntries   int     `json:"total_entries"`
	ValidEntries   int     `json:"valid_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	AvgAgeMinutes  float64 `json:"avg_age_minutes"`
	MaxEntries     int     `json:"max_entries"`
}

// Config 缓存配置
type Config struct {
	DefaultTTL    time.Duration
	MaxEntries    int
	SnapshotEvery int // 每 N 次写入持久化一次快照
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		DefaultTTL:    30 * time.Minute,
		MaxEntries:    1000,
		SnapshotEvery: 10,
	}
}

// Store 指纹到合成结果的进程内缓存，周期性刷到持久化快照。
// 所有访问经由单个互斥锁串行化。
type Store struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	cfg      Config
	snapshot SnapshotStore
	puts     int
	now      func() time.Time
	metrics  *metrics.Metrics
}

// NewStore 创建缓存
func NewStore(cfg Config) *Store {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 30 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.SnapshotEvery <= 0 {
		cfg.SnapshotEvery = 10
	}
	return &Store{
		entries: make(map[string]*Entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetSnapshot 设置持久化快照后端（可选）
func (s *Store) SetSnapshot(snap SnapshotStore) {
	s.snapshot = snap
}

// SetMetrics 设置指标收集（可选）
func (s *Store) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock 注入时钟（测试用）
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Get 返回未过期的缓存结果。过期条目在查找时顺带清除。
func (s *Store) Get(fingerprint string) (route.SynthesizedAnswer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[fingerprint]
	if !ok {
		s.metrics.RecordCacheMiss()
		return route.SynthesizedAnswer{}, false
	}
	if !s.now().Before(e.ExpiresAt) {
		delete(s.entries, fingerprint)
		s.metrics.RecordEviction("expired", 1)
		s.metrics.RecordCacheMiss()
		s.metrics.SetCacheEntries(len(s.entries))
		return route.SynthesizedAnswer{}, false
	}

	s.metrics.RecordCacheHit()
	return e.Result, true
}

// Put 插入或覆盖一条缓存。超出容量时清除全部已过期条目；
// 有效条目永不因容量被逐出（TTL 自限容量）。
func (s *Store) Put(fingerprint, query string, category route.Category, answer route.SynthesizedAnswer, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[fingerprint] = &Entry{
		Fingerprint: fingerprint,
		Query:       query,
		Category:    category,
		Result:      answer,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	if len(s.entries) > s.cfg.MaxEntries {
		removed := s.removeExpiredLocked()
		if removed > 0 {
			applog.Info("[Cache] Cleaned up expired entries", "removed", removed)
		}
	}

	s.puts++
	if s.snapshot != nil && s.puts%s.cfg.SnapshotEvery == 0 {
		s.persistLocked()
	}

	s.metrics.SetCacheEntries(len(s.entries))
}

// InvalidateMatching 删除查询文本包含 substring 的所有条目（不区分大小写）
func (s *Store) InvalidateMatching(substring string) int {
	if strings.TrimSpace(substring) == "" {
		return 0
	}
	needle := strings.ToLower(substring)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for fp, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Query), needle) {
			delete(s.entries, fp)
			removed++
		}
	}

	if removed > 0 {
		applog.Info("[Cache] Invalidated entries", "pattern", substring, "removed", removed)
		s.metrics.RecordEviction("invalidated", removed)
		s.metrics.SetCacheEntries(len(s.entries))
	}
	return removed
}

// Clear 清空全部条目和持久化快照
func (s *Store) Clear() {
	s.mu.Lock()
	removed := len(s.entries)
	s.entries = make(map[string]*Entry)
	snap := s.snapshot
	s.mu.Unlock()

	if snap != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := snap.Delete(ctx); err != nil {
			applog.Warn("[Cache] Failed to delete snapshot", "error", err)
		}
	}

	s.metrics.RecordEviction("cleared", removed)
	s.metrics.SetCacheEntries(0)
	applog.Info("[Cache] Cleared", "removed", removed)
}

// Stats 返回缓存统计
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := Stats{
		TotalEntries: len(s.entries),
		MaxEntries:   s.cfg.MaxEntries,
	}

	var ageSum time.Duration
	for _, e := range s.entries {
		if now.Before(e.ExpiresAt) {
			st.ValidEntries++
		} else {
			st.ExpiredEntries++
		}
		ageSum += now.Sub(e.CreatedAt)
	}
	if len(s.entries) > 0 {
		st.AvgAgeMinutes = ageSum.Minutes() / float64(len(s.entries))
	}
	return st
}

// LoadSnapshot 启动时从快照恢复有效条目。
// 损坏的条目跳过并告警，绝不阻止启动。
func (s *Store) LoadSnapshot(ctx context.Context) int {
	if s.snapshot == nil {
		return 0
	}

	data, err := s.snapshot.Load(ctx)
	if err != nil {
		applog.Warn("[Cache] Failed to load snapshot", "error", err)
		return 0
	}
	if len(data) == 0 {
		return 0
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		applog.Warn("[Cache] Snapshot is not a valid JSON object, starting empty", "error", err)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	loaded, skipped := 0, 0
	for fp, msg := range raw {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			skipped++
			continue
		}
		if e.ExpiresAt.IsZero() || !e.ExpiresAt.After(e.CreatedAt) || !now.Before(e.ExpiresAt) {
			skipped++
			continue
		}
		if e.Fingerprint == "" {
			e.Fingerprint = fp
		}
		s.entries[fp] = &e
		loaded++
	}

	s.metrics.SetCacheEntries(len(s.entries))
	applog.Info("[Cache] Snapshot loaded", "loaded", loaded, "skipped", skipped)
	return loaded
}

// removeExpiredLocked 清除全部已过期条目，调用方需持有锁
func (s *Store) removeExpiredLocked() int {
	now := s.now()
	removed := 0
	for fp, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, fp)
			removed++
		}
	}
	s.metrics.RecordEviction("expired", removed)
	return removed
}

// persistLocked 将当前有效条目序列化到快照，调用方需持有锁。
// 快照不频繁且条目数有界，持锁写入可接受。
func (s *Store) persistLocked() {
	now := s.now()
	valid := make(map[string]*Entry, len(s.entries))
	for fp, e := range s.entries {
		if now.Before(e.ExpiresAt) {
			valid[fp] = e
		}
	}

	data, err := json.Marshal(valid)
	if err != nil {
		applog.Warn("[Cache] Failed to marshal snapshot", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.snapshot.Save(ctx, data); err != nil {
		applog.Warn("[Cache] Failed to save snapshot", "error", err)
		return
	}
	applog.Debug("[Cache] Snapshot saved", "entries", len(valid))
}
