package route

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	applog "knowgate/internal/platform/log"
	"knowgate/internal/platform/metrics"
)

// ── KnowledgeRouter ──────────────────────────────────────────

// Config 路由决策配置
type Config struct {
	LocalTopK    int // 本地知识库检索条数
	MinLocalHits int // 本地命中少于该值时补充联网搜索

	// 本地平均分阈值。本地库为距离约定（分数越低越相关）时
	// ThresholdIsDistance=true：平均分超过阈值视为命中质量差。
	LocalScoreThreshold float64
	ThresholdIsDistance bool

	StrongLocalScore float64 // 组合回答时本地命中需达到的分数（距离低于该值）
	ExtraLocalScore  float64 // 纯本地回答附加命中的分数上限

	CacheTTL time.Duration // 联网结果的缓存时长
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		LocalTopK:           5,
		MinLocalHits:        3,
		LocalScoreThreshold: 0.8,
		ThresholdIsDistance: true,
		StrongLocalScore:    0.5,
		ExtraLocalScore:     0.7,
		CacheTTL:            30 * time.Minute,
	}
}

// Router 知识路由器：按查询特征决定本地知识库与联网搜索的取舍，
// 并负责缓存、失效与结果组合。
type Router struct {
	searcher    WebSearcher
	cache       AnswerCache
	local       KnowledgeStore      // 可选
	invalidator CategoryInvalidator // 可选
	traces      TraceStore          // 可选
	cfg         Config
	metrics     *metrics.Metrics
	sf          singleflight.Group
}

// NewRouter 创建路由器
func NewRouter(searcher WebSearcher, cache AnswerCache, cfg Config) *Router {
	if cfg.LocalTopK <= 0 {
		cfg.LocalTopK = 5
	}
	if cfg.MinLocalHits <= 0 {
		cfg.MinLocalHits = 3
	}
	if cfg.LocalScoreThreshold <= 0 {
		cfg.LocalScoreThreshold = 0.8
	}
	if cfg.StrongLocalScore <= 0 {
		cfg.StrongLocalScore = 0.5
	}
	if cfg.ExtraLocalScore <= 0 {
		cfg.ExtraLocalScore = 0.7
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &Router{
		searcher: searcher,
		cache:    cache,
		cfg:      cfg,
	}
}

// SetLocalStore 设置本地知识库（可选）
func (r *Router) SetLocalStore(ks KnowledgeStore) {
	r.local = ks
}

// SetInvalidator 设置主动失效调度器（可选）
func (r *Router) SetInvalidator(inv CategoryInvalidator) {
	r.invalidator = inv
}

// SetTraceStore 设置路由追踪存储（可选）
func (r *Router) SetTraceStore(ts TraceStore) {
	r.traces = ts
}

// SetMetrics 设置指标收集（可选）
func (r *Router) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// Route 路由一次查询。任何内部故障都降级为 Success=false 的
// RouteResult，不向调用方抛错误。
func (r *Router) Route(ctx context.Context, query string, reqContext map[string]string) *RouteResult {
	start := time.Now()

	classification := Classify(query)
	applog.Info("[Router] Query classified",
		"query", query,
		"category", classification.Category,
		"needs_realtime", classification.NeedsRealtime,
		"urgency", classification.Urgency,
	)

	// 本地检索总是执行：代价低且提供兜底
	localDocs := r.searchLocal(ctx, query)

	var result *RouteResult
	if r.needsWebSearch(classification, localDocs) {
		result = r.routeWeb(ctx, query, reqContext, classification, localDocs)
	} else {
		result = r.formatLocalResponse(query, localDocs)
	}

	result.Category = classification.Category
	result.LocalHits = len(localDocs)
	result.ElapsedMs = time.Since(start).Milliseconds()
	result.TraceID = uuid.NewString()

	r.metrics.RecordRoute(string(result.RoutingMethod), string(result.Category), result.Cached, time.Since(start))
	r.recordTrace(query, result)

	return result
}

// searchLocal 查询本地知识库，失败降级为空结果
func (r *Router) searchLocal(ctx context.Context, query string) []LocalDocument {
	if r.local == nil {
		return nil
	}
	docs, err := r.local.Search(ctx, query, r.cfg.LocalTopK)
	if err != nil {
		applog.Warn("[Router] Local knowledge search failed", "error", err)
		return nil
	}
	return docs
}

// needsWebSearch 固定顺序的规则链。static 强制为 false，
// 后续规则不得覆盖。
func (r *Router) needsWebSearch(c QueryClassification, local []LocalDocument) bool {
	if c.Category == CategoryStatic {
		return false
	}
	if c.NeedsRealtime {
		return true
	}
	if RealtimeCategories[c.Category] {
		return true
	}
	if len(local) == 0 {
		return true
	}
	avg := avgScore(local)
	if r.cfg.ThresholdIsDistance {
		if avg > r.cfg.LocalScoreThreshold {
			return true
		}
	} else if avg < r.cfg.LocalScoreThreshold {
		return true
	}
	// 默认偏向联网补充
	return len(local) < r.cfg.MinLocalHits
}

// webOutcome 一次联网搜索的合成结果
type webOutcome struct {
	answer       SynthesizedAnswer
	totalFailure bool
}

// routeWeb 联网路径：失效检查 → 缓存 → 搜索/排序/合成 → 缓存写入 → 组合
func (r *Router) routeWeb(ctx context.Context, query string, reqContext map[string]string, c QueryClassification, local []LocalDocument) *RouteResult {
	if r.invalidator != nil {
		r.invalidator.InvalidateIfDue(c.Category)
	}

	fingerprint := r.fingerprint(query, reqContext, c)

	if r.cache != nil {
		if cached, ok := r.cache.Get(fingerprint); ok {
			applog.Info("[Router] Cache hit", "fingerprint", fingerprint)
			return &RouteResult{
				Success:       true,
				Text:          cached.Text,
				Sources:       cached.Sources,
				Confidence:    cached.Confidence,
				RoutingMethod: RoutingWebOnly,
				Cached:        true,
			}
		}
	}

	// singleflight 合并同指纹的并发未命中，只合成一次
	v, _, _ := r.sf.Do(fingerprint, func() (any, error) {
		return r.searchAndSynthesize(ctx, fingerprint, query, c), nil
	})
	outcome := v.(*webOutcome)

	if outcome.totalFailure {
		return &RouteResult{
			Success:       false,
			Text:          outcome.answer.Text,
			Sources:       outcome.answer.Sources,
			Confidence:    outcome.answer.Confidence,
			RoutingMethod: RoutingWebOnly,
		}
	}

	return r.combine(local, outcome.answer, c)
}

// searchAndSynthesize 缓存未命中路径：联邦搜索 → 排序 → 合成 → 写缓存
func (r *Router) searchAndSynthesize(ctx context.Context, fingerprint, query string, c QueryClassification) *webOutcome {
	federated := r.searcher.Search(ctx, query, c)

	if federated.TotalFailure() {
		applog.Warn("[Router] All search providers failed", "query", query, "providers", len(federated.ProviderErrors))
		return &webOutcome{
			answer:       Synthesize(nil, query, c.Category),
			totalFailure: true,
		}
	}

	ranked := Rank(federated.Hits)
	answer := Synthesize(ranked, query, c.Category)

	if r.cache != nil {
		r.cache.Put(fingerprint, query, c.Category, answer, r.cfg.CacheTTL)
	}

	return &webOutcome{answer: answer}
}

// fingerprint 从查询和相关上下文子集派生缓存指纹
func (r *Router) fingerprint(query string, reqContext map[string]string, c QueryClassification) string {
	relevant := map[string]string{
		"query_type": string(c.Category),
	}
	if reqContext != nil {
		relevant["domain"] = reqContext["domain"]
	}
	return Fingerprint(query, relevant)
}

// combine 按组合规则拼装本地与联网结果。
// 时效类别以联网文本为主，本地强相关命中附加在后；
// 其余类别本地内容在前，联网内容作为更新信息附加。
func (r *Router) combine(local []LocalDocument, answer SynthesizedAnswer, c QueryClassification) *RouteResult {
	realtime := c.NeedsRealtime || RealtimeCategories[c.Category]

	var sb strings.Builder
	method := RoutingWebOnly
	confidence := answer.Confidence
	sources := answer.Sources

	if realtime {
		sb.WriteString(answer.Text)

		appended := 0
		for _, doc := range local {
			if doc.Score < r.cfg.StrongLocalScore {
				if appended == 0 {
					sb.WriteString("\n\n📚 Additional context from the knowledge base:\n")
				}
				fmt.Fprintf(&sb, "• %s\n", truncate(doc.Content, 200))
				appended++
				if appended >= 2 {
					break
				}
			}
		}
		if appended > 0 {
			method = RoutingCombined
		}
	} else if len(local) > 0 {
		sb.WriteString("🧠 Combined answer:\n\n")
		sb.WriteString("From the knowledge base:\n")
		sb.WriteString(truncate(local[0].Content, 300))
		sb.WriteString("\n\nUpdated information from the web:\n")
		sb.WriteString(answer.Text)
		method = RoutingCombined
	} else {
		sb.WriteString(answer.Text)
	}

	if method == RoutingCombined {
		if confidence < 0.7 {
			confidence = 0.7
		}
		sources = append([]SourceRef{{Title: "Local knowledge base", ProviderSource: "local"}}, sources...)
	}

	return &RouteResult{
		Success:       true,
		Text:          sb.String(),
		Sources:       sources,
		Confidence:    confidence,
		RoutingMethod: method,
	}
}

// formatLocalResponse 纯本地回答。置信度由平均距离反推。
func (r *Router) formatLocalResponse(query string, local []LocalDocument) *RouteResult {
	if len(local) == 0 {
		return &RouteResult{
			Success:       false,
			Text:          fmt.Sprintf("I couldn't find anything about %q in the knowledge base. Try rephrasing the question.", query),
			Confidence:    0.1,
			RoutingMethod: RoutingLocalOnly,
		}
	}

	bestIdx := 0
	for i, doc := range local {
		if doc.Score < local[bestIdx].Score {
			bestIdx = i
		}
	}

	var sb strings.Builder
	sb.WriteString(local[bestIdx].Content)

	extras := 0
	for i, doc := range local {
		if i == bestIdx || doc.Score >= r.cfg.ExtraLocalScore {
			continue
		}
		if extras == 0 {
			sb.WriteString("\n\nAdditional details:\n")
		}
		fmt.Fprintf(&sb, "• %s\n", truncate(doc.Content, 150))
		extras++
		if extras >= 2 {
			break
		}
	}

	confidence := 1.0 - avgScore(local)
	if confidence < 0.3 {
		confidence = 0.3
	}

	return &RouteResult{
		Success:       true,
		Text:          sb.String(),
		Sources:       []SourceRef{{Title: "Local knowledge base", ProviderSource: "local"}},
		Confidence:    confidence,
		RoutingMethod: RoutingLocalOnly,
	}
}

// recordTrace 尽力而为地持久化路由追踪，绝不阻塞请求路径
func (r *Router) recordTrace(query string, result *RouteResult) {
	if r.traces == nil {
		return
	}
	trace := &RouteTrace{
		ID:            result.TraceID,
		Query:         query,
		Category:      result.Category,
		RoutingMethod: result.RoutingMethod,
		Cached:        result.Cached,
		Success:       result.Success,
		Confidence:    result.Confidence,
		LocalHits:     result.LocalHits,
		ElapsedMs:     result.ElapsedMs,
		CreatedAt:     time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.traces.RecordTrace(ctx, trace); err != nil {
			applog.Warn("[Router] Failed to record trace", "error", err)
		}
	}()
}

func avgScore(docs []LocalDocument) float64 {
	if len(docs) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range docs {
		sum += d.Score
	}
	return sum / float64(len(docs))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
