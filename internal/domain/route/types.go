package route

import (
	"time"

	"knowgate/internal/provider"
)

// Category 查询主题分类
type Category string

const (
	CategoryNews        Category = "news"
	CategorySport       Category = "sport"
	CategoryFinance     Category = "finance"
	CategoryWeather     Category = "weather"
	CategoryInformation Category = "information"
	CategoryStatic      Category = "static"
	CategoryGeneral     Category = "general"
)

// RealtimeCategories 需要优先保证时效性的类别
var RealtimeCategories = map[Category]bool{
	CategoryNews:    true,
	CategorySport:   true,
	CategoryFinance: true,
	CategoryWeather: true,
}

// Urgency 紧急程度
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// QueryClassification 查询分类结果。纯派生值，不持久化。
type QueryClassification struct {
	Category      Category `json:"category"`
	NeedsRealtime bool     `json:"needs_realtime"`
	Urgency       Urgency  `json:"urgency"`
}

// SourceRef 引用来源
type SourceRef struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	ProviderSource string  `json:"source"`
	Relevance      float64 `json:"relevance"`
}

// SynthesizedAnswer 合成后的最终回答，缓存与返回的基本单元
type SynthesizedAnswer struct {
	Text       string      `json:"text"`
	Sources    []SourceRef `json:"sources"`
	Confidence float64     `json:"confidence"`
}

// RoutingMethod 路由方式
type RoutingMethod string

const (
	RoutingLocalOnly RoutingMethod = "local_only"
	RoutingWebOnly   RoutingMethod = "web_only"
	RoutingCombined  RoutingMethod = "combined"
)

// RouteResult 路由结果。失败也以 Success=false 返回，不抛错误。
type RouteResult struct {
	Success       bool          `json:"success"`
	Text          string        `json:"text"`
	Sources       []SourceRef   `json:"sources"`
	Confidence    float64       `json:"confidence"`
	RoutingMethod RoutingMethod `json:"routing_method"`
	Category      Category      `json:"category"`
	Cached        bool          `json:"cached"`
	TraceID       string        `json:"trace_id,omitempty"`
	LocalHits     int           `json:"local_hits"`
	ElapsedMs     int64         `json:"elapsed_ms"`
}

// LocalDocument 本地知识库命中。Score 为距离约定：越低越相关。
type LocalDocument struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

// ProviderError 单个搜索供应商的失败记录
type ProviderError struct {
	Provider string `json:"provider"`
	Err      error  `json:"-"`
}

func (e ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

// FederatedResult 联邦搜索结果。部分供应商失败不影响整体成功。
type FederatedResult struct {
	Hits           []provider.RawHit `json:"hits"`
	ProviderErrors []ProviderError   `json:"provider_errors,omitempty"`
	ElapsedMs      int64             `json:"elapsed_ms"`
}

// TotalFailure 是否所有供应商均失败且无任何命中
func (r *FederatedResult) TotalFailure() bool {
	return len(r.Hits) == 0 && len(r.ProviderErrors) > 0
}

// RouteTrace 单次路由的追踪记录（可选持久化）
type RouteTrace struct {
	ID            string
	Query         string
	Category      Category
	RoutingMethod RoutingMethod
	Cached        bool
	Success       bool
	Confidence    float64
	LocalHits     int
	ElapsedMs     int64
	CreatedAt     time.Time
}
