package provider

import (
	"context"
)

// RawHit 搜索供应商归一化后的单条命中。
// 可选字段（PublishedAt、Snippet）缺失时不视为错误。
type RawHit struct {
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	URL            string  `json:"url"`
	ProviderSource string  `json:"source"`
	PublishedAt    string  `json:"published_at,omitempty"`
	Relevance      float64 `json:"relevance"`
}

// SearchRequest 搜索请求
type SearchRequest struct {
	Query         string `json:"query"`    // 已按类别优化的查询串
	Category      string `json:"category"` // news, sport, finance, weather, ...
	NeedsRealtime bool   `json:"needs_realtime"`
	MaxResults    int    `json:"max_results"`
}

// SearchProvider 搜索供应商接口
type SearchProvider interface {
	// Name 返回供应商名称
	Name() string

	// Search 执行一次搜索并返回归一化命中列表
	Search(ctx context.Context, req *SearchRequest) ([]RawHit, error)
}
