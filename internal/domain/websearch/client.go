package websearch

import (
	"context"
	"time"

	"knowgate/internal/domain/route"
	applog "knowgate/internal/platform/log"
	"knowgate/internal/platform/metrics"
	"knowgate/internal/provider"
)

// Config 联邦搜索配置
type Config struct {
	ProviderTimeout       time.Duration // 每个供应商的独立超时
	MaxResultsPerProvider int
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		ProviderTimeout:       10 * time.Second,
		MaxResultsPerProvider: 10,
	}
}

// Client 向所有启用的供应商并发下发同一逻辑查询的联邦搜索客户端。
// 单个供应商失败只记录不传播；仅全部失败时命中列表为空。
type Client struct {
	providers []provider.SearchProvider
	cfg       Config
	metrics   *metrics.Metrics
}

// NewClient 创建联邦搜索客户端
func NewClient(providers []provider.SearchProvider, cfg Config) *Client {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if cfg.MaxResultsPerProvider <= 0 {
		cfg.MaxResultsPerProvider = 10
	}
	return &Client{
		providers: providers,
		cfg:       cfg,
	}
}

// SetMetrics 设置指标收集（可选）
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Providers 返回供应商名称列表
func (c *Client) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Search 并发查询所有供应商并汇总归一化命中。
// 每个分支有独立超时；慢供应商不会拖住其他分支，join 最多等待
// 最大的单分支超时而不是各超时之和。
func (c *Client) Search(ctx context.Context, query string, classification route.QueryClassification) *route.FederatedResult {
	start := time.Now()

	result := &route.FederatedResult{}
	if len(c.providers) == 0 {
		applog.Warn("[WebSearch] No providers enabled")
		return result
	}

	req := &provider.SearchRequest{
		Query:         OptimizeQuery(query, classification.Category),
		Category:      string(classification.Category),
		NeedsRealtime: classification.NeedsRealtime,
		MaxResults:    c.cfg.MaxResultsPerProvider,
	}

	type branch struct {
		name string
		hits []provider.RawHit
		err  error
	}

	ch := make(chan branch, len(c.providers))
	for _, p := range c.providers {
		go func(p provider.SearchProvider) {
			pctx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
			defer cancel()

			branchStart := time.Now()
			hits, err := p.Search(pctx, req)
			c.metrics.RecordProvider(p.Name(), err, time.Since(branchStart))

			ch <- branch{name: p.Name(), hits: hits, err: err}
		}(p)
	}

	for range c.providers {
		b := <-ch
		if b.err != nil {
			applog.Warn("[WebSearch] Provider failed", "provider", b.name, "error", b.err)
			result.ProviderErrors = append(result.ProviderErrors, route.ProviderError{Provider: b.name, Err: b.err})
			continue
		}
		result.Hits = append(result.Hits, b.hits...)
	}

	result.ElapsedMs = time.Since(start).Milliseconds()

	applog.Info("[WebSearch] Federated search done",
		"query", req.Query,
		"category", req.Category,
		"hits", len(result.Hits),
		"provider_errors", len(result.ProviderErrors),
		"elapsed_ms", result.ElapsedMs,
	)
	return result
}
