package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"knowgate/internal/provider"
)

// Config DuckDuckGo Instant Answer API 配置。免费接口，无需密钥。
type Config struct {
	BaseURL string `json:"base_url"` // 默认 https://api.duckduckgo.com/
}

// Provider DuckDuckGo 搜索供应商
type Provider struct {
	config Config
	client *http.Client
}

// New 创建 DuckDuckGo Provider
func New(config Config) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.duckduckgo.com/"
	}
	return &Provider{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name 返回供应商名称
func (p *Provider) Name() string {
	return "duckduckgo"
}

// Search 查询即时回答接口并归一化结果
func (p *Provider) Search(ctx context.Context, req *provider.SearchRequest) ([]provider.RawHit, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.config.BaseURL, "/")+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	var payload struct {
		Heading       string `json:"Heading"`
		Abstract      string `json:"Abstract"`
		AbstractURL   string `json:"AbstractURL"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode duckduckgo response: %w", err)
	}

	hits := make([]provider.RawHit, 0, 4)

	// 即时回答权重最高
	if payload.Abstract != "" {
		hits = append(hits, provider.RawHit{
			Title:          payload.Heading,
			Snippet:        payload.Abstract,
			URL:            payload.AbstractURL,
			ProviderSource: "duckduckgo_instant",
			Relevance:      0.9,
		})
	}

	for i, item := range payload.RelatedTopics {
		if i >= 3 {
			break
		}
		if item.Text == "" {
			continue
		}
		title := item.Text
		if idx := strings.Index(title, " - "); idx > 0 {
			title = title[:idx]
		}
		hits = append(hits, provider.RawHit{
			Title:          title,
			Snippet:        item.Text,
			URL:            item.FirstURL,
			ProviderSource: "duckduckgo",
			Relevance:      0.5,
		})
	}

	return hits, nil
}
