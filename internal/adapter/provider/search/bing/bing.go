package bing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"knowgate/internal/provider"
)

// Config Bing Web Search API 配置
type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"` // 默认 https://api.bing.microsoft.com/v7.0
}

// Provider Bing 搜索供应商
type Provider struct {
	config Config
	client *http.Client
}

// New 创建 Bing Provider
func New(config Config) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.bing.microsoft.com/v7.0"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Provider{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name 返回供应商名称
func (p *Provider) Name() string {
	return "bing"
}

// Search 执行一次 Bing 搜索并归一化结果。
// 新闻类别走 /news/search，响应形状不同（value 数组在顶层）。
func (p *Provider) Search(ctx context.Context, req *provider.SearchRequest) ([]provider.RawHit, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(req.MaxResults))
	params.Set("safeSearch", "Moderate")

	endpoint := p.config.BaseURL + "/search"
	news := req.Category == "news"
	if news {
		endpoint = p.config.BaseURL + "/news/search"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing status %d", resp.StatusCode)
	}

	if news {
		return p.parseNews(resp)
	}
	return p.parseWeb(resp)
}

func (p *Provider) parseNews(resp *http.Response) ([]provider.RawHit, error) {
	var payload struct {
		Value []struct {
			Name          string `json:"name"`
			Description   string `json:"description"`
			URL           string `json:"url"`
			DatePublished string `json:"datePublished"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bing news response: %w", err)
	}

	hits := make([]provider.RawHit, 0, 5)
	for i, item := range payload.Value {
		if i >= 5 {
			break
		}
		hits = append(hits, provider.RawHit{
			Title:          item.Name,
			Snippet:        item.Description,
			URL:            item.URL,
			ProviderSource: "bing_news",
			PublishedAt:    item.DatePublished,
			Relevance:      0.5,
		})
	}
	return hits, nil
}

func (p *Provider) parseWeb(resp *http.Response) ([]provider.RawHit, error) {
	var payload struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				Snippet string `json:"snippet"`
				URL     string `json:"url"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bing response: %w", err)
	}

	hits := make([]provider.RawHit, 0, 5)
	for i, item := range payload.WebPages.Value {
		if i >= 5 {
			break
		}
		hits = append(hits, provider.RawHit{
			Title:          item.Name,
			Snippet:        item.Snippet,
			URL:            item.URL,
			ProviderSource: "bing",
			Relevance:      0.5,
		})
	}
	return hits, nil
}
