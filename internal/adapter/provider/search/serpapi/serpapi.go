package serpapi

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

// Config SerpAPI（Google 搜索）配置
type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"` // 默认 https://serpapi.com/search.json
}

// Provider SerpAPI 搜索供应商
type Provider struct {
	config Config
	client *http.Client
}

// New 创建 SerpAPI Provider
func New(config Config) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://serpapi.com/search.json"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Provider{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name 返回供应商名称
func (p *Provider) Name() string {
	return "serpapi"
}

// Search 执行一次 Google 搜索并归一化结果
func (p *Provider) Search(ctx context.Context, req *provider.SearchRequest) ([]provider.RawHit, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("api_key", p.config.APIKey)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(req.MaxResults))

	// 新闻与体育走 Google News 垂直搜索
	if req.Category == "news" || req.Category == "sport" {
		params.Set("tbm", "nws")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi status %d", resp.StatusCode)
	}

	var payload struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic_results"`
		NewsResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
			Date    string `json:"date"`
		} `json:"news_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}

	hits := make([]provider.RawHit, 0, 8)
	for i, item := range payload.OrganicResults {
		if i >= 5 {
			break
		}
		hits = append(hits, provider.RawHit{
			Title:          item.Title,
			Snippet:        item.Snippet,
			URL:            item.Link,
			ProviderSource: "google",
			Relevance:      0.5,
		})
	}
	for i, item := range payload.NewsResults {
		if i >= 3 {
			break
		}
		hits = append(hits, provider.RawHit{
			Title:          item.Title,
			Snippet:        item.Snippet,
			URL:            item.Link,
			ProviderSource: "google_news",
			PublishedAt:    item.Date,
			Relevance:      0.5,
		})
	}

	return hits, nil
}
