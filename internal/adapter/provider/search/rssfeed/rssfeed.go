package rssfeed

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"knowgate/internal/provider"
)

// Config RSS 订阅源配置。配置了订阅地址才启用。
type Config struct {
	Feeds  []string      `json:"feeds"`
	MaxAge time.Duration `json:"-"` // 丢弃早于该时长的条目，默认 7 天
}

// Provider 将 RSS 订阅源作为新闻类搜索供应商。
// 只对查询词做朴素的标题/摘要匹配，时效性筛选交给排序层。
type Provider struct {
	config Config
	parser *gofeed.Parser
}

// New 创建 RSS Provider
func New(config Config) *Provider {
	if config.MaxAge <= 0 {
		config.MaxAge = 7 * 24 * time.Hour
	}
	return &Provider{
		config: config,
		parser: gofeed.NewParser(),
	}
}

// Name 返回供应商名称
func (p *Provider) Name() string {
	return "rssfeed"
}

// Search 抓取全部订阅源，过滤过旧及与查询无关的条目
func (p *Provider) Search(ctx context.Context, req *provider.SearchRequest) ([]provider.RawHit, error) {
	if len(p.config.Feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}

	terms := queryTerms(req.Query)
	cutoff := time.Now().Add(-p.config.MaxAge)

	var hits []provider.RawHit
	var lastErr error
	fetched := 0

	for _, feedURL := range p.config.Feeds {
		feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			lastErr = fmt.Errorf("fetch %s: %w", feedURL, err)
			continue
		}
		fetched++

		for _, item := range feed.Items {
			published := time.Now()
			if item.PublishedParsed != nil {
				published = *item.PublishedParsed
			} else if item.UpdatedParsed != nil {
				published = *item.UpdatedParsed
			}
			if published.Before(cutoff) {
				continue
			}

			snippet := stripHTML(item.Description)
			if snippet == "" {
				snippet = stripHTML(item.Content)
			}

			if !matchesTerms(item.Title+" "+snippet, terms) {
				continue
			}

			hits = append(hits, provider.RawHit{
				Title:          item.Title,
				Snippet:        truncate(snippet, 300),
				URL:            item.Link,
				ProviderSource: "rss:" + feed.Title,
				PublishedAt:    published.Format(time.RFC3339),
				Relevance:      0.5,
			})
			if req.MaxResults > 0 && len(hits) >= req.MaxResults {
				return hits, nil
			}
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, lastErr
	}
	return hits, nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// queryTerms 提取长度大于 2 的查询词做匹配
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// matchesTerms 任一查询词出现即视为相关；无有效查询词时全部通过
func matchesTerms(text string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
