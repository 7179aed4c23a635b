package websearch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"knowgate/internal/domain/route"
	"knowgate/internal/domain/websearch"
	"knowgate/internal/provider"
)

type stubProvider struct {
	name  string
	hits  []provider.RawHit
	err   error
	delay time.Duration
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(ctx context.Context, req *provider.SearchRequest) ([]provider.RawHit, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.hits, nil
}

func hit(url string) provider.RawHit {
	return provider.RawHit{Title: "t", Snippet: "s", URL: url, ProviderSource: "stub"}
}

// TestSearchAggregatesAllProviders 汇总所有供应商的命中
func TestSearchAggregatesAllProviders(t *testing.T) {
	client := websearch.NewClient([]provider.SearchProvider{
		&stubProvider{name: "a", hits: []provider.RawHit{hit("https://a/1"), hit("https://a/2")}},
		&stubProvider{name: "b", hits: []provider.RawHit{hit("https://b/1")}},
	}, websearch.DefaultConfig())

	result := client.Search(context.Background(), "golang", route.QueryClassification{Category: route.CategoryGeneral})

	if len(result.Hits) != 3 {
		t.Errorf("hits = %d, want 3", len(result.Hits))
	}
	if len(result.ProviderErrors) != 0 {
		t.Errorf("provider errors = %v, want none", result.ProviderErrors)
	}
}

// TestSearchPartialFailure 单个供应商失败不影响其余分支
func TestSearchPartialFailure(t *testing.T) {
	client := websearch.NewClient([]provider.SearchProvider{
		&stubProvider{name: "a", hits: []provider.RawHit{hit("https://a/1")}},
		&stubProvider{name: "b", err: errors.New("quota exceeded")},
		&stubProvider{name: "c", hits: []provider.RawHit{hit("https://c/1")}},
	}, websearch.DefaultConfig())

	result := client.Search(context.Background(), "golang", route.QueryClassification{Category: route.CategoryGeneral})

	if len(result.Hits) != 2 {
		t.Errorf("hits = %d, want 2", len(result.Hits))
	}
	if len(result.ProviderErrors) != 1 || result.ProviderErrors[0].Provider != "b" {
		t.Errorf("provider errors = %v, want one from b", result.ProviderErrors)
	}
	if result.TotalFailure() {
		t.Error("partial failure must not count as total failure")
	}
}

// TestSearchTotalFailure 全部失败时命中为空且 TotalFailure 为真
func TestSearchTotalFailure(t *testing.T) {
	client := websearch.NewClient([]provider.SearchProvider{
		&stubProvider{name: "a", err: errors.New("down")},
		&stubProvider{name: "b", err: errors.New("down")},
	}, websearch.DefaultConfig())

	result := client.Search(context.Background(), "golang", route.QueryClassification{Category: route.CategoryGeneral})

	if !result.TotalFailure() {
		t.Error("expected total failure when every provider errors")
	}
}

// TestSearchNoProviders 无供应商时返回空结果而不是错误
func TestSearchNoProviders(t *testing.T) {
	client := websearch.NewClient(nil, websearch.DefaultConfig())

	result := client.Search(context.Background(), "golang", route.QueryClassification{})
	if len(result.Hits) != 0 || len(result.ProviderErrors) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if result.TotalFailure() {
		t.Error("no providers is not a total failure")
	}
}

// TestSearchSlowProviderTimesOut 慢供应商按独立超时失败，不拖慢整体
func TestSearchSlowProviderTimesOut(t *testing.T) {
	cfg := websearch.DefaultConfig()
	cfg.ProviderTimeout = 50 * time.Millisecond

	client := websearch.NewClient([]provider.SearchProvider{
		&stubProvider{name: "fast", hits: []provider.RawHit{hit("https://fast/1")}},
		&stubProvider{name: "slow", delay: 2 * time.Second, hits: []provider.RawHit{hit("https://slow/1")}},
	}, cfg)

	start := time.Now()
	result := client.Search(context.Background(), "golang", route.QueryClassification{})
	elapsed := time.Since(start)

	if len(result.Hits) != 1 || result.Hits[0].URL != "https://fast/1" {
		t.Errorf("hits = %+v, want only the fast provider's hit", result.Hits)
	}
	if len(result.ProviderErrors) != 1 || result.ProviderErrors[0].Provider != "slow" {
		t.Errorf("provider errors = %v, want timeout from slow", result.ProviderErrors)
	}
	if elapsed > time.Second {
		t.Errorf("search took %v, slow provider should be cut off by its own timeout", elapsed)
	}
}
