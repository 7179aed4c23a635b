package rssfeed_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"knowgate/internal/adapter/provider/search/rssfeed"
	"knowgate/internal/provider"
)

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	recent := time.Now().Add(-2 * time.Hour).Format(time.RFC1123Z)
	stale := time.Now().Add(-30 * 24 * time.Hour).Format(time.RFC1123Z)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Test Feed</title>
	<item>
		<title>Bitcoin surges past new high</title>
		<link>https://feed.example.com/bitcoin</link>
		<description>&lt;p&gt;Bitcoin price reached a new record today.&lt;/p&gt;</description>
		<pubDate>%s</pubDate>
	</item>
	<item>
		<title>Bitcoin archive from last month</title>
		<link>https://feed.example.com/old</link>
		<description>Old bitcoin coverage.</description>
		<pubDate>%s</pubDate>
	</item>
	<item>
		<title>Gardening tips for autumn</title>
		<link>https://feed.example.com/garden</link>
		<description>How to prepare your garden.</description>
		<pubDate>%s</pubDate>
	</item>
</channel>
</rss>`, recent, stale, recent)
	}))
}

// TestSearchFiltersByAgeAndQuery 过旧与无关条目被过滤，HTML 被剥离
func TestSearchFiltersByAgeAndQuery(t *testing.T) {
	srv := feedServer(t)
	defer srv.Close()

	p := rssfeed.New(rssfeed.Config{Feeds: []string{srv.URL}})
	hits, err := p.Search(context.Background(), &provider.SearchRequest{Query: "bitcoin price", MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1 (stale and unrelated items filtered)", len(hits))
	}
	if hits[0].URL != "https://feed.example.com/bitcoin" {
		t.Errorf("url = %s", hits[0].URL)
	}
	if hits[0].ProviderSource != "rss:Test Feed" {
		t.Errorf("provider source = %s, want rss:Test Feed", hits[0].ProviderSource)
	}
	if hits[0].Snippet != "Bitcoin price reached a new record today." {
		t.Errorf("snippet = %q, HTML tags should be stripped", hits[0].Snippet)
	}
}

// TestSearchNoFeedsConfigured 未配置订阅源返回错误
func TestSearchNoFeedsConfigured(t *testing.T) {
	p := rssfeed.New(rssfeed.Config{})
	if _, err := p.Search(context.Background(), &provider.SearchRequest{Query: "q"}); err == nil {
		t.Error("expected error with no feeds configured")
	}
}

// TestSearchOneFeedDownStillSucceeds 部分订阅源不可达不影响整体
func TestSearchOneFeedDownStillSucceeds(t *testing.T) {
	srv := feedServer(t)
	defer srv.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer down.Close()

	p := rssfeed.New(rssfeed.Config{Feeds: []string{down.URL, srv.URL}})
	hits, err := p.Search(context.Background(), &provider.SearchRequest{Query: "bitcoin price", MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %d, want 1", len(hits))
	}
}
