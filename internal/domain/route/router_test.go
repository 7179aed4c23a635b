package route_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"knowgate/internal/domain/route"
	"knowgate/internal/provider"
)

type fakeSearcher struct {
	result *route.FederatedResult
	calls  int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, c route.QueryClassification) *route.FederatedResult {
	f.calls++
	if f.result != nil {
		return f.result
	}
	return &route.FederatedResult{}
}

type fakeCache struct {
	entries map[string]route.SynthesizedAnswer
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]route.SynthesizedAnswer)}
}

func (f *fakeCache) Get(fingerprint string) (route.SynthesizedAnswer, bool) {
	a, ok := f.entries[fingerprint]
	return a, ok
}

func (f *fakeCache) Put(fingerprint, query string, category route.Category, answer route.SynthesizedAnswer, ttl time.Duration) {
	f.entries[fingerprint] = answer
	f.puts++
}

type fakeLocal struct {
	docs []route.LocalDocument
	err  error
}

func (f *fakeLocal) Search(ctx context.Context, query string, k int) ([]route.LocalDocument, error) {
	return f.docs, f.err
}

type fakeInvalidator struct {
	calls []route.Category
}

func (f *fakeInvalidator) InvalidateIfDue(category route.Category) int {
	f.calls = append(f.calls, category)
	return 0
}

func webHits() *route.FederatedResult {
	return &route.FederatedResult{
		Hits: []provider.RawHit{
			{Title: "result one", Snippet: "a sufficiently long snippet with plenty of words for ranking", URL: "https://example.com/1", ProviderSource: "google"},
			{Title: "result two", Snippet: "another sufficiently long snippet with plenty of words in it", URL: "https://example.com/2", ProviderSource: "bing"},
		},
	}
}

// TestRouteStaticNeverSearchesWeb 静态类别强制本地，决不触发联网搜索
func TestRouteStaticNeverSearchesWeb(t *testing.T) {
	searcher := &fakeSearcher{result: webHits()}
	router := route.NewRouter(searcher, newFakeCache(), route.DefaultConfig())
	router.SetLocalStore(&fakeLocal{docs: []route.LocalDocument{
		{Content: "The Pythagorean theorem relates the sides of a right triangle.", Score: 0.2},
	}})

	result := router.Route(context.Background(), "explain the Pythagorean theorem today", nil)

	if searcher.calls != 0 {
		t.Errorf("web searcher called %d times for a static query, want 0", searcher.calls)
	}
	if result.RoutingMethod != route.RoutingLocalOnly {
		t.Errorf("routing method = %s, want local_only", result.RoutingMethod)
	}
	if !result.Success {
		t.Error("expected success from local knowledge")
	}
}

// TestRouteStaticWithoutLocalDegradesGracefully 静态查询无本地数据时
// 返回低置信度失败结果，不抛错误也不联网
func TestRouteStaticWithoutLocalDegradesGracefully(t *testing.T) {
	searcher := &fakeSearcher{result: webHits()}
	router := route.NewRouter(searcher, newFakeCache(), route.DefaultConfig())

	result := router.Route(context.Background(), "explain the Pythagorean theorem", nil)

	if searcher.calls != 0 {
		t.Errorf("web searcher called %d times, want 0", searcher.calls)
	}
	if result.Success {
		t.Error("expected success=false with no local knowledge")
	}
	if result.Confidence != 0.1 {
		t.Errorf("confidence = %v, want 0.1", result.Confidence)
	}
	if result.RoutingMethod != route.RoutingLocalOnly {
		t.Errorf("routing method = %s, want local_only", result.RoutingMethod)
	}
}

// TestRouteWebMissThenCacheHit 首次联网，二次命中缓存且文本一致
func TestRouteWebMissThenCacheHit(t *testing.T) {
	searcher := &fakeSearcher{result: webHits()}
	cache := newFakeCache()
	router := route.NewRouter(searcher, cache, route.DefaultConfig())

	first := router.Route(context.Background(), "bitcoin price today", nil)
	if !first.Success {
		t.Fatal("first route should succeed")
	}
	if first.Cached {
		t.Error("first route should not be cached")
	}
	if first.RoutingMethod != route.RoutingWebOnly {
		t.Errorf("routing method = %s, want web_only", first.RoutingMethod)
	}
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}

	second := router.Route(context.Background(), "bitcoin price today", nil)
	if !second.Cached {
		t.Error("second route should be served from cache")
	}
	if second.Text != first.Text {
		t.Errorf("cached text differs:\nfirst:  %s\nsecond: %s", second.Text, first.Text)
	}
	if searcher.calls != 1 {
		t.Errorf("searcher called %d times, want 1", searcher.calls)
	}
}

// TestRouteContextChangesFingerprint 上下文不同不复用缓存
func TestRouteContextChangesFingerprint(t *testing.T) {
	searcher := &fakeSearcher{result: webHits()}
	router := route.NewRouter(searcher, newFakeCache(), route.DefaultConfig())

	router.Route(context.Background(), "bitcoin price today", map[string]string{"domain": "crypto"})
	result := router.Route(context.Background(), "bitcoin price today", map[string]string{"domain": "markets"})

	if result.Cached {
		t.Error("different request context must not hit the same cache entry")
	}
	if searcher.calls != 2 {
		t.Errorf("searcher called %d times, want 2", searcher.calls)
	}
}

// TestRouteTotalProviderFailure 全部供应商失败时返回兜底失败结果
func TestRouteTotalProviderFailure(t *testing.T) {
	searcher := &fakeSearcher{result: &route.FederatedResult{
		ProviderErrors: []route.ProviderError{
			{Provider: "google", Err: errors.New("timeout")},
			{Provider: "bing", Err: errors.New("quota exceeded")},
		},
	}}
	cache := newFakeCache()
	router := route.NewRouter(searcher, cache, route.DefaultConfig())

	result := router.Route(context.Background(), "bitcoin price today", nil)

	if result.Success {
		t.Error("expected success=false on total provider failure")
	}
	if math.Abs(result.Confidence-0.3) > 1e-9 {
		t.Errorf("confidence = %v, want fallback 0.3", result.Confidence)
	}
	if result.Text == "" {
		t.Error("fallback text must not be empty")
	}
	if cache.puts != 0 {
		t.Error("fallback answers must not be cached")
	}
}

// TestRoutePartialFailureStillSucceeds 部分供应商失败不影响成功
func TestRoutePartialFailureStillSucceeds(t *testing.T) {
	fr := webHits()
	fr.ProviderErrors = []route.ProviderError{{Provider: "bing", Err: errors.New("timeout")}}
	router := route.NewRouter(&fakeSearcher{result: fr}, newFakeCache(), route.DefaultConfig())

	result := router.Route(context.Background(), "bitcoin price today", nil)
	if !result.Success {
		t.Error("partial provider failure should still produce a successful answer")
	}
}

// TestRouteInvalidatorRunsOnWebPath 联网路径先触发按类别失效检查
func TestRouteInvalidatorRunsOnWebPath(t *testing.T) {
	inv := &fakeInvalidator{}
	router := route.NewRouter(&fakeSearcher{result: webHits()}, newFakeCache(), route.DefaultConfig())
	router.SetInvalidator(inv)

	router.Route(context.Background(), "bitcoin price today", nil)

	if len(inv.calls) != 1 || inv.calls[0] != route.CategoryFinance {
		t.Errorf("invalidator calls = %v, want [finance]", inv.calls)
	}
}

// TestRouteCombinesStrongLocalWithWeb 实时类别下本地强相关命中附加到联网回答
func TestRouteCombinesStrongLocalWithWeb(t *testing.T) {
	router := route.NewRouter(&fakeSearcher{result: webHits()}, newFakeCache(), route.DefaultConfig())
	router.SetLocalStore(&fakeLocal{docs: []route.LocalDocument{
		{Content: "Bitcoin is a decentralized digital currency launched in 2009.", Score: 0.2},
	}})

	result := router.Route(context.Background(), "bitcoin price today", nil)

	if result.RoutingMethod != route.RoutingCombined {
		t.Fatalf("routing method = %s, want combined", result.RoutingMethod)
	}
	if result.Confidence < 0.7 {
		t.Errorf("combined confidence = %v, want >= 0.7", result.Confidence)
	}
	if len(result.Sources) == 0 || result.Sources[0].ProviderSource != "local" {
		t.Errorf("combined result should cite the local knowledge base first, got %+v", result.Sources)
	}
	if result.LocalHits != 1 {
		t.Errorf("local hits = %d, want 1", result.LocalHits)
	}
}

// TestRouteLocalStoreFailureFallsBackToWeb 本地检索失败降级为纯联网
func TestRouteLocalStoreFailureFallsBackToWeb(t *testing.T) {
	router := route.NewRouter(&fakeSearcher{result: webHits()}, newFakeCache(), route.DefaultConfig())
	router.SetLocalStore(&fakeLocal{err: errors.New("connection refused")})

	result := router.Route(context.Background(), "golang generics tutorial", nil)

	if !result.Success {
		t.Error("local store failure should not fail the route")
	}
	if result.RoutingMethod != route.RoutingWebOnly {
		t.Errorf("routing method = %s, want web_only", result.RoutingMethod)
	}
	if result.LocalHits != 0 {
		t.Errorf("local hits = %d, want 0", result.LocalHits)
	}
}

// TestRouteLocalConfidenceFromScores 纯本地回答置信度由平均距离反推
func TestRouteLocalConfidenceFromScores(t *testing.T) {
	router := route.NewRouter(&fakeSearcher{}, newFakeCache(), route.DefaultConfig())
	router.SetLocalStore(&fakeLocal{docs: []route.LocalDocument{
		{Content: "The Pythagorean theorem states a² + b² = c².", Score: 0.1},
		{Content: "It applies to right triangles.", Score: 0.2},
		{Content: "Named after Pythagoras of Samos.", Score: 0.3},
	}})

	result := router.Route(context.Background(), "explain the Pythagorean theorem", nil)

	if !result.Success {
		t.Fatal("expected success")
	}
	// avg score 0.2 → confidence 0.8
	if math.Abs(result.Confidence-0.8) > 1e-9 {
		t.Errorf("confidence = %v, want 0.8", result.Confidence)
	}
	if result.TraceID == "" {
		t.Error("trace id should always be set")
	}
	if result.ElapsedMs < 0 {
		t.Errorf("elapsed = %d, want >= 0", result.ElapsedMs)
	}
}
