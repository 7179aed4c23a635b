package route_test

import (
	"testing"

	"knowgate/internal/domain/route"
)

// TestFingerprintDeterministic 同一输入必然得到同一指纹
func TestFingerprintDeterministic(t *testing.T) {
	ctx := map[string]string{"query_type": "finance", "domain": "crypto"}
	first := route.Fingerprint("bitcoin price today", ctx)
	for i := 0; i < 5; i++ {
		if got := route.Fingerprint("bitcoin price today", ctx); got != first {
			t.Fatalf("fingerprint changed between calls: %s vs %s", got, first)
		}
	}
	if len(first) != 32 {
		t.Errorf("fingerprint length = %d, want 32 hex chars", len(first))
	}
}

// TestFingerprintNormalizesQuery 大小写与首尾空白不影响指纹
func TestFingerprintNormalizesQuery(t *testing.T) {
	a := route.Fingerprint("Bitcoin Price Today", nil)
	b := route.Fingerprint("  bitcoin price today  ", nil)
	if a != b {
		t.Errorf("normalized queries should share a fingerprint: %s vs %s", a, b)
	}
}

// TestFingerprintContextSensitive 上下文不同则指纹不同
func TestFingerprintContextSensitive(t *testing.T) {
	base := route.Fingerprint("bitcoin price", map[string]string{"query_type": "finance"})
	other := route.Fingerprint("bitcoin price", map[string]string{"query_type": "news"})
	if base == other {
		t.Error("different context values must produce different fingerprints")
	}
}

// TestFingerprintIgnoresEmptyContextValues 空值上下文键不参与指纹
func TestFingerprintIgnoresEmptyContextValues(t *testing.T) {
	a := route.Fingerprint("bitcoin price", map[string]string{"query_type": "finance", "domain": ""})
	b := route.Fingerprint("bitcoin price", map[string]string{"query_type": "finance"})
	if a != b {
		t.Errorf("empty context values should be ignored: %s vs %s", a, b)
	}
}

// TestFingerprintKeyOrderIndependent 上下文键序不影响指纹
func TestFingerprintKeyOrderIndependent(t *testing.T) {
	// map 迭代顺序随机，多轮重复即覆盖不同顺序
	ctx := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}
	first := route.Fingerprint("q", ctx)
	for i := 0; i < 20; i++ {
		if got := route.Fingerprint("q", ctx); got != first {
			t.Fatal("fingerprint depends on map iteration order")
		}
	}
}
