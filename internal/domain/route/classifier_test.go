package route_test

import (
	"testing"

	"knowgate/internal/domain/route"
)

// TestClassifyCategories 测试关键词分类与实时性判定
func TestClassifyCategories(t *testing.T) {
	cases := []struct {
		name          string
		query         string
		category      route.Category
		needsRealtime bool
		urgency       route.Urgency
	}{
		{"finance with temporal", "bitcoin price today", route.CategoryFinance, true, route.UrgencyNormal},
		{"news is always high urgency", "latest news about elections", route.CategoryNews, true, route.UrgencyHigh},
		{"sport", "champions league final score", route.CategorySport, false, route.UrgencyNormal},
		{"weather forces realtime", "weather in Paris", route.CategoryWeather, true, route.UrgencyNormal},
		{"static domain", "explain the Pythagorean theorem", route.CategoryStatic, false, route.UrgencyNormal},
		{"question word fallback", "how do plants grow", route.CategoryInformation, false, route.UrgencyNormal},
		{"plain general", "golang generics tutorial", route.CategoryGeneral, false, route.UrgencyNormal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := route.Classify(tc.query)
			if c.Category != tc.category {
				t.Errorf("category = %s, want %s", c.Category, tc.category)
			}
			if c.NeedsRealtime != tc.needsRealtime {
				t.Errorf("needs_realtime = %v, want %v", c.NeedsRealtime, tc.needsRealtime)
			}
			if c.Urgency != tc.urgency {
				t.Errorf("urgency = %s, want %s", c.Urgency, tc.urgency)
			}
		})
	}
}

// TestClassifyStaticOverridesTemporal 静态领域强制覆盖时间关键词
func TestClassifyStaticOverridesTemporal(t *testing.T) {
	c := route.Classify("what is the quadratic equation today")
	if c.Category != route.CategoryStatic {
		t.Fatalf("category = %s, want static", c.Category)
	}
	if c.NeedsRealtime {
		t.Error("static queries must never need realtime data, even with temporal keywords")
	}
}

// TestClassifyEmptyQuery 空查询归为 general
func TestClassifyEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		c := route.Classify(q)
		if c.Category != route.CategoryGeneral {
			t.Errorf("Classify(%q).Category = %s, want general", q, c.Category)
		}
		if c.NeedsRealtime {
			t.Errorf("Classify(%q).NeedsRealtime = true, want false", q)
		}
		if c.Urgency != route.UrgencyNormal {
			t.Errorf("Classify(%q).Urgency = %s, want normal", q, c.Urgency)
		}
	}
}

// TestClassifyUrgencyKeyword 紧急关键词提升紧急度
func TestClassifyUrgencyKeyword(t *testing.T) {
	c := route.Classify("emergency evacuation routes near me")
	if c.Urgency != route.UrgencyHigh {
		t.Errorf("urgency = %s, want high", c.Urgency)
	}
}

// TestClassifyDeterministic 同一查询分类结果必须稳定
func TestClassifyDeterministic(t *testing.T) {
	first := route.Classify("bitcoin price today")
	for i := 0; i < 10; i++ {
		if got := route.Classify("bitcoin price today"); got != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}
