package route

import (
	"fmt"
	"strings"

	"knowgate/internal/provider"
)

// ── ResponseSynthesizer ──────────────────────────────────────

// maxSynthesizedHits 合成回答最多使用的命中数
const maxSynthesizedHits = 5

// fallbackConfidence 无结果兜底回答的置信度
const fallbackConfidence = 0.3

// Synthesize 将排序后的命中合成为最终回答。
// 永不失败：无数据时降级为低置信度兜底文案，而不是错误。
func Synthesize(hits []provider.RawHit, query string, category Category) SynthesizedAnswer {
	snippets := make([]string, 0, maxSynthesizedHits)
	sources := make([]SourceRef, 0, maxSynthesizedHits)

	for _, h := range hits {
		if len(snippets) >= maxSynthesizedHits {
			break
		}
		if strings.TrimSpace(h.Snippet) == "" {
			continue
		}
		snippets = append(snippets, h.Snippet)
		sources = append(sources, SourceRef{
			Title:          h.Title,
			URL:            h.URL,
			ProviderSource: h.ProviderSource,
			Relevance:      h.Relevance,
		})
	}

	if len(snippets) == 0 {
		return SynthesizedAnswer{
			Text:       FallbackText(query),
			Sources:    nil,
			Confidence: fallbackConfidence,
		}
	}

	var text string
	switch category {
	case CategoryNews:
		text = renderNews(snippets, sources, query)
	case CategorySport:
		text = renderSport(snippets, sources, query)
	default:
		text = renderGeneral(snippets, sources, query)
	}

	confidence := 0.4 + 0.1*float64(len(snippets))
	if confidence > 0.8 {
		confidence = 0.8
	}

	return SynthesizedAnswer{
		Text:       text,
		Sources:    sources,
		Confidence: confidence,
	}
}

// FallbackText 搜索无结果或全部失败时的兜底文案
func FallbackText(query string) string {
	return fmt.Sprintf(`I couldn't find enough information about %q in the knowledge base, and web search didn't return usable results.

🔍 Suggestions:
• Rephrase your question with more specific terms
• Check the spelling of key words
• Try different keywords`, query)
}

func renderNews(snippets []string, sources []SourceRef, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📰 News about %q:\n\n", query)
	sb.WriteString("Here is the latest information found:\n\n")
	for i, s := range snippets {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, s)
	}
	sb.WriteString("📍 Sources:\n")
	writeSourceList(&sb, sources, 3)
	return strings.TrimSpace(sb.String())
}

func renderSport(snippets []string, sources []SourceRef, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "⚽ Sports update on %q:\n\n", query)
	for i, s := range snippets {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, s)
	}
	if len(sources) > 0 {
		sb.WriteString("🏆 Sources:\n")
		writeSourceList(&sb, sources, 3)
	}
	return strings.TrimSpace(sb.String())
}

func renderGeneral(snippets []string, sources []SourceRef, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 Information about %q:\n\n", query)
	sb.WriteString(snippets[0])
	sb.WriteString("\n\n")
	if len(snippets) > 1 {
		extra := snippets[1:]
		if len(extra) > 2 {
			extra = extra[:2]
		}
		sb.WriteString("Additional details:\n")
		for _, s := range extra {
			fmt.Fprintf(&sb, "• %s\n", s)
		}
		sb.WriteString("\n")
	}
	if len(sources) > 0 {
		sb.WriteString("📚 Sources:\n")
		writeSourceList(&sb, sources, 3)
	}
	return strings.TrimSpace(sb.String())
}

func writeSourceList(sb *strings.Builder, sources []SourceRef, max int) {
	for i, src := range sources {
		if i >= max {
			break
		}
		fmt.Fprintf(sb, "• %s - %s\n", src.Title, src.URL)
	}
}
