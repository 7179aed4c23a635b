package route

import (
	"net/url"
	"sort"
	"strings"

	"knowgate/internal/provider"
)

// ── ResultRanker ─────────────────────────────────────────────

// maxRankedHits 排序后保留的命中上限
const maxRankedHits = 10

// 可信域名白名单：命中加分
var trustedDomains = []string{
	"wikipedia.org", "bbc.com", "reuters.com", "cnn.com",
	"apnews.com", "bloomberg.com", "theguardian.com",
	"github.com", "stackoverflow.com", "medium.com",
	"techcrunch.com", "wired.com", "arstechnica.com",
}

// 时效性标记：出现在标题或摘要中加分
var recencyMarkers = []string{"2024", "2025", "latest", "new"}

// Rank 对原始命中重新评分、按分数降序排列、按 URL 去重并截断。
// 纯函数且幂等：Rank(Rank(hits)) == Rank(hits)。
func Rank(hits []provider.RawHit) []provider.RawHit {
	if len(hits) == 0 {
		return nil
	}

	ranked := make([]provider.RawHit, len(hits))
	copy(ranked, hits)

	for i := range ranked {
		ranked[i].Relevance = scoreHit(&ranked[i])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Relevance != ranked[j].Relevance {
			return ranked[i].Relevance > ranked[j].Relevance
		}
		return ranked[i].URL < ranked[j].URL
	})

	// URL 去重，保留得分最高的一条；空 URL 不参与去重
	seen := make(map[string]bool, len(ranked))
	deduped := ranked[:0]
	for _, h := range ranked {
		if h.URL != "" {
			if seen[h.URL] {
				continue
			}
			seen[h.URL] = true
		}
		deduped = append(deduped, h)
	}

	if len(deduped) > maxRankedHits {
		deduped = deduped[:maxRankedHits]
	}

	out := make([]provider.RawHit, len(deduped))
	copy(out, deduped)
	return out
}

// scoreHit 计算单条命中的相关性分数，范围 [0.1, 1.0]
func scoreHit(h *provider.RawHit) float64 {
	score := 0.5

	if host := hostOf(h.URL); host != "" {
		for _, d := range trustedDomains {
			if host == d || strings.HasSuffix(host, "."+d) {
				score += 0.2
				break
			}
		}
	}

	text := strings.ToLower(h.Title + " " + h.Snippet)
	for _, m := range recencyMarkers {
		if strings.Contains(text, m) {
			score += 0.1
			break
		}
	}

	if len(strings.Fields(text)) < 10 {
		score -= 0.1
	}

	if score < 0.1 {
		score = 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
