package route

import (
	"regexp"
	"strings"
)

// ── QueryClassifier ──────────────────────────────────────────

// 时间敏感关键词：命中任意一个即认为需要实时数据
var temporalPattern = regexp.MustCompile(`\b(now|currently|live|today|yesterday|tomorrow|tonight|this week|this month|latest|recent|newest|breaking|urgent|flash|2024|2025)\b`)

// 紧急关键词
var urgencyPattern = regexp.MustCompile(`\b(urgent|breaking|emergency|alert)\b`)

// 疑问词：命中归为 information 类
var questionPattern = regexp.MustCompile(`\b(how|why|what|which|where|when|who)\b`)

// 按优先级排列的类别关键词表（news > sport > finance > weather > static）
var categoryKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryNews, []string{"news", "headline", "breaking", "urgent", "press"}},
	{CategorySport, []string{"match", "football", "soccer", "sport", "score", "championship", "league", "tournament", "cup final"}},
	{CategoryFinance, []string{"bitcoin", "ethereum", "crypto", "stock", "price", "market", "trading", "exchange rate", "nasdaq"}},
	{CategoryWeather, []string{"weather", "temperature", "forecast", "rain", "snow", "humidity"}},
	{CategoryStatic, []string{
		"math", "theorem", "equation", "physics", "chemistry", "biology",
		"ancient history", "literature", "philosophy", "geography",
		"definition", "define", "meaning of", "grammar", "syntax",
	}},
}

// Classify 对查询文本做确定性分类。无 I/O，无副作用。
// 空查询归为 general 且不需要实时数据。
func Classify(query string) QueryClassification {
	c := QueryClassification{
		Category: CategoryGeneral,
		Urgency:  UrgencyNormal,
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c
	}

	c.NeedsRealtime = temporalPattern.MatchString(q)

	matched := false
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(q, w) {
				c.Category = entry.category
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	if !matched && questionPattern.MatchString(q) {
		c.Category = CategoryInformation
	}

	switch c.Category {
	case CategoryWeather:
		// 天气永远是实时需求
		c.NeedsRealtime = true
	case CategoryStatic:
		// 静态领域（数学、历史、定义）不随时间变化，强制覆盖时间关键词
		c.NeedsRealtime = false
	}

	if c.Category == CategoryNews || urgencyPattern.MatchString(q) {
		c.Urgency = UrgencyHigh
	}

	return c
}
