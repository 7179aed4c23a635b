package websearch

import (
	"regexp"
	"strings"

	"knowgate/internal/domain/route"
)

// 查询清洗：仅保留单词、空白和少量标点
var queryCleanPattern = regexp.MustCompile(`[^\w\s\-'"]`)

// 各类别的查询增强后缀
var categorySuffixes = map[route.Category]string{
	route.CategoryNews:    "news 2024 2025",
	route.CategorySport:   "sports results",
	route.CategoryFinance: "price market",
	route.CategoryWeather: "weather forecast",
}

// OptimizeQuery 按类别清洗并增强查询串
func OptimizeQuery(query string, category route.Category) string {
	cleaned := strings.TrimSpace(queryCleanPattern.ReplaceAllString(query, ""))
	if suffix, ok := categorySuffixes[category]; ok && !strings.Contains(strings.ToLower(cleaned), suffix) {
		cleaned = strings.TrimSpace(cleaned + " " + suffix)
	}
	return cleaned
}
