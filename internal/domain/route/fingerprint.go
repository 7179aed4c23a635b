package route

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint 由归一化查询文本和相关上下文子集派生确定性缓存键。
// 语义相同的两次请求必然得到同一指纹；上下文不同则指纹不同。
func Fingerprint(query string, context map[string]string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))

	keys := make([]string, 0, len(context))
	for k, v := range context {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(normalized)
	for _, k := range keys {
		sb.WriteString("|")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(context[k])
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%x", hash[:16])
}
