package route

import (
	"context"
	"time"
)

// KnowledgeStore 本地知识库（外部协作方，向量/语义检索）。
// 空索引返回空切片而不是错误。
type KnowledgeStore interface {
	Search(ctx context.Context, query string, k int) ([]LocalDocument, error)
}

// WebSearcher 联邦搜索客户端
type WebSearcher interface {
	Search(ctx context.Context, query string, classification QueryClassification) *FederatedResult
}

// AnswerCache 合成结果缓存
type AnswerCache interface {
	Get(fingerprint string) (SynthesizedAnswer, bool)
	Put(fingerprint, query string, category Category, answer SynthesizedAnswer, ttl time.Duration)
}

// CategoryInvalidator 按类别的主动缓存失效
type CategoryInvalidator interface {
	InvalidateIfDue(category Category) int
}

// TraceStore 路由追踪持久化（可选，尽力而为）
type TraceStore interface {
	RecordTrace(ctx context.Context, trace *RouteTrace) error
}
