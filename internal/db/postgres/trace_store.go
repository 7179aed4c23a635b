package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"knowgate/internal/domain/route"
)

// TraceStore 路由追踪的 PostgreSQL 存储。
// 写入尽力而为，失败只影响分析数据，不影响请求路径。
type TraceStore struct {
	db *sql.DB
}

// NewTraceStore 创建追踪存储
func NewTraceStore(db *sql.DB) *TraceStore {
	return &TraceStore{db: db}
}

// EnsureTraceTable 确保追踪表存在
func (s *TraceStore) EnsureTraceTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS route_traces (
			id              UUID PRIMARY KEY,
			query           TEXT NOT NULL,
			category        TEXT NOT NULL,
			routing_method  TEXT NOT NULL,
			cached          BOOLEAN NOT NULL,
			success         BOOLEAN NOT NULL,
			confidence      DOUBLE PRECISION NOT NULL,
			local_hits      INTEGER NOT NULL DEFAULT 0,
			elapsed_ms      BIGINT NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_route_traces_created_at ON route_traces (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_route_traces_category ON route_traces (category);
	`)
	if err != nil {
		return fmt.Errorf("ensure route_traces table: %w", err)
	}
	return nil
}

// RecordTrace 写入一条路由追踪
func (s *TraceStore) RecordTrace(ctx context.Context, trace *route.RouteTrace) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_traces
			(id, query, category, routing_method, cached, success, confidence, local_hits, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		trace.ID,
		trace.Query,
		string(trace.Category),
		string(trace.RoutingMethod),
		trace.Cached,
		trace.Success,
		trace.Confidence,
		trace.LocalHits,
		trace.ElapsedMs,
		trace.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert route trace: %w", err)
	}
	return nil
}

// RecentTraces 返回最近 limit 条追踪（分析接口用）
func (s *TraceStore) RecentTraces(ctx context.Context, limit int) ([]route.RouteTrace, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, category, routing_method, cached, success, confidence, local_hits, elapsed_ms, created_at
		FROM route_traces
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query route traces: %w", err)
	}
	defer rows.Close()

	var traces []route.RouteTrace
	for rows.Next() {
		var t route.RouteTrace
		var category, method string
		if err := rows.Scan(&t.ID, &t.Query, &category, &method, &t.Cached, &t.Success, &t.Confidence, &t.LocalHits, &t.ElapsedMs, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan route trace: %w", err)
		}
		t.Category = route.Category(category)
		t.RoutingMethod = route.RoutingMethod(method)
		traces = append(traces, t)
	}
	return traces, rows.Err()
}
