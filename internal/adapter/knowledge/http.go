package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"knowgate/internal/domain/route"
)

// Config 本地知识库服务（向量/语义检索）的 HTTP 客户端配置
type Config struct {
	BaseURL               string `json:"base_url"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds"`
}

// Client 本地知识库协作方的 HTTP 客户端，实现 route.KnowledgeStore。
// 约定：POST /search {query, k} → {documents: [{content, metadata, score}]}，
// 分数为余弦距离，越低越相关；空索引返回空列表。
type Client struct {
	config Config
	client *http.Client
}

// New 创建知识库客户端
func New(config Config) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	connectTimeout := time.Duration(config.ConnectTimeoutSeconds) * time.Second
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &Client{
		config: config,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// Search 语义检索 k 条最相关文档
func (c *Client) Search(ctx context.Context, query string, k int) ([]route.LocalDocument, error) {
	body, err := json.Marshal(map[string]any{
		"query": query,
		"k":     k,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("knowledge store request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge store status %d", resp.StatusCode)
	}

	var payload struct {
		Documents []route.LocalDocument `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode knowledge store response: %w", err)
	}

	return payload.Documents, nil
}
