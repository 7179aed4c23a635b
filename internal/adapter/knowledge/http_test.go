package knowledge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"knowgate/internal/adapter/knowledge"
)

// TestSearchRoundtrip 请求体与响应解析
func TestSearchRoundtrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodPost {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req struct {
			Query string `json:"query"`
			K     int    `json:"k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Query != "pythagorean theorem" || req.K != 5 {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{
			"documents": [
				{"content": "a² + b² = c²", "metadata": {"source": "math.md"}, "score": 0.12},
				{"content": "Applies to right triangles.", "score": 0.34}
			]
		}`))
	}))
	defer srv.Close()

	client := knowledge.New(knowledge.Config{BaseURL: srv.URL})
	docs, err := client.Search(context.Background(), "pythagorean theorem", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("docs = %d, want 2", len(docs))
	}
	if docs[0].Score != 0.12 || docs[0].Metadata["source"] != "math.md" {
		t.Errorf("doc = %+v", docs[0])
	}
}

// TestSearchServerError 非 200 返回错误
func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := knowledge.New(knowledge.Config{BaseURL: srv.URL})
	if _, err := client.Search(context.Background(), "q", 3); err == nil {
		t.Error("expected error on HTTP 500")
	}
}
