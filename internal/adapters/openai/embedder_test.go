package openaiad_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	openaiad "monobook/internal/adapters/openai"
)

func embeddingsServer(t *testing.T, failures int32, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(hits, 1)
		if r.URL.Path != "/v1/embeddings" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if n <= failures {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		// answer out of order to exercise index mapping
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
}

func TestEmbedder_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := embeddingsServer(t, 2, &hits)
	defer ts.Close()

	e, err := openaiad.New("test-key", ts.URL+"/v1", "text-embedding-3-small", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := e.Embed(ctx, []string{"sea view", "family loft"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[0][0] != 0 || got[1][0] != 1 {
		t.Fatalf("unexpected vectors: %+v", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestEmbedder_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	ts := embeddingsServer(t, 100, &hits)
	defer ts.Close()

	e, err := openaiad.New("test-key", ts.URL+"/v1", "", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := e.Embed(ctx, []string{"x"}); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if atomic.LoadInt32(&hits) != 4 {
		t.Fatalf("expected 4 attempts, got %d", hits)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := openaiad.New("", "", "", 1); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
