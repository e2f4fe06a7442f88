package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"monobook/internal/app"
	"monobook/internal/domain"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	texts []string
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i + 1), 0}
	}
	return out, nil
}

func TestIndexProperty(t *testing.T) {
	s := newFixture()
	deps := newDeps(s)
	emb := &countingEmbedder{}
	svc := app.NewIndexService(s, s, emb, deps.Currency, "test-model", 2)

	n, err := svc.IndexProperty(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("IndexProperty: %v", err)
	}
	// property + room-1 + room-2; the draft room is skipped
	if n != 3 || len(s.Vectors) != 3 || emb.calls != 1 {
		t.Fatalf("want 3 docs in one batch, got n=%d stored=%d calls=%d", n, len(s.Vectors), emb.calls)
	}
	if !strings.Contains(emb.texts[0], "Location: Volosyanka, Ukraine") {
		t.Fatalf("property doc: %q", emb.texts[0])
	}
	if !strings.Contains(emb.texts[1], "Panorama Suite (Suite)") || !strings.Contains(emb.texts[1], "120.00 $ per night") {
		t.Fatalf("room doc: %q", emb.texts[1])
	}

	// re-indexing overwrites in place
	if _, err := svc.IndexProperty(context.Background(), "prop-1"); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if len(s.Vectors) != 3 {
		t.Fatalf("want 3 rows after reindex, got %d", len(s.Vectors))
	}
	ids := map[string]bool{}
	for _, v := range s.Vectors {
		ids[v.ID] = true
		if v.Model != "test-model" || v.PropertyID != "prop-1" {
			t.Fatalf("unexpected row: %+v", v)
		}
	}
	if len(ids) != 3 {
		t.Fatalf("want distinct stable ids, got %v", ids)
	}
}

func TestIndexProperty_Errors(t *testing.T) {
	s := newFixture()
	deps := newDeps(s)

	svc := app.NewIndexService(s, s, &countingEmbedder{}, deps.Currency, "m", 1)
	if _, err := svc.IndexProperty(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	boom := errors.New("boom")
	svc = app.NewIndexService(s, s, &countingEmbedder{err: boom}, deps.Currency, "m", 1)
	if _, err := svc.IndexProperty(context.Background(), "prop-2"); !errors.Is(err, boom) {
		t.Fatalf("want embed error, got %v", err)
	}

	s.FailUpsert = boom
	svc = app.NewIndexService(s, s, &countingEmbedder{}, deps.Currency, "m", 1)
	if _, err := svc.IndexProperty(context.Background(), "prop-2"); !errors.Is(err, boom) {
		t.Fatalf("want upsert error, got %v", err)
	}
}
