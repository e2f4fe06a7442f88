package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"monobook/internal/domain"
)

// Searcher ranks a property's stored embeddings by cosine similarity to the query text.
type Searcher struct {
	repo domain.EmbeddingRepository
	emb  domain.Embedder
}

func New(repo domain.EmbeddingRepository, emb domain.Embedder) *Searcher {
	return &Searcher{repo: repo, emb: emb}
}

func (s *Searcher) Search(ctx context.Context, propertyID, text string, limit int, threshold float64) ([]domain.SemanticHit, error) {
	vecs, err := s.emb.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errors.New("semantic: embedder returned no vector")
	}
	q := vecs[0]

	rows, err := s.repo.ListEmbeddings(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("semantic: list embeddings: %w", err)
	}
	hits := make([]domain.SemanticHit, 0, len(rows))
	for _, r := range rows {
		sim := Cosine(q, r.Vector)
		if sim < threshold {
			continue
		}
		hits = append(hits, domain.SemanticHit{
			SourceType: r.SourceType,
			SourceID:   r.SourceID,
			Content:    r.Content,
			Similarity: sim,
			Metadata:   r.Metadata,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Cosine returns 0 for mismatched or zero-length vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
