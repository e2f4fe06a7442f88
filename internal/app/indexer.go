package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"monobook/internal/domain"
)

// Stable ids make re-indexing overwrite rows instead of growing the table.
var embeddingNamespace = uuid.MustParse("8f0c5a1e-2b7d-4c3e-9a61-5d2f0e4b7c19")

type IndexService struct {
	store    domain.Store
	vectors  domain.EmbeddingRepository
	emb      domain.Embedder
	currency *CurrencyService
	model    string
	workers  int
}

func NewIndexService(store domain.Store, vectors domain.EmbeddingRepository, emb domain.Embedder, currency *CurrencyService, model string, workers int) *IndexService {
	if workers < 1 {
		workers = 1
	}
	return &IndexService{store: store, vectors: vectors, emb: emb, currency: currency, model: model, workers: workers}
}

type document struct {
	source   domain.SourceType
	sourceID string
	content  string
	metadata map[string]any
}

// IndexProperty embeds one property document plus one per active room and upserts them.
// It returns the number of documents written.
func (s *IndexService) IndexProperty(ctx context.Context, propertyID string) (int, error) {
	p, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return 0, fmt.Errorf("get property %s: %w", propertyID, err)
	}
	rooms, err := s.store.ListActiveRooms(ctx, []string{propertyID})
	if err != nil {
		return 0, fmt.Errorf("list rooms %s: %w", propertyID, err)
	}

	codes := make([]string, 0, len(rooms))
	for _, r := range rooms {
		codes = append(codes, r.CurrencyCode)
	}
	displays, err := s.currency.FetchDisplayMap(ctx, codes)
	if err != nil {
		return 0, err
	}

	docs := []document{propertyDocument(p)}
	for _, r := range rooms {
		docs = append(docs, roomDocument(r, displays))
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.content
	}
	vecs, err := s.emb.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", propertyID, err)
	}
	if len(vecs) != len(docs) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d documents", propertyID, len(vecs), len(docs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, d := range docs {
		e := domain.Embedding{
			ID:         uuid.NewSHA1(embeddingNamespace, []byte(string(d.source)+"/"+d.sourceID+"/0")).String(),
			PropertyID: p.ID,
			SourceType: d.source,
			SourceID:   d.sourceID,
			Content:    d.content,
			Metadata:   d.metadata,
			Vector:     vecs[i],
			Model:      s.model,
		}
		g.Go(func() error { return s.vectors.UpsertEmbedding(gctx, e) })
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("upsert embeddings %s: %w", propertyID, err)
	}
	log.Debug().Str("property_id", p.ID).Int("documents", len(docs)).Msg("property indexed")
	return len(docs), nil
}

func propertyDocument(p domain.Property) document {
	parts := []string{p.Name}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	var loc []string
	if p.City != nil && *p.City != "" {
		loc = append(loc, *p.City)
	}
	if p.Country != nil && *p.Country != "" {
		loc = append(loc, *p.Country)
	}
	if len(loc) > 0 {
		parts = append(parts, "Location: "+strings.Join(loc, ", "))
	}
	return document{
		source:   domain.SourceProperty,
		sourceID: p.ID,
		content:  strings.Join(parts, ". "),
		metadata: map[string]any{"name": p.Name},
	}
}

func roomDocument(r domain.Room, displays map[string]string) document {
	code := NormalizeCurrency(r.CurrencyCode)
	parts := []string{r.Name}
	if r.Type != "" {
		parts[0] += " (" + r.Type + ")"
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	parts = append(parts,
		fmt.Sprintf("Price: %.2f %s per night", r.PricePerNight, ResolveCurrencyDisplay(code, displays)),
		fmt.Sprintf("Sleeps up to %d guests", r.MaxGuests))
	if r.BedConfig != "" {
		parts = append(parts, "Beds: "+r.BedConfig)
	}
	if len(r.Amenities) > 0 {
		parts = append(parts, "Amenities: "+strings.Join(r.Amenities, ", "))
	}
	return document{
		source:   domain.SourceRoom,
		sourceID: r.ID,
		content:  strings.Join(parts, ". "),
		metadata: map[string]any{"name": r.Name, "type": r.Type, "price_per_night": r.PricePerNight, "currency": code},
	}
}
