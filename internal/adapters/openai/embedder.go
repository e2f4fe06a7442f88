package openaiad

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder implements domain.Embedder with the OpenAI embeddings endpoint.
type Embedder struct {
	c     *openai.Client
	model openai.EmbeddingModel
}

// New returns an Embedder; baseURL overrides the API endpoint (tests, proxies, compatible servers).
func New(apiKey, baseURL, model string, rps float64) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = NewRetryDoer(rps)
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Embedder{c: openai.NewClientWithConfig(cfg), model: openai.EmbeddingModel(model)}, nil
}

func (e *Embedder) Model() string { return string(e.model) }

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.c.CreateEmbeddings(ctx, openai.EmbeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("openai embeddings: missing vector %d", i)
		}
	}
	return out, nil
}
