package ai

import (
	"context"

	"github.com/sashabaranov/go-openai"

	aierrors "github.com/hrygo/quillnote/internal/errors"
	"github.com/hrygo/quillnote/internal/observability"
)

// Embedder is the vector embedding port.
type Embedder interface {
	// GenerateEmbedding returns the provider vector for text.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type embedder struct {
	client     *openai.Client
	provider   string
	model      string
	dimensions int
}

// NewEmbedder creates an Embedder for an OpenAI-compatible provider.
func NewEmbedder(cfg *EmbeddingConfig) (Embedder, error) {
	client, err := newClient(cfg.Provider, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	return &embedder{
		client:     client,
		provider:   cfg.Provider,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (s *embedder) GenerateEmbedding(ctx context.Context, text string) (vector []float32, err error) {
	ctx, span := observability.StartProviderSpan(ctx, "embedding", s.provider, s.model)
	defer func() { observability.EndSpan(span, err) }()

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.model),
	}
	// Ollama rejects the dimensions field.
	if s.provider != "ollama" {
		req.Dimensions = s.dimensions
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classifyError(ctx, err, "create embeddings failed")
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, aierrors.MalformedResponse("empty embedding response")
	}

	return resp.Data[0].Embedding, nil
}
