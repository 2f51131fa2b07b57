// Package embedding wraps the external embedding model behind a small
// order-preserving batch interface.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"medical-rag/internal/config"
)

// ErrEmbeddingFailed wraps any error surfaced by the external model.
var ErrEmbeddingFailed = errors.New("embedding failed")

// Embedder maps text to fixed-dimension vectors. A batch either fully
// succeeds or fully fails; callers needing partial-failure isolation must
// chunk their own batches.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	// Model identifies the embedding model. Vectors from different model
	// identifiers must never be mixed in one index.
	Model() string
}

// LLMEmbedder backs Embedder with a langchaingo embeddings client.
type LLMEmbedder struct {
	impl  *embeddings.EmbedderImpl
	model string
}

// NewEmbedder builds an embedder from config, dispatching on provider.
func NewEmbedder(cfg *config.LLMConfig) (*LLMEmbedder, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg)
	default:
		return NewOpenAIEmbedder(cfg)
	}
}

// NewOpenAIEmbedder talks to an OpenAI-compatible endpoint (OpenRouter etc).
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*LLMEmbedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedding LLM: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("error creating embedder: %w", err)
	}
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Initialized OpenAI embedder")
	return &LLMEmbedder{impl: impl, model: cfg.Model}, nil
}

// NewOllamaEmbedder talks to a local ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig) (*LLMEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedding LLM: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("error creating embedder: %w", err)
	}
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Initialized ollama embedder")
	return &LLMEmbedder{impl: impl, model: cfg.Model}, nil
}

func (e *LLMEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *LLMEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

func (e *LLMEmbedder) Model() string { return e.model }
