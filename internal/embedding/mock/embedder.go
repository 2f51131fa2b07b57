// Package mock provides a deterministic test double for embedding.Embedder.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder generates deterministic vectors from a text hash so tests get
// stable similarity rankings without a real model.
type Embedder struct {
	Dim       int
	ModelName string

	// EmbedBatchFunc overrides EmbedBatch when set.
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedOneFunc overrides EmbedOne when set.
	EmbedOneFunc func(ctx context.Context, text string) ([]float32, error)

	Calls int
}

func New() *Embedder {
	return &Embedder{Dim: 32, ModelName: "mock-embedder"}
}

func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, m.Dim)
	}
	return vectors, nil
}

func (m *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	m.Calls++
	if m.EmbedOneFunc != nil {
		return m.EmbedOneFunc(ctx, text)
	}
	return deterministicVector(text, m.Dim), nil
}

func (m *Embedder) Model() string { return m.ModelName }

// deterministicVector hashes the text into an LCG seed and emits a unit
// vector. Same text, same vector, always.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000)/1000.0 - 0.5
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector
}
