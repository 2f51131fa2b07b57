// Package retrieval turns a query into ranked, citation-annotated context.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"medical-rag/internal/embedding"
	"medical-rag/internal/index"
	"medical-rag/internal/models"
)

var (
	ErrInvalidK      = errors.New("k must be positive")
	ErrModelMismatch = errors.New("query embedder does not match index model")
)

// Retriever wraps an index with query embedding, optional score
// thresholding, and context/citation formatting.
type Retriever struct {
	index    *index.Index
	embedder embedding.Embedder
	k        int
	// scoreThreshold, when set, strictly excludes results scoring below it.
	scoreThreshold *float64
}

func New(idx *index.Index, embedder embedding.Embedder, k int, scoreThreshold *float64) *Retriever {
	return &Retriever{
		index:          idx,
		embedder:       embedder,
		k:              k,
		scoreThreshold: scoreThreshold,
	}
}

// DefaultK is the configured result count for callers that do not
// override k per query.
func (r *Retriever) DefaultK() int { return r.k }

// Retrieve returns the top-k chunks for the query in rank order. A set
// threshold may shrink the result below k, down to zero.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	results, err := r.RetrieveWithScores(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, len(results))
	for i, result := range results {
		chunks[i] = result.Chunk
	}
	return chunks, nil
}

// RetrieveWithScores is Retrieve keeping the similarity scores.
func (r *Retriever) RetrieveWithScores(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidK, k)
	}
	// An index persisted with model M must only be queried with embeddings
	// from the same M. Mismatch corrupts rankings silently, so fail loudly.
	if r.embedder.Model() != r.index.Model() {
		return nil, fmt.Errorf("%w: index built with %q, embedder is %q", ErrModelMismatch, r.index.Model(), r.embedder.Model())
	}

	log.Info().Str("query", truncate(query, 50)).Int("k", k).Msg("Retrieving documents")

	queryVector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Search(queryVector, k)
	if err != nil {
		return nil, err
	}

	if r.scoreThreshold != nil {
		filtered := results[:0]
		for _, result := range results {
			if result.Score >= *r.scoreThreshold {
				filtered = append(filtered, result)
			}
		}
		results = filtered
	}

	log.Info().Int("retrieved", len(results)).Msg("Retrieved documents")
	return results, nil
}

// FormatContext concatenates chunks in rank order, each under a citation
// header, separated by delimiter lines.
func FormatContext(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		header := fmt.Sprintf("[%d] Source: %s, Page: %d, Chunk: %d",
			i+1, chunk.Source, chunk.PageNumber, chunk.ChunkIndex)
		parts[i] = header + "\n" + chunk.Content
	}
	return strings.Join(parts, models.ContextSeparator)
}

// GetCitations assigns rank = 1-based position in the input order, which
// must already be retrieval-rank order.
func GetCitations(chunks []models.Chunk) []models.Citation {
	citations := make([]models.Citation, len(chunks))
	for i, chunk := range chunks {
		citations[i] = models.Citation{
			Index:      i + 1,
			Source:     chunk.Source,
			PageNumber: chunk.PageNumber,
			ChunkIndex: chunk.ChunkIndex,
			Preview:    preview(chunk.Content),
		}
	}
	return citations
}

func preview(content string) string {
	if truncated := truncate(content, models.CitationPreviewLen); truncated != content {
		return truncated + "..."
	}
	return content
}

// truncate cuts s to at most n runes, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
