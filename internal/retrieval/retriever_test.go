package retrieval

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-rag/internal/embedding/mock"
	"medical-rag/internal/index"
	"medical-rag/internal/models"
)

func builtIndex(t *testing.T, embedder *mock.Embedder, chunks []models.Chunk) *index.Index {
	t.Helper()
	idx := index.New(embedder)
	require.NoError(t, idx.Build(context.Background(), chunks))
	return idx
}

func corpus() []models.Chunk {
	return []models.Chunk{
		{Content: "Diabetes is a chronic metabolic disorder.", Source: "diabetes.pdf", PageNumber: 1, ChunkIndex: 0, TotalChunks: 2},
		{Content: "Insulin regulates blood glucose levels.", Source: "diabetes.pdf", PageNumber: 1, ChunkIndex: 1, TotalChunks: 2},
		{Content: "Hypertension increases cardiovascular risk.", Source: "heart.pdf", PageNumber: 4, ChunkIndex: 0, TotalChunks: 1},
	}
}

func TestRetrieveInvalidK(t *testing.T) {
	embedder := mock.New()
	r := New(builtIndex(t, embedder, corpus()), embedder, 5, nil)

	for _, k := range []int{0, -1, -10} {
		_, err := r.Retrieve(context.Background(), "what is diabetes", k)
		require.ErrorIs(t, err, ErrInvalidK, "k=%d", k)
	}
}

func TestRetrieveModelMismatch(t *testing.T) {
	embedder := mock.New()
	idx := builtIndex(t, embedder, corpus())

	other := mock.New()
	other.ModelName = "other-embedder"
	r := New(idx, other, 5, nil)

	_, err := r.Retrieve(context.Background(), "what is diabetes", 1)
	require.ErrorIs(t, err, ErrModelMismatch)
}

func TestRetrieveRankOrder(t *testing.T) {
	embedder := mock.New()
	r := New(builtIndex(t, embedder, corpus()), embedder, 5, nil)

	chunks, err := r.Retrieve(context.Background(), "Insulin regulates blood glucose levels.", 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Insulin regulates blood glucose levels.", chunks[0].Content)
}

func TestRetrieveScoreThreshold(t *testing.T) {
	embedder := mock.New()
	embedder.EmbedBatchFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		// First chunk aligned with the query, the rest orthogonal.
		vectors := make([][]float32, len(texts))
		for i := range texts {
			if i == 0 {
				vectors[i] = []float32{1, 0}
			} else {
				vectors[i] = []float32{0, 1}
			}
		}
		return vectors, nil
	}
	embedder.EmbedOneFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	threshold := 0.5
	r := New(builtIndex(t, embedder, corpus()), embedder, 5, &threshold)

	results, err := r.RetrieveWithScores(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	// A threshold above every score strictly excludes all results.
	impossible := 1.1
	r = New(builtIndex(t, embedder, corpus()), embedder, 5, &impossible)
	results, err = r.RetrieveWithScores(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFormatContext(t *testing.T) {
	chunks := corpus()[:2]
	context := FormatContext(chunks)

	assert.Contains(t, context, "[1] Source: diabetes.pdf, Page: 1, Chunk: 0")
	assert.Contains(t, context, "[2] Source: diabetes.pdf, Page: 1, Chunk: 1")
	assert.Contains(t, context, "Diabetes is a chronic metabolic disorder.")
	assert.Contains(t, context, models.ContextSeparator)

	// Headers precede their chunk content.
	assert.Less(t,
		strings.Index(context, "[1] Source:"),
		strings.Index(context, "Diabetes is a chronic"),
	)
}

func TestGetCitations(t *testing.T) {
	long := strings.Repeat("Metformin is first-line therapy for type 2 diabetes. ", 10)
	chunks := []models.Chunk{
		{Content: "Short content.", Source: "a.pdf", PageNumber: 2, ChunkIndex: 1},
		{Content: long, Source: "b.pdf", PageNumber: 7, ChunkIndex: 3},
	}

	citations := GetCitations(chunks)
	require.Len(t, citations, 2)

	assert.Equal(t, 1, citations[0].Index)
	assert.Equal(t, "a.pdf", citations[0].Source)
	assert.Equal(t, 2, citations[0].PageNumber)
	assert.Equal(t, "Short content.", citations[0].Preview)

	assert.Equal(t, 2, citations[1].Index)
	assert.Equal(t, 3, citations[1].ChunkIndex)
	assert.Len(t, citations[1].Preview, models.CitationPreviewLen+3)
	assert.True(t, strings.HasSuffix(citations[1].Preview, "..."))
}

func TestGetCitationsPreviewMultiByte(t *testing.T) {
	// Greek letters are two bytes each; truncation must not split one.
	long := strings.Repeat("β-blockers reduce μ-receptor activity. ", 10)
	citations := GetCitations([]models.Chunk{
		{Content: long, Source: "a.pdf", PageNumber: 1, ChunkIndex: 0},
	})
	require.Len(t, citations, 1)

	preview := citations[0].Preview
	assert.True(t, utf8.ValidString(preview))
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Equal(t, models.CitationPreviewLen+3, utf8.RuneCountInString(preview))
}
