// Package index implements an in-memory vector index with cosine
// similarity search and single-file persistence.
package index

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"medical-rag/internal/embedding"
	"medical-rag/internal/helper"
	"medical-rag/internal/models"
)

var (
	ErrEmptyCorpus       = errors.New("cannot build index from empty chunk list")
	ErrNoIndexBuilt      = errors.New("no index built or loaded")
	ErrIndexNotFound     = errors.New("no valid index found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrModelMismatch     = errors.New("embedding model mismatch")
)

// Index stores (vector, chunk) pairs in insertion order together with the
// identifier of the embedding model that produced the vectors. Vectors are
// L2-normalized on insert so search reduces to a dot product. Not safe for
// concurrent mutation; single-writer, single-reader discipline is the
// caller's responsibility.
type Index struct {
	embedder embedding.Embedder

	id        string
	modelID   string
	dimension int
	vectors   [][]float32
	chunks    []models.Chunk
}

// persistedIndex is the on-disk gob layout. It round-trips the full vector
// set, chunk metadata, and the embedding-model identifier.
type persistedIndex struct {
	ID        string
	ModelID   string
	Dimension int
	Vectors   [][]float32
	Chunks    []models.Chunk
}

func New(embedder embedding.Embedder) *Index {
	return &Index{embedder: embedder}
}

// Build embeds all chunk contents and populates the index. All-or-nothing:
// an embedding failure leaves the index unbuilt.
func (idx *Index) Build(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyCorpus
	}

	log.Info().Int("chunks", len(chunks)).Msg("Building vector index")

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed corpus: %w", err)
	}

	dimension := len(vectors[0])
	normalized := make([][]float32, len(vectors))
	for i, vector := range vectors {
		if len(vector) != dimension {
			return fmt.Errorf("%w: vector %d has %d dims, expected %d", ErrDimensionMismatch, i, len(vector), dimension)
		}
		normalized[i] = normalize(vector)
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}

	idx.id = id
	idx.modelID = idx.embedder.Model()
	idx.dimension = dimension
	idx.vectors = normalized
	idx.chunks = append([]models.Chunk(nil), chunks...)

	log.Info().Str("index_id", idx.id).Str("model", idx.modelID).Int("dimension", dimension).
		Int("vectors", len(normalized)).Msg("Built vector index")
	return nil
}

// Append embeds and adds chunks to an already built or loaded index. The
// embedder's model identifier must match the one the index was built with.
func (idx *Index) Append(ctx context.Context, chunks []models.Chunk) error {
	if !idx.built() {
		return ErrNoIndexBuilt
	}
	if len(chunks) == 0 {
		return nil
	}
	if idx.embedder.Model() != idx.modelID {
		return fmt.Errorf("%w: index built with %q, embedder is %q", ErrModelMismatch, idx.modelID, idx.embedder.Model())
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	for i, vector := range vectors {
		if len(vector) != idx.dimension {
			return fmt.Errorf("%w: vector %d has %d dims, expected %d", ErrDimensionMismatch, i, len(vector), idx.dimension)
		}
	}

	for i, vector := range vectors {
		idx.vectors = append(idx.vectors, normalize(vector))
		idx.chunks = append(idx.chunks, chunks[i])
	}
	log.Info().Int("added", len(chunks)).Int("total", len(idx.chunks)).Msg("Appended chunks to index")
	return nil
}

// Search returns the k nearest chunks by cosine similarity, best first.
// Ties keep insertion order. Fewer than k stored chunks returns all of
// them; k <= 0 returns none.
func (idx *Index) Search(queryVector []float32, k int) ([]models.SearchResult, error) {
	if !idx.built() {
		return nil, ErrNoIndexBuilt
	}
	if len(queryVector) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", ErrDimensionMismatch, len(queryVector), idx.dimension)
	}

	query := normalize(queryVector)
	results := make([]models.SearchResult, len(idx.vectors))
	for i, vector := range idx.vectors {
		results[i] = models.SearchResult{Chunk: idx.chunks[i], Score: dot(vector, query)}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if k < 0 {
		k = 0
	}
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Persist serializes the index to a single file at path.
func (idx *Index) Persist(path string) error {
	if !idx.built() {
		return ErrNoIndexBuilt
	}
	if err := helper.CreateFolder(filepath.Dir(path)); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file %s: %w", path, err)
	}
	defer f.Close()

	state := persistedIndex{
		ID:        idx.id,
		ModelID:   idx.modelID,
		Dimension: idx.dimension,
		Vectors:   idx.vectors,
		Chunks:    idx.chunks,
	}
	if err := gob.NewEncoder(f).Encode(&state); err != nil {
		return fmt.Errorf("failed to encode index to %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("vectors", len(idx.vectors)).Msg("Persisted index")
	return nil
}

// Load reads a persisted index wholesale from path, replacing any state
// held by the receiver.
func (idx *Index) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return fmt.Errorf("failed to open index file %s: %w", path, err)
	}
	defer f.Close()

	var state persistedIndex
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIndexNotFound, path, err)
	}
	if state.Dimension <= 0 || len(state.Vectors) != len(state.Chunks) {
		return fmt.Errorf("%w: %s: inconsistent state", ErrIndexNotFound, path)
	}
	for i, vector := range state.Vectors {
		if len(vector) != state.Dimension {
			return fmt.Errorf("%w: vector %d has %d dims, expected %d", ErrDimensionMismatch, i, len(vector), state.Dimension)
		}
	}

	idx.id = state.ID
	idx.modelID = state.ModelID
	idx.dimension = state.Dimension
	idx.vectors = state.Vectors
	idx.chunks = state.Chunks

	log.Info().Str("path", path).Str("model", idx.modelID).Int("vectors", len(idx.vectors)).Msg("Loaded index")
	return nil
}

func (idx *Index) ID() string    { return idx.id }
func (idx *Index) Model() string { return idx.modelID }
func (idx *Index) Size() int     { return len(idx.chunks) }

func (idx *Index) built() bool { return idx.dimension > 0 }

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return append([]float32(nil), v...)
	}
	norm := float32(math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = val / norm
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
