// Package chunker splits page text into overlapping fixed-size chunks.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"medical-rag/internal/models"
)

var ErrInvalidOverlap = errors.New("chunk overlap must be smaller than chunk size")

// Chunker produces chunks via recursive character splitting: coarse
// separators first, finer ones for pieces that still exceed the limit,
// raw character slicing as the last resort.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// New creates a chunker. Overlap >= size can never shrink a piece, so it
// is rejected up front.
func New(chunkSize, chunkOverlap int, separators []string) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: size=%d", ErrInvalidOverlap, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidOverlap, chunkSize, chunkOverlap)
	}
	if separators == nil {
		separators = models.DefaultSeparators
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(separators),
	)

	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter:     splitter,
	}, nil
}

// ChunkPages splits each page into chunks and assigns per-page
// ChunkIndex/TotalChunks bookkeeping. Whitespace-only pages produce zero
// chunks.
func (c *Chunker) ChunkPages(pages []models.Page) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, page := range pages {
		pageChunks, err := c.chunkPage(page)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s page %d: %w", page.Source, page.PageNumber, err)
		}
		chunks = append(chunks, pageChunks...)
	}
	log.Info().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Created chunks from pages")
	return chunks, nil
}

// ChunkText splits a bare string, useful for callers without page metadata.
func (c *Chunker) ChunkText(text, source string) ([]models.Chunk, error) {
	return c.chunkPage(models.Page{Text: text, PageNumber: 1, Source: source, TotalPages: 1})
}

func (c *Chunker) chunkPage(page models.Page) ([]models.Chunk, error) {
	if strings.TrimSpace(page.Text) == "" {
		return nil, nil
	}

	pieces, err := c.splitter.SplitText(page.Text)
	if err != nil {
		return nil, err
	}

	kept := pieces[:0]
	for _, piece := range pieces {
		if strings.TrimSpace(piece) != "" {
			kept = append(kept, piece)
		}
	}

	chunks := make([]models.Chunk, 0, len(kept))
	for i, piece := range kept {
		chunks = append(chunks, models.Chunk{
			Content:     piece,
			Source:      page.Source,
			PageNumber:  page.PageNumber,
			ChunkIndex:  i,
			TotalChunks: len(kept),
		})
	}
	return chunks, nil
}
