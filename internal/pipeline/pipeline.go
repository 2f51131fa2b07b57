// Package pipeline composes extraction, chunking, indexing, retrieval and
// generation into the ingest and query workflows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"medical-rag/internal/chunker"
	"medical-rag/internal/config"
	"medical-rag/internal/embedding"
	"medical-rag/internal/extract"
	"medical-rag/internal/generation"
	"medical-rag/internal/helper"
	"medical-rag/internal/index"
	"medical-rag/internal/models"
	"medical-rag/internal/retrieval"
)

var (
	ErrNoPagesExtracted = errors.New("no pages extracted from document(s)")
	ErrNoIndexLoaded    = errors.New("no index loaded, ingest documents or load an index first")
)

// Pipeline owns the index handle across ingest and query. Single-threaded
// use only; ingest and query must not run concurrently on one instance.
type Pipeline struct {
	cfg      *config.Config
	embedder embedding.Embedder
	chunker  *chunker.Chunker
	index    *index.Index

	retriever *retrieval.Retriever
	// generator is initialized lazily on the first query; ingestion never
	// touches it.
	generator *generation.Generator
}

func New(cfg *config.Config, embedder embedding.Embedder) (*Pipeline, error) {
	c, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, models.DefaultSeparators)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:      cfg,
		embedder: embedder,
		chunker:  c,
		index:    index.New(embedder),
	}, nil
}

// Ingest resolves path (file or directory) to pages, chunks them, builds
// the vector index, persists it, and binds a retriever to the new index.
func (p *Pipeline) Ingest(ctx context.Context, path string) error {
	log.Info().Str("path", path).Msg("Ingesting documents")

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("invalid ingest path %s: %w", path, err)
	}

	var pages []models.Page
	if info.IsDir() {
		pages, err = extract.Dir(path)
	} else {
		pages, err = extract.File(path)
	}
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", path, err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("%w: %s", ErrNoPagesExtracted, path)
	}

	chunks, err := p.chunker.ChunkPages(pages)
	if err != nil {
		return err
	}

	if err := p.index.Build(ctx, chunks); err != nil {
		return fmt.Errorf("failed to build index for %s: %w", path, err)
	}
	if err := p.index.Persist(p.cfg.RAG.IndexPath); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}

	p.bindRetriever()
	log.Info().Str("path", path).Int("chunks", p.index.Size()).Msg("Document ingestion completed")
	return nil
}

// LoadIndex reloads a previously persisted index and binds a retriever.
func (p *Pipeline) LoadIndex() error {
	if err := p.index.Load(p.cfg.RAG.IndexPath); err != nil {
		return err
	}
	p.bindRetriever()
	return nil
}

// Index exposes the pipeline's index handle, mainly for append workflows.
func (p *Pipeline) Index() *index.Index { return p.index }

func (p *Pipeline) bindRetriever() {
	p.retriever = retrieval.New(p.index, p.embedder, p.cfg.RAG.RetrievalK, p.cfg.RAG.ScoreThreshold)
}

// Query answers a question against the ingested corpus. k <= 0 uses the
// configured default. Zero retrieved chunks short-circuits to a fixed
// no-information response without invoking the generator.
func (p *Pipeline) Query(ctx context.Context, question string, k int) (*models.QueryResponse, error) {
	if p.retriever == nil {
		return nil, ErrNoIndexLoaded
	}
	if k <= 0 {
		k = p.retriever.DefaultK()
	}

	chunks, err := p.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		return &models.QueryResponse{
			Answer:    models.NoInformationAnswer,
			Citations: []models.Citation{},
			Question:  question,
		}, nil
	}

	contextText := retrieval.FormatContext(chunks)
	citations := retrieval.GetCitations(chunks)

	if p.generator == nil {
		p.generator = generation.New(&p.cfg.GenLLM)
	}

	// Demo mode when the configured model artifact is missing on disk.
	useDemo := p.cfg.GenLLM.ModelPath != "" && !helper.FileExists(p.cfg.GenLLM.ModelPath)

	result, err := p.generator.Generate(ctx, question, contextText, citations, useDemo)
	if err != nil {
		return nil, err
	}
	return result.Response, nil
}
