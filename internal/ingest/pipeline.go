// Package ingest turns raw research documents into stored, embedded
// knowledge base entries: extract key info, chunk, classify, embed, store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atlasfit/trainer-kb/internal/chunker"
	"github.com/atlasfit/trainer-kb/internal/classifier"
	"github.com/atlasfit/trainer-kb/internal/embedding"
	"github.com/atlasfit/trainer-kb/internal/fetch"
	"github.com/atlasfit/trainer-kb/internal/kb"
	"github.com/atlasfit/trainer-kb/internal/storage"
)

// Result describes what one ingested document produced.
type Result struct {
	Title       string
	Source      string
	Category    string
	DocumentIDs []string
	Duration    time.Duration
}

// BatchResult aggregates a multi-document ingestion run.
type BatchResult struct {
	TotalDocs      int
	SuccessfulDocs int
	TotalChunks    int
	Failed         []FailedDoc
	Duration       time.Duration
}

// FailedDoc records a document that could not be ingested.
type FailedDoc struct {
	Source string
	Reason string
}

// Pipeline orchestrates chunking, classification, embedding and storage.
type Pipeline struct {
	chunker  *chunker.Chunker
	provider embedding.Provider
	repo     *kb.Repository
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline from its components.
func NewPipeline(ch *chunker.Chunker, provider embedding.Provider, repo *kb.Repository, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  ch,
		provider: provider,
		repo:     repo,
		logger:   logger,
	}
}

// IngestText chunks, classifies, embeds and stores one document. A chunked
// document becomes one stored entry per chunk, all sharing title, source and
// category. An empty title falls back to the first line of the text.
func (p *Pipeline) IngestText(ctx context.Context, title, source, text string) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return nil, storage.ErrEmptyContent
	}

	if title == "" {
		title = classifier.ExtractKeyInfo(text).Title
	}
	category := classifier.Categorize(text)

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, storage.ErrEmptyContent
	}

	vectors, err := p.provider.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d chunks produced %d vectors",
			embedding.ErrEmbedding, len(chunks), len(vectors))
	}

	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		id, err := p.repo.AddDocument(ctx, &storage.Document{
			Title:     title,
			Content:   chunk,
			Embedding: vectors[i],
			Category:  category,
			Source:    source,
			DateAdded: time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("storing chunk %d/%d: %w", i+1, len(chunks), err)
		}
		ids = append(ids, id)
	}

	p.logger.Info("ingested document",
		"title", title,
		"source", source,
		"category", category,
		"chunks", len(ids),
	)

	return &Result{
		Title:       title,
		Source:      source,
		Category:    category,
		DocumentIDs: ids,
		Duration:    time.Since(start),
	}, nil
}

// IngestFile reads and ingests one file. Markdown files are flattened to
// plain text before chunking.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	content := string(raw)
	if isMarkdown(path) {
		content = MarkdownToText(raw)
	}

	return p.IngestText(ctx, "", filepath.Base(path), content)
}

// IngestGitHub fetches every markdown document under the fetcher's
// configured directory and ingests each one, continuing past per-document
// failures the way a sync run should.
func (p *Pipeline) IngestGitHub(ctx context.Context, fetcher *fetch.Fetcher) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{}

	paths, err := fetcher.ListDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("found documents", "count", len(paths))

	for _, path := range paths {
		doc, err := fetcher.FetchDoc(ctx, path)
		if err != nil {
			p.logger.Warn("failed to fetch document", "path", path, "error", err)
			result.Failed = append(result.Failed, FailedDoc{Source: path, Reason: err.Error()})
			continue
		}

		res, err := p.IngestText(ctx, "", doc.Path, MarkdownToText([]byte(doc.Content)))
		if err != nil {
			p.logger.Warn("failed to ingest document", "path", path, "error", err)
			result.Failed = append(result.Failed, FailedDoc{Source: path, Reason: err.Error()})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += len(res.DocumentIDs)
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.Failed),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
