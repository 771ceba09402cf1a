// Package query is the entry point callers use to search the knowledge base:
// it embeds query text, runs the similarity-ranked repository query and
// shapes the matches into flat result records.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/atlasfit/trainer-kb/internal/embedding"
	"github.com/atlasfit/trainer-kb/internal/kb"
	"github.com/atlasfit/trainer-kb/internal/storage"
)

// ErrQuery reports that the knowledge base could not be queried.
var ErrQuery = errors.New("knowledge base query failed")

// Result is a flat, JSON-serializable view of a matched document. The
// similarity score the ranking was computed from is always carried along.
type Result struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Category   string    `json:"category"`
	DateAdded  time.Time `json:"date_added"`
	Similarity float32   `json:"similarity"`
}

// Tool queries the knowledge base. Query degrades to an empty result set
// after bounded retries; QueryByCategory and GetDocumentByID surface errors.
type Tool struct {
	provider   embedding.Provider
	repo       *kb.Repository
	logger     *slog.Logger
	minScore   float32
	maxRetries uint64
}

// Option configures a Tool.
type Option func(*Tool)

// WithMinScore overrides the similarity threshold (default kb.DefaultMinScore).
func WithMinScore(minScore float32) Option {
	return func(t *Tool) { t.minScore = minScore }
}

// WithMaxRetries sets how many times a failed query is retried before the
// empty fallback is returned.
func WithMaxRetries(n uint64) Option {
	return func(t *Tool) { t.maxRetries = n }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tool) { t.logger = logger }
}

// NewTool creates a query tool over the given embedding provider and
// repository.
func NewTool(provider embedding.Provider, repo *kb.Repository, opts ...Option) *Tool {
	t := &Tool{
		provider:   provider,
		repo:       repo,
		logger:     slog.Default(),
		minScore:   kb.DefaultMinScore,
		maxRetries: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Query returns up to topK documents relevant to queryText, ranked by
// similarity. Embedding and repository failures are retried with exponential
// backoff and then degrade to an empty result set; an empty set is also the
// normal outcome when nothing scores above the threshold.
func (t *Tool) Query(ctx context.Context, queryText string, topK int) []Result {
	if topK <= 0 {
		topK = kb.DefaultTopK
	}

	var results []Result
	operation := func() error {
		var err error
		results, err = t.search(ctx, queryText, topK)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		t.logger.Error("query failed, returning empty results", "query", queryText, "error", err)
		return []Result{}
	}

	t.logger.Info("knowledge base query", "query", queryText, "results", len(results))
	return results
}

// QueryByCategory restricts Query results to one category. The initial fetch
// is widened to 2*topK candidates and filtered client-side, so fewer than
// topK matches may come back even when more exist beyond the window.
func (t *Tool) QueryByCategory(ctx context.Context, queryText, category string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = kb.DefaultTopK
	}

	candidates, err := t.search(ctx, queryText, 2*topK)
	if err != nil {
		return nil, fmt.Errorf("%w: category %q: %v", ErrQuery, category, err)
	}

	filtered := make([]Result, 0, topK)
	for _, r := range candidates {
		if r.Category != category {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == topK {
			break
		}
	}
	return filtered, nil
}

// GetDocumentByID returns a single document as a result record, or nil when
// no document has that id. The similarity field is zero since no query
// embedding is involved.
func (t *Tool) GetDocumentByID(ctx context.Context, id string) (*Result, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty document id", ErrQuery)
	}

	doc := t.repo.GetDocument(ctx, id)
	if doc == nil {
		return nil, nil
	}
	r := toResult(storage.ScoredDocument{Document: doc})
	return &r, nil
}

// search runs one embed-and-rank pass without retry or fallback.
func (t *Tool) search(ctx context.Context, queryText string, topK int) ([]Result, error) {
	queryEmbedding, err := t.provider.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scored, err := t.repo.QuerySimilarDocuments(ctx, queryEmbedding, topK, t.minScore)
	if err != nil {
		return nil, fmt.Errorf("ranking documents: %w", err)
	}

	results := make([]Result, len(scored))
	for i, sd := range scored {
		results[i] = toResult(sd)
	}
	return results, nil
}

func toResult(sd storage.ScoredDocument) Result {
	return Result{
		DocumentID: sd.Document.ID,
		Title:      sd.Document.Title,
		Content:    sd.Document.Content,
		Source:     sd.Document.Source,
		Category:   sd.Document.Category,
		DateAdded:  sd.Document.DateAdded,
		Similarity: sd.Score,
	}
}
