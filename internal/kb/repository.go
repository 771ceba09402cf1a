// Package kb implements the knowledge repository: CRUD plus similarity-ranked
// retrieval over a document store.
package kb

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/atlasfit/trainer-kb/internal/similarity"
	"github.com/atlasfit/trainer-kb/internal/storage"
)

// Defaults for similarity queries.
const (
	DefaultTopK     = 5
	DefaultMinScore = 0.7
)

// Repository provides ranked retrieval and CRUD over a storage.Store.
//
// Read paths favor availability: store failures are logged and degrade to
// empty results, so "no results" and "store down" look the same to callers.
// Write failures stay observable through errors and false returns.
type Repository struct {
	store  storage.Store
	logger *slog.Logger
}

// NewRepository creates a repository over the given store.
func NewRepository(store storage.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, logger: logger}
}

// AddDocument inserts a new document and returns its id, assigning a UUID
// when the document has none. Documents with empty content are rejected.
func (r *Repository) AddDocument(ctx context.Context, doc *storage.Document) (string, error) {
	if doc.Content == "" {
		return "", storage.ErrEmptyContent
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	if err := r.store.Insert(ctx, doc); err != nil {
		r.logger.Error("failed to add document", "id", doc.ID, "error", err)
		return "", err
	}
	return doc.ID, nil
}

// GetDocument retrieves a document by id. It returns nil both when the
// document does not exist and when the store is unreachable; the latter is
// logged.
func (r *Repository) GetDocument(ctx context.Context, id string) *storage.Document {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Error("failed to get document", "id", id, "error", err)
		}
		return nil
	}
	return doc
}

// UpdateDocument applies a partial field replacement, reporting success.
func (r *Repository) UpdateDocument(ctx context.Context, id string, fields storage.DocumentUpdate) bool {
	if err := r.store.Update(ctx, id, fields); err != nil {
		r.logger.Error("failed to update document", "id", id, "error", err)
		return false
	}
	return true
}

// DeleteDocument removes a document by id, reporting success.
func (r *Repository) DeleteDocument(ctx context.Context, id string) bool {
	if err := r.store.Delete(ctx, id); err != nil {
		r.logger.Error("failed to delete document", "id", id, "error", err)
		return false
	}
	return true
}

// QuerySimilarDocuments returns up to topK documents ranked by cosine
// similarity to queryEmbedding, excluding anything scoring below minScore.
// topK <= 0 selects DefaultTopK and minScore < 0 selects DefaultMinScore.
//
// The scan is brute force: every stored document is fetched and scored per
// query. Documents without an embedding are skipped entirely, not scored as
// zero. Equal scores keep storage order (stable sort). A store that
// implements storage.Searcher answers the query server-side instead.
//
// Store failures degrade to an empty result; a dimension mismatch is a
// configuration fault and is returned as an error.
func (r *Repository) QuerySimilarDocuments(ctx context.Context, queryEmbedding []float32, topK int, minScore float32) ([]storage.ScoredDocument, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minScore < 0 {
		minScore = DefaultMinScore
	}

	if searcher, ok := r.store.(storage.Searcher); ok {
		scored, err := searcher.SearchSimilar(ctx, queryEmbedding, topK, minScore)
		if err != nil {
			if errors.Is(err, similarity.ErrDimensionMismatch) {
				return nil, err
			}
			r.logger.Error("similarity search failed", "error", err)
			return nil, nil
		}
		return scored, nil
	}

	docs, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error("failed to list documents for similarity query", "error", err)
		return nil, nil
	}

	candidates := make([]*storage.Document, 0, len(docs))
	embeddings := make([][]float32, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, doc)
		embeddings = append(embeddings, doc.Embedding)
	}

	scores, err := similarity.BatchCosine(queryEmbedding, embeddings)
	if err != nil {
		return nil, err
	}

	scored := make([]storage.ScoredDocument, 0, len(candidates))
	for i, doc := range candidates {
		if scores[i] < minScore {
			continue
		}
		scored = append(scored, storage.ScoredDocument{Document: doc, Score: scores[i]})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
