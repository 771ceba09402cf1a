// Package storage defines the document model and the row-oriented store
// boundary behind the knowledge base, with SQLite, in-memory and Qdrant
// implementations.
package storage

import "context"

// Store is the persistence boundary for knowledge base documents. All
// implementations must keep List in a stable order so that equal-score
// ranking ties stay deterministic.
type Store interface {
	// Insert stores a new document. It fails if the id already exists.
	Insert(ctx context.Context, doc *Document) error
	// Get retrieves a document by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)
	// List returns every stored document, embeddings included.
	List(ctx context.Context) ([]*Document, error)
	// Update applies a partial field replacement, or ErrNotFound.
	Update(ctx context.Context, id string, fields DocumentUpdate) error
	// Delete removes a document, or ErrNotFound if none matched.
	Delete(ctx context.Context, id string) error
	// Close releases the underlying connection.
	Close() error
}

// Searcher is optionally implemented by stores that can rank similarity
// server-side. The repository delegates its scan-and-rank query to a
// Searcher when the configured store provides one; the ranking contract
// (descending score, min-score filter, top-k cap) is identical.
type Searcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, topK int, minScore float32) ([]ScoredDocument, error)
}

// applyUpdate merges a partial update into a document, returning whether any
// field actually changed.
func applyUpdate(doc *Document, fields DocumentUpdate) bool {
	changed := false
	if fields.Title != nil {
		doc.Title = *fields.Title
		changed = true
	}
	if fields.Content != nil {
		doc.Content = *fields.Content
		changed = true
	}
	if fields.Embedding != nil {
		doc.Embedding = fields.Embedding
		changed = true
	}
	if fields.Category != nil {
		doc.Category = *fields.Category
		changed = true
	}
	if fields.Source != nil {
		doc.Source = *fields.Source
		changed = true
	}
	return changed
}
