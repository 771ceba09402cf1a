package storage

import "time"

// Document is a knowledge base entry: a chunk of research text with its
// embedding vector and classification metadata.
type Document struct {
	ID        string    // UUID, assigned at creation, immutable
	Title     string    // Display title, may be empty
	Content   string    // Full text body, never empty for a stored document
	Embedding []float32 // 1536-dim vector (text-embedding-3-small)
	Category  string    // Topic label: exercise science / recovery / nutrition / other
	Source    string    // Provenance: file name, journal, repository path
	DateAdded time.Time // Creation time
}

// DocumentUpdate is a partial field replacement. Nil pointer fields are left
// untouched; a nil Embedding slice likewise means "keep the stored vector".
type DocumentUpdate struct {
	Title     *string
	Content   *string
	Embedding []float32
	Category  *string
	Source    *string
}

// ScoredDocument pairs a document with the similarity score it earned
// against a query embedding. Scores are ephemeral and never persisted.
type ScoredDocument struct {
	Document *Document
	Score    float32
}

// TableName is the knowledge base table (and qdrant collection) name.
const TableName = "knowledge_base"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
