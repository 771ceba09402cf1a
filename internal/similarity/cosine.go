// Package similarity provides cosine-similarity scoring for embedding vectors.
package similarity

import (
	"errors"
	"fmt"

	"github.com/viant/vec/search"
)

// ErrDimensionMismatch indicates two vectors of different lengths were
// compared. This is a configuration fault (mixed embedding models) and is
// never papered over with a default score.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Cosine returns the cosine similarity between two equal-length vectors.
// The result is in [-1, 1]. If either vector has zero magnitude the
// similarity is defined as 0 rather than dividing by zero.
func Cosine(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	va := search.Float32s(a)
	ma := va.Magnitude()
	mb := search.Float32s(b).Magnitude()
	if ma == 0 || mb == 0 {
		return 0, nil
	}
	// viant/vec reports cosine distance (1 - similarity).
	return 1 - va.CosineDistanceWithMagnitudesNeon(b, ma, mb), nil
}

// BatchCosine compares one query vector against many document vectors in a
// single pass, reusing the query magnitude. Results are numerically
// equivalent to calling Cosine per document: zero-magnitude documents score
// 0, and a zero-magnitude query yields all zeros.
func BatchCosine(query []float32, documents [][]float32) ([]float32, error) {
	scores := make([]float32, len(documents))

	vq := search.Float32s(query)
	mq := vq.Magnitude()

	for i, doc := range documents {
		if len(doc) != len(query) {
			return nil, fmt.Errorf("%w: document %d has %d dimensions, query has %d",
				ErrDimensionMismatch, i, len(doc), len(query))
		}
		if mq == 0 {
			continue
		}
		md := search.Float32s(doc).Magnitude()
		if md == 0 {
			continue
		}
		scores[i] = 1 - vq.CosineDistanceWithMagnitudesNeon(doc, mq, md)
	}

	return scores, nil
}
