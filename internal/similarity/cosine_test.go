package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine_Identical(t *testing.T) {
	v := []float32{0.3, 0.5, 0.1, 0.7}

	score, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-5)
}

func TestCosine_Opposite(t *testing.T) {
	v := []float32{0.2, -0.4, 0.9}
	neg := []float32{-0.2, 0.4, -0.9}

	score, err := Cosine(v, neg)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-5)
}

func TestCosine_Orthogonal(t *testing.T) {
	score, err := Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-5)
}

func TestCosine_ZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}

	score, err := Cosine(zero, v)
	require.NoError(t, err)
	assert.Equal(t, float32(0), score)

	score, err = Cosine(v, zero)
	require.NoError(t, err)
	assert.Equal(t, float32(0), score)
}

func TestCosine_ScaleInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	scaled := []float32{10, 20, 30}

	score, err := Cosine(a, scaled)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-5)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBatchCosine_MatchesPairwise(t *testing.T) {
	query := []float32{0.9, 0.1, 0.4}
	docs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0.4},
		{-0.9, -0.1, -0.4},
	}

	batch, err := BatchCosine(query, docs)
	require.NoError(t, err)
	require.Len(t, batch, len(docs))

	for i, doc := range docs {
		pairwise, err := Cosine(query, doc)
		require.NoError(t, err)
		assert.InDelta(t, pairwise, batch[i], 1e-5, "document %d", i)
	}
}

func TestBatchCosine_ZeroQuery(t *testing.T) {
	scores, err := BatchCosine([]float32{0, 0}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, scores)
}

func TestBatchCosine_ZeroDocument(t *testing.T) {
	scores, err := BatchCosine([]float32{1, 0}, [][]float32{{0, 0}, {1, 0}})
	require.NoError(t, err)
	assert.Equal(t, float32(0), scores[0])
	assert.InDelta(t, 1.0, scores[1], 1e-5)
}

func TestBatchCosine_DimensionMismatch(t *testing.T) {
	_, err := BatchCosine([]float32{1, 0}, [][]float32{{1, 0}, {1, 0, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBatchCosine_Empty(t *testing.T) {
	scores, err := BatchCosine([]float32{1, 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
