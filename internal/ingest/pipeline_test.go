package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasfit/trainer-kb/internal/chunker"
	"github.com/atlasfit/trainer-kb/internal/classifier"
	"github.com/atlasfit/trainer-kb/internal/embedding"
	"github.com/atlasfit/trainer-kb/internal/kb"
	"github.com/atlasfit/trainer-kb/internal/storage"
)

// fakeProvider returns a constant vector per input.
type fakeProvider struct {
	err error
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newTestPipeline(t *testing.T, provider *fakeProvider, maxChunkSize, overlap int) (*Pipeline, *kb.Repository) {
	t.Helper()
	ch, err := chunker.New(maxChunkSize, overlap)
	require.NoError(t, err)
	repo := kb.NewRepository(storage.NewMemoryStore(), slog.Default())
	return NewPipeline(ch, provider, repo, slog.Default()), repo
}

func TestIngestText_StoresClassifiedChunks(t *testing.T) {
	pipeline, repo := newTestPipeline(t, &fakeProvider{}, 10, 2)
	ctx := context.Background()

	text := "Protein intake supports muscle repair. Carbohydrate timing matters for glycogen. " +
		"Supplement quality varies widely between brands. Hydration affects performance too."

	result, err := pipeline.IngestText(ctx, "Nutrition basics", "nutrition.md", text)
	require.NoError(t, err)

	assert.Equal(t, "Nutrition basics", result.Title)
	assert.Equal(t, classifier.CategoryExerciseScience, result.Category, "muscle keyword wins on priority order")
	require.NotEmpty(t, result.DocumentIDs)

	for _, id := range result.DocumentIDs {
		doc := repo.GetDocument(ctx, id)
		require.NotNil(t, doc)
		assert.Equal(t, "Nutrition basics", doc.Title)
		assert.Equal(t, "nutrition.md", doc.Source)
		assert.NotEmpty(t, doc.Content)
		assert.Equal(t, []float32{1, 0, 0}, doc.Embedding)
		assert.False(t, doc.DateAdded.IsZero())
	}
}

func TestIngestText_TitleFallsBackToFirstLine(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &fakeProvider{}, 100, 0)

	result, err := pipeline.IngestText(context.Background(), "", "notes.txt",
		"Sleep and Recovery\nSleep restriction impairs recovery.")
	require.NoError(t, err)
	assert.Equal(t, "Sleep and Recovery", result.Title)
	assert.Equal(t, classifier.CategoryRecovery, result.Category)
}

func TestIngestText_EmptyInput(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &fakeProvider{}, 100, 0)

	_, err := pipeline.IngestText(context.Background(), "t", "s", "   \n ")
	assert.ErrorIs(t, err, storage.ErrEmptyContent)
}

func TestIngestText_EmbeddingFailureSurfaces(t *testing.T) {
	pipeline, repo := newTestPipeline(t, &fakeProvider{err: errors.New("quota exhausted")}, 100, 0)
	ctx := context.Background()

	_, err := pipeline.IngestText(ctx, "t", "s", "Some training content.")
	require.Error(t, err)

	// Nothing was stored when embedding failed.
	scored, err := repo.QuerySimilarDocuments(ctx, []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

// truncatingProvider returns fewer vectors than inputs.
type truncatingProvider struct{ fakeProvider }

func (p *truncatingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.fakeProvider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return vectors[:len(vectors)-1], nil
}

func TestIngestText_ShortEmbeddingResponseIsAnError(t *testing.T) {
	ch, err := chunker.New(10, 2)
	require.NoError(t, err)
	repo := kb.NewRepository(storage.NewMemoryStore(), slog.Default())
	pipeline := NewPipeline(ch, &truncatingProvider{}, repo, slog.Default())

	text := "Protein intake supports muscle repair. Carbohydrate timing matters for glycogen. " +
		"Supplement quality varies widely between brands. Hydration affects performance too."

	_, err = pipeline.IngestText(context.Background(), "t", "s", text)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrEmbedding)
}

func TestIngestText_LongDocumentProducesMultipleChunks(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &fakeProvider{}, 10, 2)

	text := ""
	for i := 0; i < 12; i++ {
		text += "Endurance training adapts cardiac output over time. "
	}

	result, err := pipeline.IngestText(context.Background(), "Endurance", "src", text)
	require.NoError(t, err)
	assert.Greater(t, len(result.DocumentIDs), 1)
}

func TestIngestFile_Markdown(t *testing.T) {
	pipeline, repo := newTestPipeline(t, &fakeProvider{}, 100, 0)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "strength.md")
	content := "# Strength Training\n\nProgressive overload drives adaptation.\n\n```\nignored code\n```\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	result, err := pipeline.IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "strength.md", result.Source)
	require.NotEmpty(t, result.DocumentIDs)

	doc := repo.GetDocument(ctx, result.DocumentIDs[0])
	require.NotNil(t, doc)
	assert.Contains(t, doc.Content, "Progressive overload")
	assert.NotContains(t, doc.Content, "ignored code")
	assert.NotContains(t, doc.Content, "#", "markdown syntax should be stripped")
}

func TestIngestFile_Missing(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &fakeProvider{}, 100, 0)

	_, err := pipeline.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
	assert.Error(t, err)
}
