package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/atlasfit/trainer-kb/internal/similarity"
)

// QdrantStore is a Store backed by a Qdrant collection. Unlike the SQLite
// store it also implements Searcher, ranking similarity server-side, so
// larger corpora avoid the brute-force full scan without changing the query
// contract.
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStore connects to Qdrant and verifies health with exponential
// backoff, failing fast if the server stays unreachable.
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, host: host, port: port}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s, nil
}

// healthCheckWithRetry probes Qdrant with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

// EnsureCollection creates the knowledge base collection if it does not
// exist: cosine distance, VectorDimension-wide vectors. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, name := range collections {
		if name == TableName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: TableName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	// Category is the only filterable field; index it so category-scoped
	// scrolls stay cheap.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: TableName,
		FieldName:      "category",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("creating category index: %w", err)
	}
	return nil
}

func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) Insert(ctx context.Context, doc *Document) error {
	if len(doc.Embedding) > 0 && len(doc.Embedding) != VectorDimension {
		return fmt.Errorf("%w: document has %d dimensions, expected %d",
			similarity.ErrDimensionMismatch, len(doc.Embedding), VectorDimension)
	}
	return s.upsertWithRetry(ctx, doc)
}

// upsertWithRetry writes one document point with exponential backoff.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, doc *Document) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectors(doc.Embedding...),
		Payload: qdrant.NewValueMap(documentPayload(doc)),
	}

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: TableName,
			Points:         []*qdrant.PointStruct{point},
		})
		return err
	}, backoff.WithContext(b, ctx))
}

func (s *QdrantStore) Get(ctx context.Context, id string) (*Document, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: TableName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return documentFromPayload(id, result[0].Payload, pointVector(result[0].Vectors)), nil
}

func (s *QdrantStore) List(ctx context.Context) ([]*Document, error) {
	var docs []*Document
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: TableName,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling documents: %w", err)
		}

		for _, point := range results {
			docs = append(docs, documentFromPayload(point.Id.GetUuid(), point.Payload, pointVector(point.Vectors)))
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}
	return docs, nil
}

// Update reads, merges and re-upserts the point. Writes are whole-record
// replacements, so concurrent readers never see a partial document.
func (s *QdrantStore) Update(ctx context.Context, id string, fields DocumentUpdate) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !applyUpdate(doc, fields) {
		return nil
	}
	return s.upsertWithRetry(ctx, doc)
}

func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: TableName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
	})
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// SearchSimilar ranks documents by cosine similarity server-side. Results
// follow the same contract as the brute-force scan: descending score,
// nothing below minScore, at most topK entries.
func (s *QdrantStore) SearchSimilar(ctx context.Context, embedding []float32, topK int, minScore float32) ([]ScoredDocument, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			similarity.ErrDimensionMismatch, len(embedding), VectorDimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: TableName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		ScoreThreshold: &minScore,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	scored := make([]ScoredDocument, 0, len(results))
	for _, point := range results {
		scored = append(scored, ScoredDocument{
			Document: documentFromPayload(point.Id.GetUuid(), point.Payload, pointVector(point.Vectors)),
			Score:    point.Score,
		})
	}
	return scored, nil
}

func documentPayload(doc *Document) map[string]any {
	dateAdded := ""
	if !doc.DateAdded.IsZero() {
		dateAdded = doc.DateAdded.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"title":      doc.Title,
		"content":    doc.Content,
		"category":   doc.Category,
		"source":     doc.Source,
		"date_added": dateAdded,
	}
}

func documentFromPayload(id string, payload map[string]*qdrant.Value, embedding []float32) *Document {
	doc := &Document{
		ID:        id,
		Title:     payload["title"].GetStringValue(),
		Content:   payload["content"].GetStringValue(),
		Category:  payload["category"].GetStringValue(),
		Source:    payload["source"].GetStringValue(),
		Embedding: embedding,
	}
	if raw := payload["date_added"].GetStringValue(); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			doc.DateAdded = t
		}
	}
	return doc
}

func pointVector(vectors *qdrant.VectorsOutput) []float32 {
	if vectors == nil {
		return nil
	}
	return vectors.GetVector().GetData()
}
