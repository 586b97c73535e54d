package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/askdocs/pkg/component/milvus"
)

// MilvusStore implements VectorStore on a Milvus collection.
type MilvusStore struct {
	client *milvus.Client
	metric string

	// writeMu serializes document replacement so delete+insert pairs
	// for the same document never interleave.
	writeMu sync.Mutex
}

// NewMilvusStore creates a Milvus-backed store.
func NewMilvusStore(client *milvus.Client, metric string) *MilvusStore {
	if metric == "" {
		metric = "cosine"
	}
	return &MilvusStore{client: client, metric: metric}
}

// CreateCollection creates the chunk collection if missing.
func (s *MilvusStore) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	metric := config.Metric
	if metric == "" {
		metric = s.metric
	}
	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		Metric:      metric,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "ordinal", DataType: entity.FieldTypeInt64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "overlap", DataType: entity.FieldTypeInt64},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// ReplaceDocument deletes the document's existing chunks and inserts
// the new set under the write lock.
func (s *MilvusStore) ReplaceDocument(ctx context.Context, collection, documentID string, chunks []*Chunk) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	expr := fmt.Sprintf(`document_id == "%s"`, escapeExpr(documentID))
	if err := s.client.DeleteByExpr(ctx, collection, expr); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", documentID, err)
	}

	if len(chunks) == 0 {
		return nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"chunk_id":    make([]any, len(chunks)),
		"document_id": make([]any, len(chunks)),
		"ordinal":     make([]any, len(chunks)),
		"content":     make([]any, len(chunks)),
		"overlap":     make([]any, len(chunks)),
	}
	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["chunk_id"][i] = chunk.ID
		metadata["document_id"][i] = chunk.DocumentID
		metadata["ordinal"][i] = int64(chunk.Ordinal)
		metadata["content"][i] = chunk.Text
		metadata["overlap"][i] = int64(chunk.OverlapWithPrev)
	}

	if _, err := s.client.Insert(ctx, collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("failed to insert chunks of %s: %w", documentID, err)
	}
	return nil
}

// Search runs a vector similarity search.
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	outputFields := []string{"chunk_id", "document_id", "ordinal", "content"}
	results, err := s.client.Search(ctx, collection, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	searchResults := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		sr := &SearchResult{Score: float64(r.Score)}
		if v, ok := r.Metadata["chunk_id"].(string); ok {
			sr.ChunkID = v
		}
		if v, ok := r.Metadata["document_id"].(string); ok {
			sr.DocumentID = v
		}
		if v, ok := r.Metadata["ordinal"].(int64); ok {
			sr.Ordinal = int(v)
		}
		if v, ok := r.Metadata["content"].(string); ok {
			sr.Text = v
		}
		searchResults = append(searchResults, sr)
	}
	return searchResults, nil
}

// Stats returns the number of stored chunks.
func (s *MilvusStore) Stats(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// Metric reports the configured similarity function.
func (s *MilvusStore) Metric() string {
	return s.metric
}

// Ping verifies the Milvus server is reachable.
func (s *MilvusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func escapeExpr(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

var _ VectorStore = (*MilvusStore)(nil)
