// Package store defines the shared chunk store behind the retrieval
// and ingestion paths, with Milvus and in-memory backends.
package store

import (
	"context"
	"fmt"
)

// Chunk is one indexed window of a document. Chunks are created only
// by the indexer; ordinals are zero-based and dense per document.
type Chunk struct {
	// ID is "{document_id}:chunk_{ordinal}".
	ID string
	// DocumentID names the owning document.
	DocumentID string
	// Ordinal is the chunk position within the document.
	Ordinal int
	// Text is the chunk content.
	Text string
	// OverlapWithPrev is the number of leading characters shared with
	// the previous chunk (0 for ordinal 0).
	OverlapWithPrev int
	// Embedding is the chunk vector.
	Embedding []float32
}

// ChunkID formats the canonical chunk identifier.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:chunk_%d", documentID, ordinal)
}

// SearchResult is one similarity hit with the backend's raw score.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Ordinal    int
	Text       string
	Score      float64
}

// CollectionConfig describes the collection to create.
type CollectionConfig struct {
	Name        string
	Description string
	Dimension   int
	// Metric is the similarity function: cosine, ip or l2.
	Metric string
}

// VectorStore is the shared chunk store. Implementations must keep
// reads consistent while ReplaceDocument runs: a searcher sees either
// all of a document's old chunks or all of its new ones.
type VectorStore interface {
	// CreateCollection prepares the collection; idempotent.
	CreateCollection(ctx context.Context, config *CollectionConfig) error

	// ReplaceDocument atomically swaps every chunk of documentID for
	// the given set. An empty set removes the document.
	ReplaceDocument(ctx context.Context, collection, documentID string, chunks []*Chunk) error

	// Search returns up to topK nearest chunks with raw scores.
	Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error)

	// Stats returns the number of stored chunks.
	Stats(ctx context.Context, collection string) (int64, error)

	// Metric reports the similarity function raw scores come from.
	Metric() string

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close(ctx context.Context) error
}
