package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kart-io/askdocs/internal/pkg/textutil"
)

// MemoryStore is an in-process VectorStore. Readers search an
// immutable snapshot behind an atomic pointer; writers build a new
// snapshot and swap it in, so a search never observes a document with
// half of its chunks replaced.
type MemoryStore struct {
	metric string

	writeMu  sync.Mutex
	snapshot atomic.Pointer[memorySnapshot]
}

type memorySnapshot struct {
	// chunks grouped by document, flattened for search.
	entries []*Chunk
}

// NewMemoryStore creates an empty in-memory store using cosine
// similarity.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{metric: "cosine"}
	s.snapshot.Store(&memorySnapshot{})
	return s
}

// CreateCollection is a no-op; the store holds a single collection.
func (s *MemoryStore) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	return nil
}

// ReplaceDocument swaps every chunk of documentID in one snapshot
// publication.
func (s *MemoryStore) ReplaceDocument(ctx context.Context, collection, documentID string, chunks []*Chunk) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old := s.snapshot.Load()
	next := make([]*Chunk, 0, len(old.entries)+len(chunks))
	for _, c := range old.entries {
		if c.DocumentID != documentID {
			next = append(next, c)
		}
	}
	next = append(next, chunks...)

	s.snapshot.Store(&memorySnapshot{entries: next})
	return nil
}

// Search scores every stored chunk against the query embedding and
// returns the topK best raw cosine scores.
func (s *MemoryStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.snapshot.Load()
	results := make([]*SearchResult, 0, len(snap.entries))
	for _, c := range snap.entries {
		results = append(results, &SearchResult{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Ordinal:    c.Ordinal,
			Text:       c.Text,
			Score:      textutil.CosineSimilarity(embedding, c.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ordinal < results[j].Ordinal
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Stats returns the number of stored chunks.
func (s *MemoryStore) Stats(ctx context.Context, collection string) (int64, error) {
	return int64(len(s.snapshot.Load().entries)), nil
}

// Metric reports the similarity function.
func (s *MemoryStore) Metric() string {
	return s.metric
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

var _ VectorStore = (*MemoryStore)(nil)
