package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/askdocs/internal/assistant/store"
)

// seedChunks loads three chunks whose cosine similarities against the
// query vector [1,0,0,0] normalize to 1.0, 0.9 and 0.5.
func seedChunks(t *testing.T, memStore *store.MemoryStore) {
	t.Helper()
	chunks := []*store.Chunk{
		{ID: "guide:chunk_0", DocumentID: "guide", Ordinal: 0, Text: "exact match", Embedding: []float32{1, 0, 0, 0}},
		{ID: "guide:chunk_1", DocumentID: "guide", Ordinal: 1, Text: "close match", Embedding: []float32{0.8, 0.6, 0, 0}},
		{ID: "guide:chunk_2", DocumentID: "guide", Ordinal: 2, Text: "unrelated", Embedding: []float32{0, 1, 0, 0}},
	}
	require.NoError(t, memStore.ReplaceDocument(context.Background(), "kb", "guide", chunks))
}

func newTestRetriever(memStore *store.MemoryStore, embedder *stubEmbedder) *Retriever {
	return NewRetriever(memStore, embedder, &RetrieverConfig{
		TopK:         4,
		MinRelevance: 0.6,
		Collection:   "kb",
	}, nil)
}

func TestRetriever_FiltersBelowRelevanceFloor(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedChunks(t, memStore)
	r := newTestRetriever(memStore, newStubEmbedder(4))

	result, err := r.Retrieve(context.Background(), "query", 0, -1)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "guide:chunk_0", result.Chunks[0].ChunkID)
	assert.InDelta(t, 1.0, result.Chunks[0].Score, 1e-6)
	assert.Equal(t, "guide:chunk_1", result.Chunks[1].ChunkID)
	assert.InDelta(t, 0.9, result.Chunks[1].Score, 1e-6)
	assert.InDelta(t, 1.0, result.TopScore(), 1e-6)
}

func TestRetriever_RelevanceOverride(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedChunks(t, memStore)
	r := newTestRetriever(memStore, newStubEmbedder(4))

	// A zero floor keeps even the orthogonal chunk.
	result, err := r.Retrieve(context.Background(), "query", 0, 0)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 3)
}

func TestRetriever_TopKOverride(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedChunks(t, memStore)
	r := newTestRetriever(memStore, newStubEmbedder(4))

	result, err := r.Retrieve(context.Background(), "query", 1, -1)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "guide:chunk_0", result.Chunks[0].ChunkID)
}

func TestRetriever_TieBrokenByOrdinal(t *testing.T) {
	memStore := store.NewMemoryStore()
	chunks := []*store.Chunk{
		{ID: "doc:chunk_1", DocumentID: "doc", Ordinal: 1, Text: "b", Embedding: []float32{1, 0, 0, 0}},
		{ID: "doc:chunk_0", DocumentID: "doc", Ordinal: 0, Text: "a", Embedding: []float32{1, 0, 0, 0}},
	}
	require.NoError(t, memStore.ReplaceDocument(context.Background(), "kb", "doc", chunks))
	r := newTestRetriever(memStore, newStubEmbedder(4))

	result, err := r.Retrieve(context.Background(), "query", 0, -1)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, 0, result.Chunks[0].Ordinal)
	assert.Equal(t, 1, result.Chunks[1].Ordinal)
}

func TestRetriever_EmptyStoreIsNotAnError(t *testing.T) {
	r := newTestRetriever(store.NewMemoryStore(), newStubEmbedder(4))

	result, err := r.Retrieve(context.Background(), "query", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Zero(t, result.TopScore())
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	embedder := newStubEmbedder(4)
	embedder.err = errors.New("embedding backend down")
	r := newTestRetriever(store.NewMemoryStore(), embedder)

	_, err := r.Retrieve(context.Background(), "query", 0, -1)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestRetriever_StoreFailure(t *testing.T) {
	memStore := store.NewMemoryStore()
	r := NewRetriever(&failingSearchStore{MemoryStore: memStore}, newStubEmbedder(4), &RetrieverConfig{
		TopK:         4,
		MinRelevance: 0.6,
		Collection:   "kb",
	}, nil)

	_, err := r.Retrieve(context.Background(), "query", 0, -1)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

type failingSearchStore struct {
	*store.MemoryStore
}

func (s *failingSearchStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*store.SearchResult, error) {
	return nil, errors.New("store unreachable")
}
