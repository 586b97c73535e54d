package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memChunk(docID string, ordinal int, embedding []float32) *Chunk {
	return &Chunk{
		ID:         ChunkID(docID, ordinal),
		DocumentID: docID,
		Ordinal:    ordinal,
		Text:       fmt.Sprintf("%s body %d", docID, ordinal),
		Embedding:  embedding,
	}
}

func TestMemoryStore_ReplaceAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", []*Chunk{
		memChunk("a", 0, []float32{1, 0}),
		memChunk("a", 1, []float32{0, 1}),
	}))

	results, err := s.Search(ctx, "docs", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a:chunk_0", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStore_TopKLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var chunks []*Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, memChunk("a", i, []float32{1, float32(i) / 10}))
	}
	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", chunks))

	results, err := s.Search(ctx, "docs", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryStore_TieBreakByOrdinal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// Identical embeddings produce identical scores.
	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", []*Chunk{
		memChunk("a", 2, []float32{1, 0}),
		memChunk("a", 0, []float32{1, 0}),
		memChunk("a", 1, []float32{1, 0}),
	}))

	results, err := s.Search(ctx, "docs", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 0, results[0].Ordinal)
	assert.Equal(t, 1, results[1].Ordinal)
	assert.Equal(t, 2, results[2].Ordinal)
}

func TestMemoryStore_ReplaceRemovesOldChunks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", []*Chunk{
		memChunk("a", 0, []float32{1, 0}),
		memChunk("a", 1, []float32{1, 0}),
		memChunk("a", 2, []float32{1, 0}),
	}))
	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", []*Chunk{
		memChunk("a", 0, []float32{0, 1}),
	}))

	count, err := s.Stats(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	results, err := s.Search(ctx, "docs", []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a:chunk_0", results[0].ChunkID)
}

func TestMemoryStore_EmptyReplaceDeletesDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", []*Chunk{memChunk("a", 0, []float32{1, 0})}))
	require.NoError(t, s.ReplaceDocument(ctx, "docs", "b", []*Chunk{memChunk("b", 0, []float32{0, 1})}))
	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", nil))

	count, err := s.Stats(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// Concurrent searchers must always see a document either entirely in
// its old version or entirely in its new one.
func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	version := func(v int) []*Chunk {
		var chunks []*Chunk
		for i := 0; i < 5; i++ {
			c := memChunk("a", i, []float32{1, 0})
			c.Text = fmt.Sprintf("v%d", v)
			chunks = append(chunks, c)
		}
		return chunks
	}
	require.NoError(t, s.ReplaceDocument(ctx, "docs", "a", version(0)))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := 1; v <= 50; v++ {
			if err := s.ReplaceDocument(ctx, "docs", "a", version(v)); err != nil {
				t.Error(err)
				return
			}
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, err := s.Search(ctx, "docs", []float32{1, 0}, 10)
				if err != nil {
					t.Error(err)
					return
				}
				if len(results) == 0 {
					continue
				}
				want := results[0].Text
				for _, res := range results {
					if res.Text != want {
						t.Errorf("mixed versions in one search: %q vs %q", want, res.Text)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}
