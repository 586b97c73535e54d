package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/askdocs/internal/assistant/store"
	"github.com/kart-io/askdocs/internal/model"
)

func newTestIndexer(t *testing.T) (*Indexer, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	indexer := NewIndexer(memStore, newStubEmbedder(4), &IndexerConfig{
		ChunkSize:    100,
		ChunkOverlap: 10,
		Collection:   "kb",
		EmbeddingDim: 4,
	})
	return indexer, memStore
}

func TestIndexer_IngestSingleDocument(t *testing.T) {
	indexer, memStore := newTestIndexer(t)

	text := strings.Repeat("a", 250)
	chunks, err := indexer.Ingest(context.Background(), []model.Document{
		{ID: "runbook", RawText: text},
	}, 0, -1)
	require.NoError(t, err)

	// Window 100, step 90: offsets 0, 90, 180 cover 250 characters.
	assert.Equal(t, 3, chunks)
	count, err := memStore.Stats(context.Background(), "kb")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestIndexer_ShortDocumentSingleChunk(t *testing.T) {
	indexer, memStore := newTestIndexer(t)

	chunks, err := indexer.Ingest(context.Background(), []model.Document{
		{ID: "note", RawText: "short note"},
	}, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)

	results, err := memStore.Search(context.Background(), "kb", []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "note:chunk_0", results[0].ChunkID)
	assert.Equal(t, "short note", results[0].Text)
	assert.Equal(t, 0, results[0].Ordinal)
}

func TestIndexer_ReingestReplacesChunks(t *testing.T) {
	indexer, memStore := newTestIndexer(t)
	ctx := context.Background()

	_, err := indexer.Ingest(ctx, []model.Document{
		{ID: "doc", RawText: strings.Repeat("old ", 60)},
	}, 0, -1)
	require.NoError(t, err)

	chunks, err := indexer.Ingest(ctx, []model.Document{
		{ID: "doc", RawText: "replacement"},
	}, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, chunks)

	count, err := memStore.Stats(ctx, "kb")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIndexer_DeterministicChunking(t *testing.T) {
	indexer, memStore := newTestIndexer(t)
	ctx := context.Background()
	text := strings.Repeat("the quick brown fox ", 20)

	_, err := indexer.Ingest(ctx, []model.Document{{ID: "doc", RawText: text}}, 0, -1)
	require.NoError(t, err)
	first, err := memStore.Search(ctx, "kb", []float32{1, 0, 0, 0}, 100)
	require.NoError(t, err)

	_, err = indexer.Ingest(ctx, []model.Document{{ID: "doc", RawText: text}}, 0, -1)
	require.NoError(t, err)
	second, err := memStore.Search(ctx, "kb", []float32{1, 0, 0, 0}, 100)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ChunkID, second[i].ChunkID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestIndexer_InvalidParameters(t *testing.T) {
	indexer, _ := newTestIndexer(t)
	ctx := context.Background()
	docs := []model.Document{{ID: "doc", RawText: "text"}}

	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{name: "negative chunk size", chunkSize: -5, overlap: 0},
		{name: "chunk size over maximum", chunkSize: MaxChunkSize + 1, overlap: 0},
		{name: "overlap equals chunk size", chunkSize: 50, overlap: 50},
		{name: "overlap exceeds chunk size", chunkSize: 50, overlap: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := indexer.Ingest(ctx, docs, tt.chunkSize, tt.overlap)
			var ingErr *IngestionError
			assert.ErrorAs(t, err, &ingErr)
		})
	}
}

func TestIndexer_RejectsInvalidDocuments(t *testing.T) {
	indexer, _ := newTestIndexer(t)
	ctx := context.Background()

	_, err := indexer.Ingest(ctx, []model.Document{{ID: "", RawText: "text"}}, 0, -1)
	var ingErr *IngestionError
	assert.ErrorAs(t, err, &ingErr)

	_, err = indexer.Ingest(ctx, []model.Document{{ID: "doc", RawText: "   \n\t "}}, 0, -1)
	assert.ErrorAs(t, err, &ingErr)
	assert.Contains(t, err.Error(), "doc")
}

func TestIndexer_OverlapMetadata(t *testing.T) {
	memStore := store.NewMemoryStore()
	chunkCapture := &replaceCapture{MemoryStore: memStore}
	indexer := NewIndexer(chunkCapture, newStubEmbedder(4), &IndexerConfig{
		ChunkSize:    20,
		ChunkOverlap: 5,
		Collection:   "kb",
		EmbeddingDim: 4,
	})

	_, err := indexer.Ingest(context.Background(), []model.Document{
		{ID: "doc", RawText: strings.Repeat("x", 40)},
	}, 0, -1)
	require.NoError(t, err)

	require.NotEmpty(t, chunkCapture.chunks)
	assert.Equal(t, 0, chunkCapture.chunks[0].OverlapWithPrev)
	for _, c := range chunkCapture.chunks[1:] {
		assert.Equal(t, 5, c.OverlapWithPrev)
	}
}

func TestIndexer_IngestPathsUnreadableFile(t *testing.T) {
	indexer, _ := newTestIndexer(t)

	_, err := indexer.IngestPaths(context.Background(), []string{"/nonexistent/path.md"}, 0, -1)
	var ingErr *IngestionError
	assert.ErrorAs(t, err, &ingErr)
	assert.Contains(t, err.Error(), "unreadable")
}

// replaceCapture records the chunks written through it.
type replaceCapture struct {
	*store.MemoryStore
	chunks []*store.Chunk
}

func (c *replaceCapture) ReplaceDocument(ctx context.Context, collection, documentID string, chunks []*store.Chunk) error {
	c.chunks = append(c.chunks, chunks...)
	return c.MemoryStore.ReplaceDocument(ctx, collection, documentID, chunks)
}
