package biz

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kart-io/askdocs/internal/assistant/store"
	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/internal/pkg/textutil"
	"github.com/kart-io/askdocs/pkg/llm"
	"github.com/kart-io/askdocs/pkg/log"
)

// MaxChunkSize is the upper bound on the chunk window.
const MaxChunkSize = 1024

// embedBatchSize bounds how many chunk texts go to the embedding
// provider per call.
const embedBatchSize = 32

// IndexerConfig configures the ingestion path.
type IndexerConfig struct {
	// ChunkSize is the default chunk window in Unicode characters.
	ChunkSize int
	// ChunkOverlap is the default overlap between windows.
	ChunkOverlap int
	// Collection is the target collection name.
	Collection string
	// EmbeddingDim is the vector dimension.
	EmbeddingDim int
}

// Indexer turns documents into embedded chunks and writes them to the
// store. Chunking is deterministic: the same document and parameters
// always produce the same chunk set.
type Indexer struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *IndexerConfig

	// writeMu serializes ingestion so concurrent re-ingestions of the
	// same document cannot interleave their replacements.
	writeMu sync.Mutex
}

// NewIndexer creates an Indexer.
func NewIndexer(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *IndexerConfig) *Indexer {
	return &Indexer{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
	}
}

// EnsureCollection prepares the target collection.
func (i *Indexer) EnsureCollection(ctx context.Context) error {
	return i.store.CreateCollection(ctx, &store.CollectionConfig{
		Name:        i.config.Collection,
		Description: "internal knowledge base chunks",
		Dimension:   i.config.EmbeddingDim,
		Metric:      i.store.Metric(),
	})
}

// Ingest chunks, embeds and stores the given documents. Re-ingesting a
// document ID replaces all of its chunks atomically with respect to
// readers. Zero chunkSize or negative overlap fall back to the
// configured defaults. Returns the number of chunks written.
func (i *Indexer) Ingest(ctx context.Context, docs []model.Document, chunkSize, overlap int) (int, error) {
	if chunkSize == 0 {
		chunkSize = i.config.ChunkSize
	}
	if overlap < 0 {
		overlap = i.config.ChunkOverlap
	}
	if err := validateChunking(chunkSize, overlap); err != nil {
		return 0, err
	}

	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	total := 0
	for _, doc := range docs {
		chunks, err := i.chunkDocument(doc, chunkSize, overlap)
		if err != nil {
			return total, err
		}
		if err := i.embedChunks(ctx, chunks); err != nil {
			return total, err
		}
		if err := i.store.ReplaceDocument(ctx, i.config.Collection, doc.ID, chunks); err != nil {
			return total, err
		}
		total += len(chunks)
		log.Infow("document ingested", "document_id", doc.ID, "chunks", len(chunks))
	}
	return total, nil
}

// IngestPaths reads files and ingests each as one document whose ID is
// the file's base name without extension.
func (i *Indexer) IngestPaths(ctx context.Context, paths []string, chunkSize, overlap int) (int, error) {
	docs := make([]model.Document, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return 0, &IngestionError{DocumentID: path, Reason: "unreadable file: " + err.Error()}
		}
		base := filepath.Base(path)
		docs = append(docs, model.Document{
			ID:         strings.TrimSuffix(base, filepath.Ext(base)),
			SourcePath: path,
			RawText:    string(content),
		})
	}
	return i.Ingest(ctx, docs, chunkSize, overlap)
}

func validateChunking(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return &IngestionError{Reason: "chunk size must be positive"}
	}
	if chunkSize > MaxChunkSize {
		return &IngestionError{Reason: "chunk size exceeds maximum"}
	}
	if overlap >= chunkSize {
		return &IngestionError{Reason: "overlap must be smaller than chunk size"}
	}
	return nil
}

// chunkDocument splits one document into ordered chunks. Ordinals are
// zero-based; OverlapWithPrev records the shared leading characters.
func (i *Indexer) chunkDocument(doc model.Document, chunkSize, overlap int) ([]*store.Chunk, error) {
	if doc.ID == "" {
		return nil, &IngestionError{Reason: "document id is required"}
	}
	if strings.TrimSpace(doc.RawText) == "" {
		return nil, &IngestionError{DocumentID: doc.ID, Reason: "document is empty"}
	}

	pieces := textutil.SplitIntoChunks(doc.RawText, chunkSize, overlap)
	chunks := make([]*store.Chunk, 0, len(pieces))
	for ordinal, text := range pieces {
		overlapWithPrev := 0
		if ordinal > 0 {
			overlapWithPrev = overlap
			if n := utf8.RuneCountInString(text); n < overlapWithPrev {
				overlapWithPrev = n
			}
		}
		chunks = append(chunks, &store.Chunk{
			ID:              store.ChunkID(doc.ID, ordinal),
			DocumentID:      doc.ID,
			Ordinal:         ordinal,
			Text:            text,
			OverlapWithPrev: overlapWithPrev,
		})
	}
	return chunks, nil
}

func (i *Indexer) embedChunks(ctx context.Context, chunks []*store.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for idx, c := range batch {
			texts[idx] = c.Text
		}
		embeddings, err := i.embedProvider.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(embeddings) != len(batch) {
			return &IngestionError{Reason: "embedding count mismatch"}
		}
		for idx, c := range batch {
			c.Embedding = embeddings[idx]
		}
	}
	return nil
}
