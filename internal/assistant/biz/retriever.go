package biz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kart-io/askdocs/internal/assistant/store"
	"github.com/kart-io/askdocs/internal/pkg/textutil"
	"github.com/kart-io/askdocs/pkg/llm"
	"github.com/kart-io/askdocs/pkg/log"
)

// RetrieverConfig configures the retrieval path.
type RetrieverConfig struct {
	// TopK is the default number of chunks to return.
	TopK int
	// MinRelevance is the default score floor after normalization.
	MinRelevance float64
	// Collection is the collection to search.
	Collection string
}

// ScoredChunk is one retrieved chunk with its normalized score.
type ScoredChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Ordinal    int     `json:"ordinal"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// RetrievalResult is the ordered outcome of one retrieval. Scores are
// in [0, 1], sorted descending with ties broken by ordinal; every
// entry is at or above the relevance floor.
type RetrievalResult struct {
	Chunks []*ScoredChunk `json:"chunks"`
}

// TopScore returns the best score, or 0 when nothing was retrieved.
func (r *RetrievalResult) TopScore() float64 {
	if r == nil || len(r.Chunks) == 0 {
		return 0
	}
	return r.Chunks[0].Score
}

// Retriever embeds queries and searches the chunk store.
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
	metrics       MetricsRecorder
}

// NewRetriever creates a Retriever. A nil recorder disables metrics.
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig, rec MetricsRecorder) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
		metrics:       orNop(rec),
	}
}

// Retrieve returns the most relevant chunks for queryText. A topK of 0
// or negative minRelevance selects the configured defaults. An empty
// result is not an error; backend and embedding failures wrap
// ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, topK int, minRelevance float64) (*RetrievalResult, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}
	if minRelevance < 0 {
		minRelevance = r.config.MinRelevance
	}
	start := time.Now()

	embedding, err := r.embedProvider.EmbedSingle(ctx, queryText)
	if err != nil {
		r.metrics.RecordRetrieval(time.Since(start), 0, err)
		return nil, fmt.Errorf("%w: embedding query: %v", ErrRetrievalUnavailable, err)
	}

	raw, err := r.store.Search(ctx, r.config.Collection, embedding, topK)
	if err != nil {
		r.metrics.RecordRetrieval(time.Since(start), 0, err)
		return nil, fmt.Errorf("%w: searching store: %v", ErrRetrievalUnavailable, err)
	}

	metric := r.store.Metric()
	chunks := make([]*ScoredChunk, 0, len(raw))
	for _, res := range raw {
		score := textutil.NormalizeScore(metric, res.Score)
		if score < minRelevance {
			continue
		}
		chunks = append(chunks, &ScoredChunk{
			ChunkID:    res.ChunkID,
			DocumentID: res.DocumentID,
			Ordinal:    res.Ordinal,
			Text:       res.Text,
			Score:      score,
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Ordinal < chunks[j].Ordinal
	})

	r.metrics.RecordRetrieval(time.Since(start), len(chunks), nil)
	log.Debugw("retrieval complete",
		"query_length", len(queryText),
		"candidates", len(raw),
		"results", len(chunks),
	)
	return &RetrievalResult{Chunks: chunks}, nil
}
