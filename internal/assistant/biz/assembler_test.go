package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/askdocs/internal/assistant/store"
	"github.com/kart-io/askdocs/pkg/llm"
)

func scoredChunks(scores ...float64) *RetrievalResult {
	chunks := make([]*ScoredChunk, len(scores))
	for i, s := range scores {
		chunks[i] = &ScoredChunk{
			ChunkID:    store.ChunkID("doc", i),
			DocumentID: "doc",
			Ordinal:    i,
			Text:       "evidence",
			Score:      s,
		}
	}
	return &RetrievalResult{Chunks: chunks}
}

func TestAssembler_PrimaryFactor(t *testing.T) {
	a := NewAssembler(nil)
	answer := a.Assemble("q", scoredChunks(0.9, 0.7), &llm.GenerateResponse{Content: "answer", Attempts: 1})

	assert.Equal(t, "answer", answer.Answer)
	assert.InDelta(t, 0.9, answer.Confidence, 1e-9)
	assert.Equal(t, []string{"doc:chunk_0", "doc:chunk_1"}, answer.Sources)
}

func TestAssembler_FallbackFactorAfterRetries(t *testing.T) {
	a := NewAssembler(nil)
	answer := a.Assemble("q", scoredChunks(0.9), &llm.GenerateResponse{Content: "answer", Attempts: 3})

	assert.InDelta(t, 0.9*0.8, answer.Confidence, 1e-9)
}

func TestAssembler_EmptyRetrieval(t *testing.T) {
	a := NewAssembler(nil)

	answer := a.Assemble("q", &RetrievalResult{}, &llm.GenerateResponse{Content: "unsupported answer", Attempts: 1})
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.InDelta(t, 0.3, answer.Confidence, 1e-9)

	answer = a.Assemble("q", nil, &llm.GenerateResponse{Content: "unsupported answer", Attempts: 2})
	assert.InDelta(t, 0.3*0.8, answer.Confidence, 1e-9)
}

func TestAssembler_ConfidenceClamped(t *testing.T) {
	a := NewAssembler(&AssemblerConfig{PrimaryFactor: 2.0, FallbackFactor: 0.8, EmptyRetrievalCap: 0.3})
	answer := a.Assemble("q", scoredChunks(0.9), &llm.GenerateResponse{Content: "answer", Attempts: 1})

	assert.Equal(t, 1.0, answer.Confidence)
}

func TestAssembler_DeduplicatesSources(t *testing.T) {
	retrieval := scoredChunks(0.9, 0.8)
	retrieval.Chunks = append(retrieval.Chunks, &ScoredChunk{
		ChunkID: "doc:chunk_0", DocumentID: "doc", Ordinal: 0, Score: 0.7,
	})

	a := NewAssembler(nil)
	answer := a.Assemble("q", retrieval, &llm.GenerateResponse{Content: "answer", Attempts: 1})

	assert.Equal(t, []string{"doc:chunk_0", "doc:chunk_1"}, answer.Sources)
}
