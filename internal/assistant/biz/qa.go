package biz

import (
	"context"

	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/pkg/log"
)

// QATool answers questions over the knowledge base: retrieve evidence,
// generate an answer grounded on it, assemble sources and confidence.
type QATool struct {
	retriever *Retriever
	generator *Generator
	assembler *Assembler
}

// NewQATool creates a QATool.
func NewQATool(retriever *Retriever, generator *Generator, assembler *Assembler) *QATool {
	return &QATool{
		retriever: retriever,
		generator: generator,
		assembler: assembler,
	}
}

// Answer runs the QA pipeline for one query. topK and minRelevance
// follow the retriever's override rules. An empty retrieval still
// produces an answer, flagged by its empty sources and capped
// confidence.
func (t *QATool) Answer(ctx context.Context, query string, topK int, minRelevance float64) (*model.Answer, error) {
	retrieval, err := t.retriever.Retrieve(ctx, query, topK, minRelevance)
	if err != nil {
		return nil, err
	}
	if len(retrieval.Chunks) == 0 {
		log.Infow("no evidence retrieved, answering unsupported", "query_length", len(query))
	}

	resp, err := t.generator.Generate(ctx, qaPrompt(query, retrieval.Chunks), qaSystemPrompt)
	if err != nil {
		return nil, err
	}

	return t.assembler.Assemble(query, retrieval, resp), nil
}
