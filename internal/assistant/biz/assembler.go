package biz

import (
	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/internal/pkg/textutil"
	"github.com/kart-io/askdocs/pkg/llm"
)

// AssemblerConfig holds the confidence tuning knobs.
type AssemblerConfig struct {
	// PrimaryFactor applies when generation succeeded on the very
	// first attempt of the primary chain entry.
	PrimaryFactor float64
	// FallbackFactor applies after any retry or fallback.
	FallbackFactor float64
	// EmptyRetrievalCap bounds confidence when no evidence was found.
	EmptyRetrievalCap float64
}

// DefaultAssemblerConfig returns the standard confidence policy.
func DefaultAssemblerConfig() *AssemblerConfig {
	return &AssemblerConfig{
		PrimaryFactor:     1.0,
		FallbackFactor:    0.8,
		EmptyRetrievalCap: 0.3,
	}
}

// Assembler builds the final Answer from retrieval and generation
// outcomes. Confidence is clamp(topScore × generationFactor, 0, 1).
type Assembler struct {
	config *AssemblerConfig
}

// NewAssembler creates an Assembler; nil config uses the defaults.
func NewAssembler(config *AssemblerConfig) *Assembler {
	if config == nil {
		config = DefaultAssemblerConfig()
	}
	return &Assembler{config: config}
}

// Assemble combines the generated text with its evidence. Sources are
// chunk IDs deduplicated in retrieval order. When retrieval was empty
// the answer keeps no sources and its confidence is capped.
func (a *Assembler) Assemble(query string, retrieval *RetrievalResult, gen *llm.GenerateResponse) *model.Answer {
	factor := a.config.FallbackFactor
	if gen != nil && gen.Attempts == 1 {
		factor = a.config.PrimaryFactor
	}

	content := ""
	if gen != nil {
		content = gen.Content
	}

	if retrieval == nil || len(retrieval.Chunks) == 0 {
		return &model.Answer{
			Query:      query,
			Answer:     content,
			Sources:    []string{},
			Confidence: textutil.Clamp(a.config.EmptyRetrievalCap*factor, 0, a.config.EmptyRetrievalCap),
		}
	}

	seen := make(map[string]bool, len(retrieval.Chunks))
	sources := make([]string, 0, len(retrieval.Chunks))
	for _, c := range retrieval.Chunks {
		if seen[c.ChunkID] {
			continue
		}
		seen[c.ChunkID] = true
		sources = append(sources, c.ChunkID)
	}

	return &model.Answer{
		Query:      query,
		Answer:     content,
		Sources:    sources,
		Confidence: textutil.Clamp(retrieval.TopScore()*factor, 0, 1),
	}
}
