package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/askdocs/pkg/llm"
	"github.com/kart-io/askdocs/pkg/llm/resilience"
	"github.com/kart-io/askdocs/pkg/log"
)

// ProviderModel is one entry of the generation fallback chain.
type ProviderModel struct {
	Provider string
	Model    string
}

func (pm ProviderModel) String() string {
	return pm.Provider + "/" + pm.Model
}

// ParseProviderModel parses a "provider/model" chain entry. Only the
// first slash separates the two; model names may contain more slashes
// (e.g. openrouter/google/gemini-2.5-flash).
func ParseProviderModel(s string) (ProviderModel, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ProviderModel{}, fmt.Errorf("invalid chain entry %q, want provider/model", s)
	}
	return ProviderModel{Provider: parts[0], Model: parts[1]}, nil
}

// GeneratorConfig configures the generation client.
type GeneratorConfig struct {
	// Chain is the ordered fallback chain; the first entry is primary.
	Chain []ProviderModel
	// Temperature and MaxTokens pass through to every request.
	Temperature float64
	MaxTokens   int
	// Retry is the per-entry retry policy; nil uses the defaults.
	Retry *resilience.RetryConfig
	// TreatEmptyAsFailure retries or falls over on blank completions.
	TreatEmptyAsFailure bool
}

// Generator runs completions against an ordered provider chain. Each
// entry gets bounded retries with exponential backoff for transient
// errors; non-retryable errors advance the chain immediately. The
// first success short-circuits.
type Generator struct {
	providers map[string]llm.ChatProvider
	config    *GeneratorConfig
	metrics   MetricsRecorder
}

// NewGenerator creates a Generator over the named providers. A nil
// recorder disables metrics.
func NewGenerator(providers map[string]llm.ChatProvider, config *GeneratorConfig, rec MetricsRecorder) *Generator {
	return &Generator{providers: providers, config: config, metrics: orNop(rec)}
}

// Primary returns the first chain entry.
func (g *Generator) Primary() ProviderModel {
	if len(g.config.Chain) == 0 {
		return ProviderModel{}
	}
	return g.config.Chain[0]
}

func (g *Generator) retryConfig() *resilience.RetryConfig {
	if g.config.Retry != nil {
		return g.config.Retry
	}
	return resilience.DefaultRetryConfig()
}

// Generate runs one completion through the chain. The returned
// response carries the serving provider and model, total attempts
// across the chain, and the call latency. When every entry is
// exhausted the error is an *ExhaustedError with the full trail.
func (g *Generator) Generate(ctx context.Context, prompt, system string) (*llm.GenerateResponse, error) {
	if len(g.config.Chain) == 0 {
		return nil, fmt.Errorf("generation chain is empty")
	}

	chainStart := time.Now()
	totalAttempts := 0
	var trail []AttemptError

	for i, pm := range g.config.Chain {
		provider, ok := g.providers[pm.Provider]
		if !ok {
			trail = append(trail, AttemptError{
				Provider: pm.Provider,
				Model:    pm.Model,
				Attempt:  totalAttempts,
				Reason:   "provider not configured",
			})
			continue
		}

		var resp *llm.GenerateResponse
		err := resilience.RetryWithBackoff(ctx, g.retryConfig(), func() error {
			totalAttempts++
			attempt := totalAttempts

			start := time.Now()
			r, callErr := provider.Generate(ctx, &llm.GenerateRequest{
				Model:       pm.Model,
				Prompt:      prompt,
				System:      system,
				Temperature: g.config.Temperature,
				MaxTokens:   g.config.MaxTokens,
			})
			if callErr != nil {
				trail = append(trail, AttemptError{Provider: pm.Provider, Model: pm.Model, Attempt: attempt, Reason: callErr.Error()})
				return callErr
			}
			if g.config.TreatEmptyAsFailure && strings.TrimSpace(r.Content) == "" {
				emptyErr := fmt.Errorf("empty completion")
				trail = append(trail, AttemptError{Provider: pm.Provider, Model: pm.Model, Attempt: attempt, Reason: emptyErr.Error()})
				return emptyErr
			}
			r.Latency = time.Since(start)
			resp = r
			return nil
		})
		if err == nil {
			resp.Provider = pm.Provider
			resp.Model = pm.Model
			resp.Attempts = totalAttempts
			promptTokens, completionTokens := 0, 0
			if resp.TokenUsage != nil {
				promptTokens = resp.TokenUsage.PromptTokens
				completionTokens = resp.TokenUsage.CompletionTokens
			}
			g.metrics.RecordGeneration(pm.Provider, resp.Latency, totalAttempts, promptTokens, completionTokens, i > 0, nil)
			if totalAttempts > 1 {
				log.Infow("generation served after retries or fallback",
					"provider", pm.Provider,
					"model", pm.Model,
					"attempts", totalAttempts,
				)
			}
			return resp, nil
		}

		// The caller's deadline bounds the whole chain.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnw("chain entry exhausted, trying next",
			"provider", pm.Provider,
			"model", pm.Model,
			"error", err.Error(),
		)
	}

	exhausted := &ExhaustedError{Attempts: trail}
	g.metrics.RecordGeneration("none", time.Since(chainStart), totalAttempts, 0, 0, true, exhausted)
	return nil, exhausted
}
