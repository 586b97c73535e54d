package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/askdocs/pkg/llm"
	"github.com/kart-io/askdocs/pkg/llm/resilience"
)

func TestParseProviderModel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ProviderModel
		wantErr bool
	}{
		{
			name:  "simple",
			input: "ollama/llama3.1:8b",
			want:  ProviderModel{Provider: "ollama", Model: "llama3.1:8b"},
		},
		{
			name:  "model with slashes",
			input: "openrouter/google/gemini-2.5-flash",
			want:  ProviderModel{Provider: "openrouter", Model: "google/gemini-2.5-flash"},
		},
		{
			name:    "missing separator",
			input:   "ollama",
			wantErr: true,
		},
		{
			name:    "empty provider",
			input:   "/llama3.1:8b",
			wantErr: true,
		},
		{
			name:    "empty model",
			input:   "ollama/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProviderModel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestGenerator_FirstAttemptSucceeds(t *testing.T) {
	primary := newScriptedChat("openrouter", chatReply{content: "hello"})
	fallback := newScriptedChat("ollama", chatReply{content: "unused"})

	g := NewGenerator(map[string]llm.ChatProvider{
		"openrouter": primary,
		"ollama":     fallback,
	}, &GeneratorConfig{
		Chain: []ProviderModel{
			{Provider: "openrouter", Model: "google/gemini-2.5-flash"},
			{Provider: "ollama", Model: "llama3.1:8b"},
		},
		Retry: testRetryConfig(),
	}, nil)

	resp, err := g.Generate(context.Background(), "prompt", "system")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "openrouter", resp.Provider)
	assert.Equal(t, "google/gemini-2.5-flash", resp.Model)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, 0, fallback.callCount())
}

func TestGenerator_RetriesTransientError(t *testing.T) {
	primary := newScriptedChat("openrouter",
		chatReply{err: &llm.StatusError{Provider: "openrouter", StatusCode: 503}},
		chatReply{content: "recovered"},
	)

	g := NewGenerator(map[string]llm.ChatProvider{"openrouter": primary}, &GeneratorConfig{
		Chain: []ProviderModel{{Provider: "openrouter", Model: "google/gemini-2.5-flash"}},
		Retry: testRetryConfig(),
	}, nil)

	resp, err := g.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, 2, primary.callCount())
}

func TestGenerator_NonRetryableAdvancesChain(t *testing.T) {
	primary := newScriptedChat("openrouter",
		chatReply{err: &llm.StatusError{Provider: "openrouter", StatusCode: 400}},
	)
	fallback := newScriptedChat("ollama", chatReply{content: "served by fallback"})

	g := NewGenerator(map[string]llm.ChatProvider{
		"openrouter": primary,
		"ollama":     fallback,
	}, &GeneratorConfig{
		Chain: []ProviderModel{
			{Provider: "openrouter", Model: "google/gemini-2.5-flash"},
			{Provider: "ollama", Model: "llama3.1:8b"},
		},
		Retry: testRetryConfig(),
	}, nil)

	resp, err := g.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "served by fallback", resp.Content)
	assert.Equal(t, "ollama", resp.Provider)
	// One failed call on the primary plus the fallback's success.
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 2, resp.Attempts)
}

func TestGenerator_ExhaustionReturnsTrail(t *testing.T) {
	primary := newScriptedChat("openrouter",
		chatReply{err: &llm.StatusError{Provider: "openrouter", StatusCode: 500}},
	)
	fallback := newScriptedChat("ollama",
		chatReply{err: &llm.StatusError{Provider: "ollama", StatusCode: 500}},
	)

	g := NewGenerator(map[string]llm.ChatProvider{
		"openrouter": primary,
		"ollama":     fallback,
	}, &GeneratorConfig{
		Chain: []ProviderModel{
			{Provider: "openrouter", Model: "google/gemini-2.5-flash"},
			{Provider: "ollama", Model: "llama3.1:8b"},
		},
		Retry: testRetryConfig(),
	}, nil)

	_, err := g.Generate(context.Background(), "prompt", "")
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	// 3 retries on each chain entry.
	assert.Len(t, exhausted.Attempts, 6)
	assert.Equal(t, "openrouter", exhausted.Attempts[0].Provider)
	assert.Equal(t, "ollama", exhausted.Attempts[5].Provider)
	assert.Equal(t, 6, exhausted.Attempts[5].Attempt)
	assert.Contains(t, err.Error(), "exhausted after 6 attempts")
}

func TestGenerator_MissingProviderSkipped(t *testing.T) {
	fallback := newScriptedChat("ollama", chatReply{content: "ok"})

	g := NewGenerator(map[string]llm.ChatProvider{"ollama": fallback}, &GeneratorConfig{
		Chain: []ProviderModel{
			{Provider: "unconfigured", Model: "x"},
			{Provider: "ollama", Model: "llama3.1:8b"},
		},
		Retry: testRetryConfig(),
	}, nil)

	resp, err := g.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama", resp.Provider)
}

func TestGenerator_EmptyChainFails(t *testing.T) {
	g := NewGenerator(nil, &GeneratorConfig{Retry: testRetryConfig()}, nil)
	_, err := g.Generate(context.Background(), "prompt", "")
	assert.Error(t, err)
}

func TestGenerator_EmptyCompletionTreatedAsFailure(t *testing.T) {
	primary := newScriptedChat("openrouter",
		chatReply{content: "   "},
		chatReply{content: "real answer"},
	)

	g := NewGenerator(map[string]llm.ChatProvider{"openrouter": primary}, &GeneratorConfig{
		Chain:               []ProviderModel{{Provider: "openrouter", Model: "m"}},
		Retry:               testRetryConfig(),
		TreatEmptyAsFailure: true,
	}, nil)

	resp, err := g.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "real answer", resp.Content)
	assert.Equal(t, 2, resp.Attempts)
}

func TestGenerator_ContextCancelStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := newScriptedChat("openrouter",
		chatReply{err: &llm.StatusError{Provider: "openrouter", StatusCode: 503}},
	)
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	g := NewGenerator(map[string]llm.ChatProvider{"openrouter": primary}, &GeneratorConfig{
		Chain: []ProviderModel{
			{Provider: "openrouter", Model: "m"},
			{Provider: "missing", Model: "m"},
		},
		Retry: &resilience.RetryConfig{
			MaxAttempts:     3,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        time.Second,
			Multiplier:      2.0,
			RetryableErrors: resilience.IsRetryableError,
		},
	}, nil)

	_, err := g.Generate(ctx, "prompt", "")
	assert.ErrorIs(t, err, context.Canceled)
}
