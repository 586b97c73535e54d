package biz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kart-io/askdocs/pkg/llm"
	"github.com/kart-io/askdocs/pkg/llm/resilience"
)

// chatReply scripts one completion outcome.
type chatReply struct {
	content string
	err     error
}

// scriptedChat replays scripted replies in order, repeating the last
// one when the script runs out. Safe for concurrent use.
type scriptedChat struct {
	name    string
	replies []chatReply

	mu       sync.Mutex
	calls    int
	requests []*llm.GenerateRequest
}

func newScriptedChat(name string, replies ...chatReply) *scriptedChat {
	return &scriptedChat{name: name, replies: replies}
}

func (c *scriptedChat) Name() string { return c.name }

func (c *scriptedChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var prompt, system string
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = m.Content
		case llm.RoleUser:
			prompt = m.Content
		}
	}
	resp, err := c.Generate(ctx, &llm.GenerateRequest{Prompt: prompt, System: system})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *scriptedChat) Generate(_ context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	idx := c.calls
	c.calls++
	if len(c.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	if idx >= len(c.replies) {
		idx = len(c.replies) - 1
	}
	reply := c.replies[idx]
	if reply.err != nil {
		return nil, reply.err
	}
	return &llm.GenerateResponse{Content: reply.content}, nil
}

func (c *scriptedChat) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// stubEmbedder returns fixed vectors per text, falling back to a
// default vector for texts it does not know.
type stubEmbedder struct {
	vecs     map[string][]float32
	fallback []float32
	err      error
}

func newStubEmbedder(dim int) *stubEmbedder {
	fallback := make([]float32, dim)
	if dim > 0 {
		fallback[0] = 1
	}
	return &stubEmbedder{vecs: map[string][]float32{}, fallback: fallback}
}

func (e *stubEmbedder) Name() string { return "stub" }

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vecs[t]; ok {
			out[i] = v
			continue
		}
		out[i] = e.fallback
	}
	return out, nil
}

func (e *stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// testRetryConfig keeps test backoff delays negligible.
func testRetryConfig() *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		Multiplier:      2.0,
		RetryableErrors: resilience.IsRetryableError,
	}
}
