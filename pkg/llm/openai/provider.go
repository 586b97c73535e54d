// Package openai implements a provider for the OpenAI API and for
// OpenAI-compatible services. OpenRouter is registered as a second
// provider name with its own default base URL and attribution headers.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/askdocs/pkg/llm"
)

const (
	// ProviderName identifies the stock OpenAI provider.
	ProviderName = "openai"
	// OpenRouterName identifies the OpenRouter variant.
	OpenRouterName = "openrouter"
)

func init() {
	llm.RegisterProvider(ProviderName, func(configMap map[string]any) (llm.Provider, error) {
		return newProvider(ProviderName, "https://api.openai.com/v1", configMap)
	})
	llm.RegisterProvider(OpenRouterName, func(configMap map[string]any) (llm.Provider, error) {
		return newProvider(OpenRouterName, "https://openrouter.ai/api/v1", configMap)
	})
}

// Config holds provider settings.
type Config struct {
	// BaseURL is the API root. Any OpenAI-compatible endpoint works.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey authenticates requests.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel is used for embeddings.
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel is the default completion model.
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Organization is the optional OpenAI organization header.
	Organization string `json:"organization" mapstructure:"organization"`

	// Referer and Title fill OpenRouter's attribution headers.
	Referer string `json:"referer" mapstructure:"referer"`
	Title   string `json:"title" mapstructure:"title"`
}

// DefaultConfig returns settings for the stock OpenAI endpoint.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
		Timeout:    120 * time.Second,
	}
}

// Provider talks to an OpenAI-compatible API.
type Provider struct {
	name   string
	config *Config
	client *http.Client
}

func newProvider(name, defaultBaseURL string, configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = defaultBaseURL

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["organization"].(string); ok && v != "" {
		cfg.Organization = v
	}
	if v, ok := configMap["referer"].(string); ok && v != "" {
		cfg.Referer = v
	}
	if v, ok := configMap["title"].(string); ok && v != "" {
		cfg.Title = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api_key is required", name)
	}
	return NewProviderWithConfig(name, cfg), nil
}

// NewProviderWithConfig builds a provider from a structured config.
func NewProviderWithConfig(name string, cfg *Config) *Provider {
	return &Provider{
		name:   name,
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string         `json:"model"`
	Usage llm.TokenUsage `json:"usage"`
}

// Embed generates embeddings for a batch of texts.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{Model: p.config.EmbedModel, Input: texts}
	var embedResp embeddingResponse
	if err := llm.PostJSON(ctx, p.client, p.name, p.config.BaseURL+"/embeddings", p.headers(), reqBody, &embedResp); err != nil {
		return nil, err
	}

	// The API may return entries out of order; place by index.
	embeddings := make([][]float32, len(texts))
	for _, d := range embedResp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	return embeddings, nil
}

// EmbedSingle generates an embedding for one text.
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || embeddings[0] == nil {
		return nil, fmt.Errorf("%s: no embedding returned", p.name)
	}
	return embeddings[0], nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.TokenUsage `json:"usage"`
}

// Chat runs a multi-turn conversation.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	reqBody := chatRequest{
		Model:    p.config.ChatModel,
		Messages: toChatMessages(messages),
	}

	var resp chatResponse
	if err := llm.PostJSON(ctx, p.client, p.name, p.config.BaseURL+"/chat/completions", p.headers(), reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate runs a single-shot completion.
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.ChatModel
	}

	var messages []llm.Message
	if req.System != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: req.System})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Prompt})

	reqBody := chatRequest{
		Model:       model,
		Messages:    toChatMessages(messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp chatResponse
	if err := llm.PostJSON(ctx, p.client, p.name, p.config.BaseURL+"/chat/completions", p.headers(), reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices returned", p.name)
	}

	usage := resp.Usage
	return &llm.GenerateResponse{
		Content:    resp.Choices[0].Message.Content,
		Provider:   p.name,
		Model:      model,
		TokenUsage: &usage,
	}, nil
}

func toChatMessages(messages []llm.Message) []chatMessage {
	out := make([]chatMessage, len(messages))
	for i, m := range messages {
		out[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
	}
	if p.config.Organization != "" {
		h["OpenAI-Organization"] = p.config.Organization
	}
	if p.config.Referer != "" {
		h["HTTP-Referer"] = p.config.Referer
	}
	if p.config.Title != "" {
		h["X-Title"] = p.config.Title
	}
	return h
}
