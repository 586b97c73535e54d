// Package llmopts provides LLM provider configuration options.
package llmopts

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/askdocs/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// ProviderOptions configures one LLM provider.
type ProviderOptions struct {
	// Provider is the registry name (openai, openrouter, ollama).
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL overrides the provider's default API root.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey authenticates requests. When empty it is taken from the
	// <PROVIDER>_API_KEY environment variable.
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model is the model name used for this concern.
	Model string `json:"model" mapstructure:"model"`

	// Timeout bounds each request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ToConfigMap converts the options into the map consumed by provider
// factories.
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.resolveAPIKey(),
		"embed_model": o.Model,
		"chat_model":  o.Model,
		"timeout":     o.Timeout,
	}
}

func (o *ProviderOptions) resolveAPIKey() string {
	if o.APIKey != "" {
		return o.APIKey
	}
	env := strings.ToUpper(strings.ReplaceAll(o.Provider, "-", "_")) + "_API_KEY"
	return os.Getenv(env)
}

// Options holds the embedding provider, per-provider credentials for
// the generation chain, and the chain itself.
type Options struct {
	// Embedding configures the embedding provider.
	Embedding *ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Providers maps registry names to credentials and endpoints for
	// the providers referenced by the fallback chain. Configured via
	// file or environment, not flags.
	Providers map[string]*ProviderOptions `json:"providers" mapstructure:"providers"`

	// FallbackChain is the ordered generation chain, each entry as
	// "provider/model". The model part may itself contain slashes.
	FallbackChain []string `json:"fallback-chain" mapstructure:"fallback-chain"`
}

// NewOptions creates Options with local-first defaults.
func NewOptions() *Options {
	return &Options{
		Embedding: &ProviderOptions{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			Timeout:  120 * time.Second,
		},
		Providers: map[string]*ProviderOptions{},
		FallbackChain: []string{
			"openrouter/google/gemini-2.5-flash",
			"ollama/llama3.1:8b",
		},
	}
}

// ProviderConfig returns the factory config map for a chain provider,
// falling back to an empty entry so environment API keys still apply.
func (o *Options) ProviderConfig(name string) map[string]any {
	if p, ok := o.Providers[name]; ok && p != nil {
		cp := *p
		cp.Provider = name
		return cp.ToConfigMap()
	}
	p := &ProviderOptions{Provider: name}
	return p.ToConfigMap()
}

// AddFlags adds flags to the flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	if o.Embedding == nil {
		o.Embedding = NewOptions().Embedding
	}
	fs.StringVar(&o.Embedding.Provider, options.Join(prefixes...)+"llm.embedding.provider", o.Embedding.Provider, "Embedding provider (openai, openrouter, ollama).")
	fs.StringVar(&o.Embedding.BaseURL, options.Join(prefixes...)+"llm.embedding.base-url", o.Embedding.BaseURL, "Embedding API base URL.")
	fs.StringVar(&o.Embedding.Model, options.Join(prefixes...)+"llm.embedding.model", o.Embedding.Model, "Embedding model name.")
	fs.DurationVar(&o.Embedding.Timeout, options.Join(prefixes...)+"llm.embedding.timeout", o.Embedding.Timeout, "Embedding request timeout.")
	fs.StringSliceVar(&o.FallbackChain, options.Join(prefixes...)+"llm.fallback-chain", o.FallbackChain, "Ordered generation chain, entries as provider/model.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Embedding == nil || o.Embedding.Provider == "" {
		errs = append(errs, fmt.Errorf("embedding provider is required"))
	}
	if o.Embedding != nil && o.Embedding.Model == "" {
		errs = append(errs, fmt.Errorf("embedding model is required"))
	}
	if len(o.FallbackChain) == 0 {
		errs = append(errs, fmt.Errorf("fallback chain must have at least one entry"))
	}
	for _, entry := range o.FallbackChain {
		if !strings.Contains(entry, "/") {
			errs = append(errs, fmt.Errorf("fallback chain entry %q must be provider/model", entry))
		}
	}
	return errs
}
