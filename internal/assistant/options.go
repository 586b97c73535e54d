// Package assistant assembles the query answering service: options,
// component wiring and the HTTP server.
package assistant

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/askdocs/pkg/log"
	llmopts "github.com/kart-io/askdocs/pkg/options/llm"
	milvusopts "github.com/kart-io/askdocs/pkg/options/milvus"
	redisopts "github.com/kart-io/askdocs/pkg/options/redis"
)

// Name is the service name.
const Name = "askdocs"

// Options contains all service options.
type Options struct {
	// Server contains HTTP server configuration.
	Server *ServerOptions `json:"server" mapstructure:"server"`

	// Log contains logger configuration.
	Log *log.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus connection configuration; used when the
	// store backend is milvus.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Redis contains the cache connection configuration.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// LLM contains the embedding provider and the generation chain.
	LLM *llmopts.Options `json:"llm" mapstructure:"llm"`

	// Pipeline contains chunking, retrieval and generation tuning.
	Pipeline *PipelineOptions `json:"pipeline" mapstructure:"pipeline"`

	// Cache contains answer cache configuration.
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`
}

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	// Addr is the listen address.
	Addr string `json:"addr" mapstructure:"addr"`

	// Mode is the gin mode (debug, release, test).
	Mode string `json:"mode" mapstructure:"mode"`

	// RequestTimeout bounds each request's pipeline work.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// PipelineOptions tunes the answering pipeline.
type PipelineOptions struct {
	// Backend selects the vector store: milvus or memory.
	Backend string `json:"backend" mapstructure:"backend"`

	// Collection is the knowledge base collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// ChunkSize is the default chunk window in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the default overlap between chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the default number of retrieved chunks.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MinRelevance is the default normalized score floor.
	MinRelevance float64 `json:"min-relevance" mapstructure:"min-relevance"`

	// EmbeddingDim is the embedding vector dimension.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// Temperature and MaxTokens pass through to generation.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max-tokens" mapstructure:"max-tokens"`
}

// CacheOptions configures the answer cache.
type CacheOptions struct {
	// Enabled turns the cache on; requires redis.enabled as well.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL is the entry lifetime.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix namespaces the cache keys.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Server: &ServerOptions{
			Addr:            ":8083",
			Mode:            "release",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:    log.NewOptions(),
		Milvus: milvusopts.NewOptions(),
		Redis:  redisopts.NewOptions(),
		LLM:    llmopts.NewOptions(),
		Pipeline: &PipelineOptions{
			Backend:      "milvus",
			Collection:   "internal_docs",
			ChunkSize:    1024,
			ChunkOverlap: 100,
			TopK:         4,
			MinRelevance: 0.6,
			EmbeddingDim: 768,
			Temperature:  0.2,
			MaxTokens:    800,
		},
		Cache: &CacheOptions{
			Enabled:   false,
			TTL:       time.Hour,
			KeyPrefix: "askdocs:qa:",
		},
	}
}

// AddFlags adds all service flags to the flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "HTTP listen address.")
	fs.StringVar(&o.Server.Mode, "server.mode", o.Server.Mode, "Gin mode (debug, release, test).")
	fs.DurationVar(&o.Server.RequestTimeout, "server.request-timeout", o.Server.RequestTimeout, "Per-request pipeline timeout.")
	fs.DurationVar(&o.Server.ShutdownTimeout, "server.shutdown-timeout", o.Server.ShutdownTimeout, "Graceful shutdown timeout.")

	fs.StringVar(&o.Log.Level, "log.level", o.Log.Level, "Minimum log level (debug, info, warn, error).")
	fs.StringVar(&o.Log.Format, "log.format", o.Log.Format, "Log encoder (json or console).")
	fs.BoolVar(&o.Log.Development, "log.development", o.Log.Development, "Enable development logging.")

	o.Milvus.AddFlags(fs)
	o.Redis.AddFlags(fs)
	o.LLM.AddFlags(fs)

	fs.StringVar(&o.Pipeline.Backend, "pipeline.backend", o.Pipeline.Backend, "Vector store backend (milvus or memory).")
	fs.StringVar(&o.Pipeline.Collection, "pipeline.collection", o.Pipeline.Collection, "Knowledge base collection name.")
	fs.IntVar(&o.Pipeline.ChunkSize, "pipeline.chunk-size", o.Pipeline.ChunkSize, "Chunk window size in characters.")
	fs.IntVar(&o.Pipeline.ChunkOverlap, "pipeline.chunk-overlap", o.Pipeline.ChunkOverlap, "Overlap between chunks.")
	fs.IntVar(&o.Pipeline.TopK, "pipeline.top-k", o.Pipeline.TopK, "Number of retrieved chunks.")
	fs.Float64Var(&o.Pipeline.MinRelevance, "pipeline.min-relevance", o.Pipeline.MinRelevance, "Normalized relevance floor.")
	fs.IntVar(&o.Pipeline.EmbeddingDim, "pipeline.embedding-dim", o.Pipeline.EmbeddingDim, "Embedding vector dimension.")
	fs.Float64Var(&o.Pipeline.Temperature, "pipeline.temperature", o.Pipeline.Temperature, "Generation temperature.")
	fs.IntVar(&o.Pipeline.MaxTokens, "pipeline.max-tokens", o.Pipeline.MaxTokens, "Generation token limit.")

	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Enable the answer cache.")
	fs.DurationVar(&o.Cache.TTL, "cache.ttl", o.Cache.TTL, "Answer cache TTL.")
	fs.StringVar(&o.Cache.KeyPrefix, "cache.key-prefix", o.Cache.KeyPrefix, "Answer cache key prefix.")
}

// Validate validates all options.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return err
	}
	if o.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if o.Pipeline.Backend != "milvus" && o.Pipeline.Backend != "memory" {
		return fmt.Errorf("pipeline.backend must be milvus or memory, got %q", o.Pipeline.Backend)
	}
	if o.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("pipeline.chunk-size must be positive")
	}
	if o.Pipeline.ChunkOverlap < 0 || o.Pipeline.ChunkOverlap >= o.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline.chunk-overlap must be in [0, chunk-size)")
	}
	if o.Pipeline.TopK <= 0 {
		return fmt.Errorf("pipeline.top-k must be positive")
	}
	if o.Pipeline.MinRelevance < 0 || o.Pipeline.MinRelevance > 1 {
		return fmt.Errorf("pipeline.min-relevance must be in [0, 1]")
	}
	if o.Pipeline.EmbeddingDim <= 0 {
		return fmt.Errorf("pipeline.embedding-dim must be positive")
	}

	if o.Pipeline.Backend == "milvus" {
		if errs := o.Milvus.Validate(); len(errs) > 0 {
			return errs[0]
		}
	}
	if errs := o.Redis.Validate(); len(errs) > 0 {
		return errs[0]
	}
	if errs := o.LLM.Validate(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}
