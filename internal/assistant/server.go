package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/askdocs/internal/assistant/biz"
	"github.com/kart-io/askdocs/internal/assistant/handler"
	"github.com/kart-io/askdocs/internal/assistant/metrics"
	assistantrouter "github.com/kart-io/askdocs/internal/assistant/router"
	"github.com/kart-io/askdocs/internal/assistant/store"
	"github.com/kart-io/askdocs/pkg/component/milvus"
	redisclient "github.com/kart-io/askdocs/pkg/component/redis"
	"github.com/kart-io/askdocs/pkg/llm"
	"github.com/kart-io/askdocs/pkg/llm/resilience"
	"github.com/kart-io/askdocs/pkg/log"

	// Register LLM providers.
	_ "github.com/kart-io/askdocs/pkg/llm/ollama"
	_ "github.com/kart-io/askdocs/pkg/llm/openai"
)

// Server is the assembled HTTP service.
type Server struct {
	opts    *Options
	httpSrv *http.Server
	service *biz.Service
	closers []func()
}

// NewServer wires all components from opts.
func NewServer(ctx context.Context, opts *Options) (*Server, error) {
	opts.Log.AddInitialField("service.name", Name)
	if err := log.Init(opts.Log); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	log.Infow("starting service", "addr", opts.Server.Addr, "backend", opts.Pipeline.Backend)

	var closers []func()

	vectorStore, err := buildStore(opts)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() { _ = vectorStore.Close(context.Background()) })

	redisConn := buildRedis(ctx, opts)
	if redisConn != nil {
		closers = append(closers, func() { _ = redisConn.Close() })
	}

	service, m, err := buildService(opts, vectorStore, redisConn)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	if err := service.EnsureCollection(ctx); err != nil {
		log.Warnw("collection preparation failed, ingestion may fail", "error", err.Error())
	}

	gin.SetMode(opts.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), assistantrouter.RequestID(), assistantrouter.AccessLog())
	assistantrouter.Register(engine, handler.NewAssistantHandler(service, opts.Server.RequestTimeout), m)

	return &Server{
		opts: opts,
		httpSrv: &http.Server{
			Addr:    opts.Server.Addr,
			Handler: engine,
		},
		service: service,
		closers: closers,
	}, nil
}

func buildStore(opts *Options) (store.VectorStore, error) {
	if opts.Pipeline.Backend == "memory" {
		log.Info("using in-memory vector store")
		return store.NewMemoryStore(), nil
	}

	client, err := milvus.New(opts.Milvus)
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus: %w", err)
	}
	log.Infow("milvus client initialized", "address", opts.Milvus.Address)
	return store.NewMilvusStore(client, "cosine"), nil
}

// buildRedis returns nil when the cache is disabled or redis is
// unreachable; the service degrades to uncached operation.
func buildRedis(ctx context.Context, opts *Options) *goredis.Client {
	if !opts.Cache.Enabled || !opts.Redis.Enabled {
		log.Info("answer cache disabled")
		return nil
	}

	client, err := redisclient.New(ctx, opts.Redis)
	if err != nil {
		log.Warnw("redis unreachable, answer cache disabled", "error", err.Error())
		return nil
	}
	log.Infow("redis cache initialized", "host", opts.Redis.Host, "ttl", opts.Cache.TTL.String())
	return client.Client()
}

func buildService(opts *Options, vectorStore store.VectorStore, redisConn *goredis.Client) (*biz.Service, *metrics.Metrics, error) {
	m := metrics.New()

	embedProvider, err := llm.NewEmbeddingProvider(opts.LLM.Embedding.Provider, opts.LLM.Embedding.ToConfigMap())
	if err != nil {
		return nil, nil, fmt.Errorf("initializing embedding provider: %w", err)
	}
	resilientEmbed := resilience.NewResilientEmbeddingProvider(embedProvider, nil, nil)
	log.Infow("embedding provider initialized",
		"provider", opts.LLM.Embedding.Provider,
		"model", opts.LLM.Embedding.Model,
	)

	chain := make([]biz.ProviderModel, 0, len(opts.LLM.FallbackChain))
	providers := make(map[string]llm.ChatProvider)
	for _, entry := range opts.LLM.FallbackChain {
		pm, err := biz.ParseProviderModel(entry)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, pm)
		if _, ok := providers[pm.Provider]; ok {
			continue
		}
		chatProvider, err := llm.NewChatProvider(pm.Provider, opts.LLM.ProviderConfig(pm.Provider))
		if err != nil {
			return nil, nil, fmt.Errorf("initializing chat provider %s: %w", pm.Provider, err)
		}
		providers[pm.Provider] = chatProvider
	}
	log.Infow("generation chain initialized", "chain", opts.LLM.FallbackChain)

	generator := biz.NewGenerator(providers, &biz.GeneratorConfig{
		Chain:       chain,
		Temperature: opts.Pipeline.Temperature,
		MaxTokens:   opts.Pipeline.MaxTokens,
	}, m)
	retriever := biz.NewRetriever(vectorStore, resilientEmbed, &biz.RetrieverConfig{
		TopK:         opts.Pipeline.TopK,
		MinRelevance: opts.Pipeline.MinRelevance,
		Collection:   opts.Pipeline.Collection,
	}, m)
	indexer := biz.NewIndexer(vectorStore, resilientEmbed, &biz.IndexerConfig{
		ChunkSize:    opts.Pipeline.ChunkSize,
		ChunkOverlap: opts.Pipeline.ChunkOverlap,
		Collection:   opts.Pipeline.Collection,
		EmbeddingDim: opts.Pipeline.EmbeddingDim,
	})

	cache := biz.NewQueryCache(redisConn, &biz.QueryCacheConfig{
		Enabled:   opts.Cache.Enabled && redisConn != nil,
		TTL:       opts.Cache.TTL,
		KeyPrefix: opts.Cache.KeyPrefix,
	})

	service := biz.NewService(
		biz.NewRouter(generator),
		biz.NewQATool(retriever, generator, biz.NewAssembler(nil)),
		biz.NewSummaryTool(generator),
		indexer,
		generator,
		cache,
		vectorStore,
		&biz.ServiceConfig{Collection: opts.Pipeline.Collection},
		m,
	)
	return service, m, nil
}

// NewIndexerFromOptions builds a standalone indexer for offline batch
// ingestion. The returned closer releases the store connection.
func NewIndexerFromOptions(ctx context.Context, opts *Options) (*biz.Indexer, func(), error) {
	if err := log.Init(opts.Log); err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	vectorStore, err := buildStore(opts)
	if err != nil {
		return nil, nil, err
	}
	closer := func() { _ = vectorStore.Close(context.Background()) }

	embedProvider, err := llm.NewEmbeddingProvider(opts.LLM.Embedding.Provider, opts.LLM.Embedding.ToConfigMap())
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("initializing embedding provider: %w", err)
	}

	indexer := biz.NewIndexer(vectorStore, resilience.NewResilientEmbeddingProvider(embedProvider, nil, nil), &biz.IndexerConfig{
		ChunkSize:    opts.Pipeline.ChunkSize,
		ChunkOverlap: opts.Pipeline.ChunkOverlap,
		Collection:   opts.Pipeline.Collection,
		EmbeddingDim: opts.Pipeline.EmbeddingDim,
	})
	if err := indexer.EnsureCollection(ctx); err != nil {
		closer()
		return nil, nil, fmt.Errorf("preparing collection: %w", err)
	}
	return indexer, closer, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.Server.ShutdownTimeout)
	defer cancel()
	err := s.httpSrv.Shutdown(shutdownCtx)
	s.close()
	_ = log.Sync()
	return err
}

func (s *Server) close() {
	for _, c := range s.closers {
		c()
	}
}
