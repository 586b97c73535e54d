package biz

import (
	"context"

	"github.com/kart-io/askdocs/internal/assistant/store"
	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/pkg/log"
)

// ServiceConfig configures the orchestrating service.
type ServiceConfig struct {
	// Collection is the knowledge base collection name.
	Collection string
}

// Service ties the pipeline together: routing, the tools behind it,
// ingestion, caching and health. Handlers call only this type.
type Service struct {
	router    *Router
	qa        *QATool
	summary   *SummaryTool
	indexer   *Indexer
	generator *Generator
	cache     *QueryCache
	store     store.VectorStore
	config    *ServiceConfig
	metrics   MetricsRecorder
}

// NewService creates the Service. A nil recorder disables metrics.
func NewService(
	router *Router,
	qa *QATool,
	summary *SummaryTool,
	indexer *Indexer,
	generator *Generator,
	cache *QueryCache,
	vectorStore store.VectorStore,
	config *ServiceConfig,
	rec MetricsRecorder,
) *Service {
	return &Service{
		router:    router,
		qa:        qa,
		summary:   summary,
		indexer:   indexer,
		generator: generator,
		cache:     cache,
		store:     vectorStore,
		config:    config,
		metrics:   orNop(rec),
	}
}

// Query routes the free-form query to a tool and runs it. The response
// always carries the routing decision so callers can see why a tool
// was chosen.
func (s *Service) Query(ctx context.Context, query model.Query, topK int, minRelevance float64) (*model.QueryResponse, error) {
	decision := s.router.Route(ctx, query)

	var result any
	var err error
	switch decision.Tool {
	case model.ToolSummarize:
		issueText, _ := decision.ToolInput["issue_text"].(string)
		result, err = s.summary.Summarize(ctx, issueText)
	default:
		queryText, _ := decision.ToolInput["query"].(string)
		result, err = s.Answer(ctx, queryText, topK, minRelevance)
	}

	s.metrics.RecordQuery(string(decision.Tool), err)
	if err != nil {
		return nil, err
	}
	return &model.QueryResponse{Decision: decision, Result: result}, nil
}

// Answer runs the QA tool directly. Answers for default retrieval
// parameters are served from the cache when one is configured.
func (s *Service) Answer(ctx context.Context, query string, topK int, minRelevance float64) (*model.Answer, error) {
	// Overridden retrieval parameters bypass the cache; its key is the
	// query text alone.
	cacheable := topK <= 0 && minRelevance < 0
	if cacheable {
		if answer := s.cache.Get(ctx, query); answer != nil {
			s.metrics.RecordCache(true)
			log.Debugw("answer served from cache", "query_length", len(query))
			return answer, nil
		}
		s.metrics.RecordCache(false)
	}

	answer, err := s.qa.Answer(ctx, query, topK, minRelevance)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.Set(ctx, query, answer)
	}
	return answer, nil
}

// Summarize runs the summarization tool directly.
func (s *Service) Summarize(ctx context.Context, issueText string) (*model.IssueSummary, error) {
	return s.summary.Summarize(ctx, issueText)
}

// Ingest chunks, embeds and stores the given documents.
func (s *Service) Ingest(ctx context.Context, docs []model.Document, chunkSize, overlap int) (int, error) {
	chunks, err := s.indexer.Ingest(ctx, docs, chunkSize, overlap)
	s.metrics.RecordIngestion(len(docs), chunks, err)
	return chunks, err
}

// IngestPaths ingests the files at the given paths.
func (s *Service) IngestPaths(ctx context.Context, paths []string, chunkSize, overlap int) (int, error) {
	chunks, err := s.indexer.IngestPaths(ctx, paths, chunkSize, overlap)
	s.metrics.RecordIngestion(len(paths), chunks, err)
	return chunks, err
}

// EnsureCollection prepares the knowledge base collection.
func (s *Service) EnsureCollection(ctx context.Context) error {
	return s.indexer.EnsureCollection(ctx)
}

// Stats reports the service's operational state.
func (s *Service) Stats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"collection":       s.config.Collection,
		"store_metric":     s.store.Metric(),
		"primary_provider": s.generator.Primary().String(),
	}

	if count, err := s.store.Stats(ctx, s.config.Collection); err != nil {
		stats["chunk_count_error"] = err.Error()
	} else {
		stats["chunk_count"] = count
	}
	stats["cache"] = s.cache.Stats(ctx)
	if snap, ok := s.metrics.(interface{ Snapshot() map[string]any }); ok {
		stats["metrics"] = snap.Snapshot()
	}
	return stats
}

// Health checks the store connection.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}
