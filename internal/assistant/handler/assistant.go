// Package handler provides the HTTP handlers for the assistant service.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/askdocs/internal/assistant/biz"
	"github.com/kart-io/askdocs/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// AssistantHandler handles assistant HTTP requests.
type AssistantHandler struct {
	service *biz.Service
	timeout time.Duration
}

// NewAssistantHandler creates a new AssistantHandler. A zero timeout
// uses the default.
func NewAssistantHandler(service *biz.Service, timeout time.Duration) *AssistantHandler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &AssistantHandler{service: service, timeout: timeout}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *AssistantHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// writeError maps pipeline errors onto HTTP status codes: invalid
// input is the caller's fault, an unreachable index is unavailability,
// an exhausted generation chain is a bad gateway.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var ingErr *biz.IngestionError
	var exhausted *biz.ExhaustedError
	switch {
	case errors.As(err, &ingErr) || errors.Is(err, biz.ErrEmptyInput):
		status = http.StatusBadRequest
	case errors.Is(err, biz.ErrRetrievalUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &exhausted):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}

	c.JSON(status, ErrorResponse{Code: status, Message: err.Error()})
}

// QueryRequest is the combined routing entry point's payload.
type QueryRequest struct {
	Query    string `json:"query" binding:"required"`
	Context  string `json:"context,omitempty"`
	Priority string `json:"priority,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	// MinRelevance 0 is a valid floor, so absence is signalled by nil.
	MinRelevance *float64 `json:"min_relevance,omitempty"`
}

func minRelevanceOrDefault(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

// Query routes the query to a tool and returns its result together
// with the routing decision.
func (h *AssistantHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.service.Query(ctx, model.Query{
		RawText:  req.Query,
		Context:  req.Context,
		Priority: req.Priority,
	}, req.TopK, minRelevanceOrDefault(req.MinRelevance))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// AnswerRequest asks the QA tool directly, skipping routing.
type AnswerRequest struct {
	Query        string   `json:"query" binding:"required"`
	TopK         int      `json:"top_k,omitempty"`
	MinRelevance *float64 `json:"min_relevance,omitempty"`
}

// Answer runs the QA pipeline for one question.
func (h *AssistantHandler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	answer, err := h.service.Answer(ctx, req.Query, req.TopK, minRelevanceOrDefault(req.MinRelevance))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: answer})
}

// SummarizeRequest carries a raw issue report. Category and priority
// are accepted but do not change the summary.
type SummarizeRequest struct {
	IssueText string `json:"issue_text" binding:"required"`
	Category  string `json:"category,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

// Summarize condenses an issue report into its structured form.
func (h *AssistantHandler) Summarize(c *gin.Context) {
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	summary, err := h.service.Summarize(ctx, req.IssueText)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: summary})
}

// IngestRequest carries documents inline, file paths, or both.
type IngestRequest struct {
	Documents []model.Document `json:"documents,omitempty"`
	Paths     []string         `json:"paths,omitempty"`
	ChunkSize int              `json:"chunk_size,omitempty"`
	Overlap   *int             `json:"overlap,omitempty"`
}

// IngestResponse reports how much was written.
type IngestResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// Ingest chunks, embeds and stores the submitted documents.
func (h *AssistantHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	if len(req.Documents) == 0 && len(req.Paths) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "documents or paths is required"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	// Overlap 0 is a valid choice, so absence is signalled by nil.
	overlap := -1
	if req.Overlap != nil {
		overlap = *req.Overlap
	}

	total := 0
	if len(req.Documents) > 0 {
		chunks, err := h.service.Ingest(ctx, req.Documents, req.ChunkSize, overlap)
		if err != nil {
			writeError(c, err)
			return
		}
		total += chunks
	}
	if len(req.Paths) > 0 {
		chunks, err := h.service.IngestPaths(ctx, req.Paths, req.ChunkSize, overlap)
		if err != nil {
			writeError(c, err)
			return
		}
		total += chunks
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "documents ingested",
		Data:    IngestResponse{Documents: len(req.Documents) + len(req.Paths), Chunks: total},
	})
}

// Stats returns knowledge base and pipeline statistics.
func (h *AssistantHandler) Stats(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: h.service.Stats(ctx)})
}

// Healthz reports liveness of the service and its store.
func (h *AssistantHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: 503, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok"})
}
