package biz

import (
	"errors"
	"fmt"
	"strings"
)

// IngestionError reports an invalid document or chunking parameters.
// It fails the ingestion call only; the service keeps running.
type IngestionError struct {
	DocumentID string
	Reason     string
}

func (e *IngestionError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("ingestion failed: %s", e.Reason)
	}
	return fmt.Sprintf("ingestion of %q failed: %s", e.DocumentID, e.Reason)
}

// ErrEmptyInput rejects requests with nothing to work on.
var ErrEmptyInput = errors.New("input is empty")

// ErrRetrievalUnavailable marks a retrieval backend or embedding
// failure. Wrapped by the retriever so callers can distinguish an
// unreachable index from a legitimately empty result.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// AttemptError is one failed generation attempt in chain order.
type AttemptError struct {
	Provider string
	Model    string
	Attempt  int
	Reason   string
}

// ExhaustedError is returned when every provider in the fallback chain
// has been exhausted. Attempts preserves the full failure trail.
type ExhaustedError struct {
	Attempts []AttemptError
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("generation exhausted after %d attempts", len(e.Attempts)))
	for _, a := range e.Attempts {
		sb.WriteString(fmt.Sprintf("; %s/%s attempt %d: %s", a.Provider, a.Model, a.Attempt, a.Reason))
	}
	return sb.String()
}
