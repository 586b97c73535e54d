// Package model holds the wire-level types exchanged between the
// pipeline stages and the HTTP layer.
package model

import "strings"

// Document is an immutable source document handed to ingestion.
// Re-ingesting the same ID replaces every chunk derived from it.
type Document struct {
	ID           string `json:"id"`
	SourcePath   string `json:"source_path,omitempty"`
	RawText      string `json:"raw_text"`
	LanguageHint string `json:"language_hint,omitempty"`
}

// Query is a transient per-request value.
type Query struct {
	RawText  string `json:"query"`
	Context  string `json:"context,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Tool names the pipeline a query is routed to.
type Tool string

const (
	ToolQA        Tool = "qa"
	ToolSummarize Tool = "summarize"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	return t == ToolQA || t == ToolSummarize
}

// RoutingDecision is the immutable outcome of intent classification.
type RoutingDecision struct {
	Tool      Tool           `json:"tool"`
	Rationale string         `json:"rationale"`
	ToolInput map[string]any `json:"tool_input"`
}

// Answer is the assembled response of the QA pipeline.
type Answer struct {
	Query      string   `json:"query"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// Severity grades an issue report.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// NormalizeSeverity validates s against the known grades, ignoring
// case; anything unrecognized degrades to Low rather than failing the
// request.
func NormalizeSeverity(s string) Severity {
	for _, known := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if strings.EqualFold(s, string(known)) {
			return known
		}
	}
	return SeverityLow
}

// IssueSummary is the structured output of the summarization pipeline.
type IssueSummary struct {
	RawText            string   `json:"raw_text"`
	ReportedIssues     []string `json:"reported_issues"`
	AffectedComponents []string `json:"affected_components"`
	Severity           Severity `json:"severity"`
	Suggestions        []string `json:"suggestions"`
}

// QueryResponse pairs the routing decision with the tool output for
// the combined /query endpoint.
type QueryResponse struct {
	Decision RoutingDecision `json:"decision"`
	Result   any             `json:"result"`
}
