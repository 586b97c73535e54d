package biz

import (
	"context"
	"strings"

	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/internal/pkg/jsonutil"
	"github.com/kart-io/askdocs/pkg/log"
)

// SummaryTool turns raw issue reports into structured summaries.
type SummaryTool struct {
	generator *Generator
}

// NewSummaryTool creates a SummaryTool.
func NewSummaryTool(generator *Generator) *SummaryTool {
	return &SummaryTool{generator: generator}
}

type summaryOutput struct {
	ReportedIssues     any    `json:"reported_issues"`
	AffectedComponents any    `json:"affected_components"`
	Severity           string `json:"severity"`
	Suggestions        any    `json:"suggestions"`
}

// Summarize extracts the structured fields from issueText. Generation
// failures propagate; a completion that cannot be parsed as JSON
// degrades to an empty summary instead of failing the request.
func (t *SummaryTool) Summarize(ctx context.Context, issueText string) (*model.IssueSummary, error) {
	issueText = strings.TrimSpace(issueText)
	if issueText == "" {
		return nil, ErrEmptyInput
	}

	resp, err := t.generator.Generate(ctx, summaryPrompt(issueText), summarySystemPrompt)
	if err != nil {
		return nil, err
	}

	var out summaryOutput
	if parseErr := jsonutil.ExtractObject(resp.Content, &out); parseErr != nil {
		log.Warnw("summary output unparseable, degrading to empty summary", "error", parseErr.Error())
		return &model.IssueSummary{
			RawText:            issueText,
			ReportedIssues:     []string{},
			AffectedComponents: []string{},
			Severity:           model.SeverityLow,
			Suggestions:        []string{},
		}, nil
	}

	return &model.IssueSummary{
		RawText:            issueText,
		ReportedIssues:     orEmpty(jsonutil.StringList(out.ReportedIssues)),
		AffectedComponents: orEmpty(jsonutil.StringList(out.AffectedComponents)),
		Severity:           model.NormalizeSeverity(out.Severity),
		Suggestions:        orEmpty(jsonutil.StringList(out.Suggestions)),
	}, nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
