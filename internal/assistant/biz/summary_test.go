package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/pkg/llm"
)

func newTestSummaryTool(chat *scriptedChat) *SummaryTool {
	g := NewGenerator(map[string]llm.ChatProvider{"test": chat}, &GeneratorConfig{
		Chain: []ProviderModel{{Provider: "test", Model: "m"}},
		Retry: testRetryConfig(),
	}, nil)
	return NewSummaryTool(g)
}

func TestSummaryTool_ParsesStructuredOutput(t *testing.T) {
	chat := newScriptedChat("test", chatReply{content: `{
		"reported_issues": ["confirmation emails not sent after deploy"],
		"affected_components": ["email service", "signup flow"],
		"severity": "High",
		"suggestions": ["roll back the deploy", "check the email queue"]
	}`})
	tool := newTestSummaryTool(chat)

	summary, err := tool.Summarize(context.Background(), "Signup confirmation emails stopped after the last deploy.")
	require.NoError(t, err)

	assert.Equal(t, []string{"confirmation emails not sent after deploy"}, summary.ReportedIssues)
	assert.Equal(t, []string{"email service", "signup flow"}, summary.AffectedComponents)
	assert.Equal(t, model.SeverityHigh, summary.Severity)
	assert.Len(t, summary.Suggestions, 2)
	assert.NotEmpty(t, summary.RawText)
}

func TestSummaryTool_InvalidSeverityBecomesLow(t *testing.T) {
	chat := newScriptedChat("test", chatReply{content: `{
		"reported_issues": ["x"],
		"affected_components": [],
		"severity": "catastrophic",
		"suggestions": []
	}`})
	tool := newTestSummaryTool(chat)

	summary, err := tool.Summarize(context.Background(), "something broke")
	require.NoError(t, err)
	assert.Equal(t, model.SeverityLow, summary.Severity)
	assert.NotNil(t, summary.AffectedComponents)
	assert.Empty(t, summary.AffectedComponents)
}

func TestSummaryTool_CaseInsensitiveSeverity(t *testing.T) {
	chat := newScriptedChat("test", chatReply{content: `{
		"reported_issues": ["x"], "affected_components": ["y"], "severity": "critical", "suggestions": []
	}`})
	tool := newTestSummaryTool(chat)

	summary, err := tool.Summarize(context.Background(), "total outage")
	require.NoError(t, err)
	assert.Equal(t, model.SeverityCritical, summary.Severity)
}

func TestSummaryTool_UnparseableOutputDegrades(t *testing.T) {
	chat := newScriptedChat("test", chatReply{content: "I could not produce JSON, sorry."})
	tool := newTestSummaryTool(chat)

	summary, err := tool.Summarize(context.Background(), "something broke")
	require.NoError(t, err)
	assert.Empty(t, summary.ReportedIssues)
	assert.NotNil(t, summary.ReportedIssues)
	assert.Equal(t, model.SeverityLow, summary.Severity)
	assert.Equal(t, "something broke", summary.RawText)
}

func TestSummaryTool_EmptyInputRejected(t *testing.T) {
	tool := newTestSummaryTool(newScriptedChat("test"))

	_, err := tool.Summarize(context.Background(), "   \n ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestSummaryTool_GenerationFailurePropagates(t *testing.T) {
	chat := newScriptedChat("test", chatReply{err: &llm.StatusError{Provider: "test", StatusCode: 500}})
	tool := newTestSummaryTool(chat)

	_, err := tool.Summarize(context.Background(), "something broke")
	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}
