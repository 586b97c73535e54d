package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/pkg/llm"
)

func newTestRouter(chat *scriptedChat) *Router {
	g := NewGenerator(map[string]llm.ChatProvider{"test": chat}, &GeneratorConfig{
		Chain: []ProviderModel{{Provider: "test", Model: "m"}},
		Retry: testRetryConfig(),
	}, nil)
	return NewRouter(g)
}

func TestRouter_RoutesQuestionToQA(t *testing.T) {
	chat := newScriptedChat("test",
		chatReply{content: `{"tool": "qa", "rationale": "the user asks a question about existing documentation"}`},
	)
	r := newTestRouter(chat)

	decision := r.Route(context.Background(), model.Query{
		RawText: "What are the known issues with file uploads?",
	})

	assert.Equal(t, model.ToolQA, decision.Tool)
	assert.NotEmpty(t, decision.Rationale)
	assert.Equal(t, "What are the known issues with file uploads?", decision.ToolInput["query"])
	assert.NotContains(t, decision.ToolInput, "issue_text")
}

func TestRouter_RoutesIssueReportToSummarize(t *testing.T) {
	issue := "Customer reported that the signup confirmation emails are not being sent since the last deploy. Several users are affected and support tickets are piling up."
	chat := newScriptedChat("test",
		chatReply{content: `{"tool": "summarize", "rationale": "the text is an issue report to be condensed"}`},
	)
	r := newTestRouter(chat)

	decision := r.Route(context.Background(), model.Query{RawText: issue})

	assert.Equal(t, model.ToolSummarize, decision.Tool)
	assert.Equal(t, issue, decision.ToolInput["issue_text"])
}

func TestRouter_MalformedOutputRecoversOnRetry(t *testing.T) {
	chat := newScriptedChat("test",
		chatReply{content: "Sure! The right tool here is qa because..."},
		chatReply{content: `{"tool": "qa", "rationale": "question about documentation"}`},
	)
	r := newTestRouter(chat)

	decision := r.Route(context.Background(), model.Query{RawText: "How do I rotate API keys?"})

	assert.Equal(t, model.ToolQA, decision.Tool)
	assert.Equal(t, 2, chat.callCount())
}

func TestRouter_PersistentMalformedOutputDefaultsToQA(t *testing.T) {
	chat := newScriptedChat("test",
		chatReply{content: "not json at all"},
	)
	r := newTestRouter(chat)

	decision := r.Route(context.Background(), model.Query{RawText: "anything"})

	assert.Equal(t, model.ToolQA, decision.Tool)
	assert.Equal(t, "anything", decision.ToolInput["query"])
	assert.Equal(t, 2, chat.callCount())
}

func TestRouter_UnknownToolDefaultsToQA(t *testing.T) {
	chat := newScriptedChat("test",
		chatReply{content: `{"tool": "translate", "rationale": "looks like a translation request"}`},
	)
	r := newTestRouter(chat)

	decision := r.Route(context.Background(), model.Query{RawText: "anything"})

	assert.Equal(t, model.ToolQA, decision.Tool)
}

func TestRouter_GenerationFailureDefaultsToQA(t *testing.T) {
	chat := newScriptedChat("test",
		chatReply{err: &llm.StatusError{Provider: "test", StatusCode: 400}},
	)
	r := newTestRouter(chat)

	decision := r.Route(context.Background(), model.Query{RawText: "anything"})

	assert.Equal(t, model.ToolQA, decision.Tool)
	assert.Equal(t, "anything", decision.ToolInput["query"])
}

func TestRouter_FencedJSONAccepted(t *testing.T) {
	chat := newScriptedChat("test",
		chatReply{content: "```json\n{\"tool\": \"summarize\", \"rationale\": \"issue report\"}\n```"},
	)
	r := newTestRouter(chat)

	decision := r.Route(context.Background(), model.Query{RawText: "the app crashes on startup for all android users"})

	assert.Equal(t, model.ToolSummarize, decision.Tool)
	assert.Equal(t, 1, chat.callCount())
}
