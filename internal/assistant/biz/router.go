package biz

import (
	"context"

	"github.com/kart-io/askdocs/internal/model"
	"github.com/kart-io/askdocs/internal/pkg/jsonutil"
	"github.com/kart-io/askdocs/pkg/log"
)

// Router classifies queries into a tool via a single-shot LLM call.
// Routing never fails the request: a persistently malformed or invalid
// classification degrades to QA.
type Router struct {
	generator *Generator
}

// NewRouter creates a Router on top of the generation client, so
// classification enjoys the same retry and fallback behavior.
func NewRouter(generator *Generator) *Router {
	return &Router{generator: generator}
}

type routingOutput struct {
	Tool      string `json:"tool"`
	Rationale string `json:"rationale"`
}

// Route decides which tool handles the query. The decision's ToolInput
// is normalized for the chosen tool.
func (r *Router) Route(ctx context.Context, query model.Query) model.RoutingDecision {
	prompt := routingPrompt(query.RawText, query.Context)

	out, err := r.classify(ctx, prompt, routingSystemPrompt)
	if err != nil {
		log.Warnw("routing output unusable, re-prompting", "error", err.Error())
		out, err = r.classify(ctx, prompt, routingRetrySystemPrompt)
	}
	if err != nil {
		log.Warnw("routing failed, defaulting to qa", "error", err.Error())
		return defaultDecision(query)
	}

	tool := model.Tool(out.Tool)
	if !tool.Valid() {
		log.Warnw("router chose unknown tool, defaulting to qa", "tool", out.Tool)
		return defaultDecision(query)
	}

	return model.RoutingDecision{
		Tool:      tool,
		Rationale: out.Rationale,
		ToolInput: toolInput(tool, query),
	}
}

func (r *Router) classify(ctx context.Context, prompt, system string) (*routingOutput, error) {
	resp, err := r.generator.Generate(ctx, prompt, system)
	if err != nil {
		return nil, err
	}
	var out routingOutput
	if err := jsonutil.ExtractObject(resp.Content, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func defaultDecision(query model.Query) model.RoutingDecision {
	return model.RoutingDecision{
		Tool:      model.ToolQA,
		Rationale: "routing was ambiguous; answering as a question",
		ToolInput: toolInput(model.ToolQA, query),
	}
}

func toolInput(tool model.Tool, query model.Query) map[string]any {
	switch tool {
	case model.ToolSummarize:
		return map[string]any{"issue_text": query.RawText}
	default:
		return map[string]any{"query": query.RawText}
	}
}
