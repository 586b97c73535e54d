package biz

import (
	"fmt"
	"strings"
)

const routingSystemPrompt = `You are the request router of an internal support assistant.
Classify the user's request into exactly one tool and respond with JSON only.

Tools:
- "qa": the user asks a question that should be answered from the internal knowledge base.
- "summarize": the user pastes an issue or incident report that should be summarized into structured fields.

Respond with a single JSON object:
{"tool": "<qa|summarize>", "rationale": "<one short sentence>"}`

const routingRetrySystemPrompt = routingSystemPrompt + `

Your previous output could not be parsed. Respond with ONLY the JSON object, no prose, no code fences.`

func routingPrompt(rawText, context string) string {
	var sb strings.Builder
	sb.WriteString("User request:\n")
	sb.WriteString(rawText)
	if context != "" {
		sb.WriteString("\n\nAdditional context:\n")
		sb.WriteString(context)
	}
	return sb.String()
}

const qaSystemPrompt = `You are an internal support assistant. Answer the question using ONLY the provided evidence blocks.
Cite nothing beyond them. If the evidence does not contain the answer, say that the knowledge base does not cover it.`

// qaPrompt formats the retrieved chunks as evidence blocks, each
// headed by its chunk id.
func qaPrompt(query string, chunks []*ScoredChunk) string {
	var sb strings.Builder
	if len(chunks) == 0 {
		sb.WriteString("No evidence was retrieved from the knowledge base.\n\n")
	} else {
		sb.WriteString("Evidence:\n\n")
		for _, c := range chunks {
			sb.WriteString(fmt.Sprintf("[%s]\n%s\n\n", c.ChunkID, c.Text))
		}
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}

const summarySystemPrompt = `You summarize internal issue reports. Respond with JSON only, using this exact shape:
{
  "reported_issues": ["..."],
  "affected_components": ["..."],
  "severity": "Low|Medium|High|Critical",
  "suggestions": ["..."]
}`

func summaryPrompt(issueText string) string {
	return "Issue report:\n" + issueText
}
