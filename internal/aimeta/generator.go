// Package aimeta generates page summaries and tags for a book and runs the
// batch jobs that store them.
package aimeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"conductor/internal/textutil"
)

const (
	maxPromptChars = 12000
	maxTags        = 10

	systemPrompt = `You write metadata for pages of open educational textbooks.
Respond with JSON only, shaped as {"summary": string, "tags": [string]}.
The summary is at most two sentences in plain language. Tags are short
lowercase subject keywords. Omit a field when it is not requested.`
)

type Request struct {
	PageTitle string
	Text      string
	Summary   bool
	Tags      bool
}

type Result struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Generator produces metadata for one page.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// OpenAIGenerator calls the chat completions API in JSON mode.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, model string, opts ...option.RequestOption) *OpenAIGenerator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	if !req.Summary && !req.Tags {
		return Result{}, errors.New("ai generate: nothing requested")
	}
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return Result{}, fmt.Errorf("ai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("ai generate: empty choices")
	}

	var out Result
	if err := DecodeJSON(resp.Choices[0].Message.Content, &out); err != nil {
		return Result{}, fmt.Errorf("ai generate: parse payload: %w", err)
	}
	return out.clean(req), nil
}

func userPrompt(req Request) string {
	var want []string
	if req.Summary {
		want = append(want, "summary")
	}
	if req.Tags {
		want = append(want, "tags")
	}
	text := req.Text
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	return fmt.Sprintf("Requested fields: %s\nPage title: %s\n\n%s", strings.Join(want, ", "), req.PageTitle, text)
}

func (r Result) clean(req Request) Result {
	out := Result{}
	if req.Summary {
		out.Summary = strings.TrimSpace(r.Summary)
	}
	if req.Tags {
		tags := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tags = append(tags, t)
			}
		}
		tags = textutil.Dedupe(tags)
		if len(tags) > maxTags {
			tags = tags[:maxTags]
		}
		out.Tags = tags
	}
	return out
}

// DecodeJSON decodes a model response, tolerating a surrounding code fence.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}
	body := strings.TrimPrefix(trimmed, "```")
	body = strings.TrimPrefix(strings.TrimLeft(body, " \t\r\n"), "json")
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in payload %q", snippet(trimmed))
	}
	return json.Unmarshal([]byte(body[start:end+1]), target)
}

func snippet(s string) string {
	const limit = 120
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
