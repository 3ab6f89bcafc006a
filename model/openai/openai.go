// Package openai implements model.Provider using the OpenAI Chat Completions
// API (including streaming and function/tool calling). It adapts the
// normalized Request/Response structures into the SDK's message format and
// back.
package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Options configure the OpenAI provider adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Provider wraps the OpenAI Chat Completions API behind the generic
// model.Provider interface.
type Provider struct {
	client *openai.Client
	opts   Options
}

var _ model.Provider = (*Provider)(nil)

// New creates an OpenAI provider using the official client. The API key is
// read from the environment.
func New(optFns ...func(o *Options)) *Provider {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI provider from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Provider{client: client, opts: opts}
}

// Complete implements model.Provider.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	params := p.buildParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, core.NewModelError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, core.NewModelBehaviorError("no choices returned")
	}

	choice := resp.Choices[0]

	out := &model.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		// Malformed argument payloads degrade to an empty argument map.
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}

		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return out, nil
}

// Stream implements model.Provider. Establishment failures surface through
// the returned stream's Err after the first Next reports false.
func (p *Provider) Stream(ctx context.Context, req model.Request) (model.ChunkStream, error) {
	params := p.buildParams(req)
	return &chunkStream{inner: p.client.Chat.Completions.NewStreaming(ctx, params)}, nil
}

// buildParams assembles the OpenAI request parameters including tool
// definitions and response format.
func (p *Provider) buildParams(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}

	if req.Model != "" {
		params.Model = req.Model
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, td := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        td.Name,
					Description: openai.String(td.Description),
					Parameters:  openai.FunctionParameters(td.Parameters),
				},
			}
		}
		params.Tools = tools
		params.ParallelToolCalls = openai.Bool(req.ParallelToolCalls)
	}

	if req.ResponseFormat != nil {
		params.ResponseFormat = buildResponseFormat(req.ResponseFormat)
	}

	return params
}

func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			// Tool results carry no call ids at this level; they travel as
			// user content like any other non-assistant turn.
			out = append(out, openai.UserMessage(msg.Content))
		}
	}

	return out
}

func buildResponseFormat(rf *model.ResponseFormat) openai.ChatCompletionNewParamsResponseFormatUnion {
	switch rf.Type {
	case model.ResponseFormatJSONSchema:
		js := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   rf.JSONSchema.Name,
			Schema: rf.JSONSchema.Schema,
			Strict: openai.Bool(rf.JSONSchema.Strict),
		}
		if rf.JSONSchema.Description != "" {
			js.Description = openai.String(rf.JSONSchema.Description)
		}
		return openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: js},
		}
	case model.ResponseFormatJSONObject:
		obj := shared.NewResponseFormatJSONObjectParam()
		return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &obj}
	default:
		txt := shared.NewResponseFormatTextParam()
		return openai.ChatCompletionNewParamsResponseFormatUnion{OfText: &txt}
	}
}

// chunkStream adapts the SDK's SSE stream to model.ChunkStream. Chunks
// without choices (usage reports) are skipped.
type chunkStream struct {
	inner   *ssestream.Stream[openai.ChatCompletionChunk]
	current model.Chunk
}

// Next implements model.ChunkStream.
func (s *chunkStream) Next() bool {
	for s.inner.Next() {
		ck := s.inner.Current()
		if len(ck.Choices) == 0 {
			continue
		}

		choice := ck.Choices[0]

		chunk := model.Chunk{
			Delta:        choice.Delta.Content,
			FinishReason: string(choice.FinishReason),
		}

		for _, tc := range choice.Delta.ToolCalls {
			chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, model.ToolCallDelta{
				Index:     int(tc.Index),
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		s.current = chunk

		return true
	}

	return false
}

// Current implements model.ChunkStream.
func (s *chunkStream) Current() model.Chunk { return s.current }

// Err implements model.ChunkStream.
func (s *chunkStream) Err() error {
	if err := s.inner.Err(); err != nil {
		return core.NewModelError(err)
	}
	return nil
}
