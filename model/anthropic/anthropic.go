// Package anthropic implements model.Provider using the Anthropic Messages
// API (including streaming and tool use). Response format descriptors are not
// forwarded; the API has no response_format parameter, so structured output
// relies on the caller's schema instructions and downstream parsing.
package anthropic

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Options configure the Anthropic provider adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Provider wraps the Anthropic Messages API behind the generic
// model.Provider interface.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

var _ model.Provider = (*Provider)(nil)

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// New creates an Anthropic provider using the official client. Without an
// explicit APIKey option the key is read from the environment.
func New(optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic provider from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Provider{client: client, opts: opts}
}

// Complete implements model.Provider.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	params := p.buildParams(req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, core.NewModelError(err)
	}

	out := &model.Response{
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()

			args := map[string]any{}
			if len(toolBlock.Input) > 0 {
				_ = json.Unmarshal(toolBlock.Input, &args)
			}

			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}

	out.FinishReason = "stop"
	if resp.StopReason != "" {
		out.FinishReason = string(resp.StopReason)
	}

	return out, nil
}

// Stream implements model.Provider. Establishment failures surface through
// the returned stream's Err after the first Next reports false.
func (p *Provider) Stream(ctx context.Context, req model.Request) (model.ChunkStream, error) {
	params := p.buildParams(req)
	return &chunkStream{inner: p.client.Messages.NewStreaming(ctx, params)}, nil
}

// buildParams assembles the Anthropic request parameters including system
// blocks and tool definitions.
func (p *Provider) buildParams(req model.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
	}

	if req.Model != "" {
		params.Model = anthropic.Model(req.Model)
	}

	if systemBlocks := extractSystem(req.Messages); len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	return params
}

// buildMessages converts the flat message log to Anthropic message params.
// System messages are handled separately; tool results carry no call ids at
// this level and travel as user content.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			if msg.Content != "" {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			}
		default:
			if msg.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		}
	}

	return out
}

func extractSystem(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam

	for _, msg := range messages {
		if msg.Role == core.RoleSystem && msg.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}

	return blocks
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, td := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if td.Parameters != nil {
			if properties, ok := td.Parameters["properties"]; ok {
				inputSchema.Properties = properties
			}

			switch required := td.Parameters["required"].(type) {
			case []string:
				inputSchema.Required = required
			case []any:
				for _, r := range required {
					if s, ok := r.(string); ok {
						inputSchema.Required = append(inputSchema.Required, s)
					}
				}
			}
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, td.Name)
	}

	return out
}

// chunkStream adapts the SDK's SSE stream to model.ChunkStream. Tool use
// blocks surface as indexed deltas: the start event carries id and name, the
// input_json deltas carry argument fragments, and the accumulated message's
// stop reason becomes the finish chunk.
type chunkStream struct {
	inner   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	msg     anthropic.Message
	current model.Chunk
	err     error
}

// Next implements model.ChunkStream.
func (s *chunkStream) Next() bool {
	if s.err != nil {
		return false
	}

	for s.inner.Next() {
		event := s.inner.Current()

		if err := s.msg.Accumulate(event); err != nil {
			s.err = core.NewModelError(err)
			return false
		}

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if variant.ContentBlock.Type != "tool_use" {
				continue
			}

			delta := model.ToolCallDelta{
				Index: int(variant.Index),
				ID:    variant.ContentBlock.ID,
				Name:  variant.ContentBlock.Name,
			}

			// Some responses deliver the full input in the start block.
			if variant.ContentBlock.Input != nil {
				if raw, err := json.Marshal(variant.ContentBlock.Input); err == nil {
					if args := string(raw); args != "" && args != "{}" && args != "null" {
						delta.Arguments = args
					}
				}
			}

			s.current = model.Chunk{ToolCallDeltas: []model.ToolCallDelta{delta}}

			return true
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}

				s.current = model.Chunk{Delta: delta.Text}

				return true
			case anthropic.InputJSONDelta:
				if delta.PartialJSON == "" {
					continue
				}

				s.current = model.Chunk{ToolCallDeltas: []model.ToolCallDelta{{
					Index:     int(variant.Index),
					Arguments: delta.PartialJSON,
				}}}

				return true
			}
		case anthropic.MessageStopEvent:
			finishReason := "stop"
			if s.msg.StopReason != "" {
				finishReason = string(s.msg.StopReason)
			}

			s.current = model.Chunk{FinishReason: finishReason}

			return true
		}
	}

	return false
}

// Current implements model.ChunkStream.
func (s *chunkStream) Current() model.Chunk { return s.current }

// Err implements model.ChunkStream.
func (s *chunkStream) Err() error {
	if s.err != nil {
		return s.err
	}

	if err := s.inner.Err(); err != nil {
		return core.NewModelError(err)
	}

	return nil
}
