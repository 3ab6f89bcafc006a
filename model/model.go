package model

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a fully resolved function call request surfaced by a provider.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ResponseFormat types accepted by providers.
const (
	ResponseFormatText       = "text"
	ResponseFormatJSONObject = "json_object"
	ResponseFormatJSONSchema = "json_schema"
)

// ResponseFormat constrains the shape of the model output.
type ResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// JSONSchemaFormat describes a structured output contract. Strict is always
// sent so downstream parsing of the payload stays deterministic.
type JSONSchemaFormat struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict"`
}

// Request captures the normalized provider input produced by the runner.
type Request struct {
	Messages          []core.Message   `json:"messages"`
	Model             string           `json:"model"`
	Tools             []ToolDefinition `json:"tools,omitempty"`
	ResponseFormat    *ResponseFormat  `json:"response_format,omitempty"`
	ParallelToolCalls bool             `json:"parallel_tool_calls,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a complete (non-streamed) provider response.
type Response struct {
	Content      string      `json:"content"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// ToolCallDelta is a partial tool call fragment from a streamed response.
// Index addresses the call being assembled; ID, Name and Arguments carry
// fragments to be concatenated in arrival order.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Chunk is one unit of a streamed response: an optional text delta, zero or
// more tool call fragments, and an optional finish reason on the last chunk.
type Chunk struct {
	Delta          string          `json:"delta,omitempty"`
	ToolCallDeltas []ToolCallDelta `json:"tool_call_deltas,omitempty"`
	FinishReason   string          `json:"finish_reason,omitempty"`
}

// ChunkStream is a pull iterator over streamed chunks, mirroring the shape of
// vendor SSE streams. Next reports false once the stream is exhausted or
// failed; Err distinguishes the two.
type ChunkStream interface {
	// Next advances to the next chunk, reporting false at end of stream or
	// on error.
	Next() bool

	// Current returns the chunk most recently advanced to.
	Current() Chunk

	// Err returns the terminal error, or nil after a clean end of stream.
	Err() error
}

// Provider is the minimal interface the runner requires from a model
// backend.
type Provider interface {
	// Complete performs a one-shot completion.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream opens a chunked completion. An error here means the stream
	// could not be established; errors after establishment surface through
	// ChunkStream.Err.
	Stream(ctx context.Context, req Request) (ChunkStream, error)
}
