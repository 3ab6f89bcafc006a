package testutil

import (
	"github.com/hupe1980/agentloop/model"
)

// ChunkScript provides a fluent helper for scripting streamed responses in
// tests. Example:
//
//	chunks := NewChunkScript().Text("Hel").Text("lo").Finish("stop").Chunks()
//
// Chain only the parts you need; each call appends one chunk in order.
type ChunkScript struct {
	chunks []model.Chunk
}

// NewChunkScript creates an empty script.
func NewChunkScript() *ChunkScript { return &ChunkScript{} }

// Text appends a chunk carrying a text delta (chainable).
func (s *ChunkScript) Text(delta string) *ChunkScript {
	s.chunks = append(s.chunks, model.Chunk{Delta: delta})
	return s
}

// Fragment appends a chunk carrying a single tool call fragment addressed by
// index (chainable). Pass empty strings for parts absent from the fragment;
// later fragments with the same index extend the call under assembly.
func (s *ChunkScript) Fragment(index int, id, name, args string) *ChunkScript {
	s.chunks = append(s.chunks, model.Chunk{
		ToolCallDeltas: []model.ToolCallDelta{{Index: index, ID: id, Name: name, Arguments: args}},
	})
	return s
}

// Call appends a chunk carrying a complete tool call in one fragment
// (chainable). Shorthand for Fragment with all parts present.
func (s *ChunkScript) Call(index int, id, name, args string) *ChunkScript {
	return s.Fragment(index, id, name, args)
}

// Finish appends a chunk carrying only a finish reason (chainable).
func (s *ChunkScript) Finish(reason string) *ChunkScript {
	s.chunks = append(s.chunks, model.Chunk{FinishReason: reason})
	return s
}

// Chunks returns the scripted sequence.
func (s *ChunkScript) Chunks() []model.Chunk { return s.chunks }
