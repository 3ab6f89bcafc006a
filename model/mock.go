package model

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/agentloop/core"
)

// MockProvider is a lightweight in-memory Provider useful for tests and
// examples. Responses and chunk scripts are consumed in FIFO order; every
// request is recorded for later inspection.
type MockProvider struct {
	mu          sync.Mutex
	completions []mockCompletion
	streams     []mockStream
	requests    []Request
}

type mockCompletion struct {
	resp *Response
	err  error
}

type mockStream struct {
	chunks []Chunk
	err    error
	midErr error
}

// NewMockProvider constructs an empty MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// QueueResponse appends a scripted completion.
func (m *MockProvider) QueueResponse(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, mockCompletion{resp: resp})
}

// QueueTextResponse appends a plain text completion with no tool calls.
func (m *MockProvider) QueueTextResponse(content string) {
	m.QueueResponse(&Response{Content: content, FinishReason: "stop"})
}

// QueueToolCallResponse appends a completion requesting a single tool call.
func (m *MockProvider) QueueToolCallResponse(name string, args map[string]any) {
	m.QueueResponse(&Response{
		ToolCalls: []ToolCall{{
			ID:        "call_" + uuid.NewString()[:8],
			Name:      name,
			Arguments: args,
		}},
		FinishReason: "tool_calls",
	})
}

// QueueError appends a scripted completion failure.
func (m *MockProvider) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, mockCompletion{err: err})
}

// QueueStream appends a scripted chunk sequence.
func (m *MockProvider) QueueStream(chunks ...Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, mockStream{chunks: chunks})
}

// QueueStreamError appends a stream that fails to establish.
func (m *MockProvider) QueueStreamError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, mockStream{err: err})
}

// QueueFailingStream appends a scripted chunk sequence that reports err
// once the chunks are exhausted, simulating a mid-stream failure.
func (m *MockProvider) QueueFailingStream(err error, chunks ...Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, mockStream{chunks: chunks, midErr: err})
}

// Complete implements Provider.
func (m *MockProvider) Complete(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.completions) == 0 {
		return nil, core.NewModelBehaviorError("no scripted response")
	}
	next := m.completions[0]
	m.completions = m.completions[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.resp, nil
}

// Stream implements Provider.
func (m *MockProvider) Stream(_ context.Context, req Request) (ChunkStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.streams) == 0 {
		return nil, core.NewModelBehaviorError("no scripted stream")
	}
	next := m.streams[0]
	m.streams = m.streams[1:]
	if next.err != nil {
		return nil, next.err
	}
	if next.midErr != nil {
		return NewFailingChunkStream(next.chunks, next.midErr), nil
	}
	return NewSliceChunkStream(next.chunks), nil
}

// Requests returns all requests seen so far, in order.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the total number of Complete and Stream invocations.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// sliceChunkStream replays a fixed chunk slice, optionally ending with an
// error to simulate a mid-stream failure.
type sliceChunkStream struct {
	chunks  []Chunk
	pos     int
	current Chunk
	err     error
}

// NewSliceChunkStream wraps a chunk slice in a ChunkStream.
func NewSliceChunkStream(chunks []Chunk) ChunkStream {
	return &sliceChunkStream{chunks: chunks}
}

// NewFailingChunkStream replays chunks then reports err from Err.
func NewFailingChunkStream(chunks []Chunk, err error) ChunkStream {
	return &sliceChunkStream{chunks: chunks, err: err}
}

func (s *sliceChunkStream) Next() bool {
	if s.pos >= len(s.chunks) {
		return false
	}
	s.current = s.chunks[s.pos]
	s.pos++
	return true
}

func (s *sliceChunkStream) Current() Chunk { return s.current }

func (s *sliceChunkStream) Err() error {
	if s.pos >= len(s.chunks) {
		return s.err
	}
	return nil
}
