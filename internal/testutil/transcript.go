package testutil

import (
	"github.com/hupe1980/agentloop/core"
)

// Transcript helps construct conversation histories with fluent chaining for
// tests. Example:
//
//	msgs := NewTranscript().User("hi").Assistant("hello").Build()
type Transcript struct {
	messages []core.Message
}

// NewTranscript creates an empty transcript. Use chainable methods (System,
// User, Assistant, Tool) then call Build.
func NewTranscript() *Transcript { return &Transcript{} }

// System appends a system-role message (chainable).
func (t *Transcript) System(content string) *Transcript {
	t.messages = append(t.messages, core.NewSystemMessage(content))
	return t
}

// User appends a user-role message (chainable).
func (t *Transcript) User(content string) *Transcript {
	t.messages = append(t.messages, core.NewUserMessage(content))
	return t
}

// Assistant appends an assistant-role message (chainable).
func (t *Transcript) Assistant(content string) *Transcript {
	t.messages = append(t.messages, core.NewAssistantMessage(content))
	return t
}

// Tool appends a tool-role message (chainable).
func (t *Transcript) Tool(content string) *Transcript {
	t.messages = append(t.messages, core.NewToolMessage(content))
	return t
}

// Build returns the assembled message slice.
func (t *Transcript) Build() []core.Message { return t.messages }
