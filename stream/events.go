package stream

import "github.com/hupe1980/agentloop/agent"

// ItemEventName identifies what kind of progress a RunItemEvent marks.
type ItemEventName string

const (
	// NameMessageOutputCreated marks a completed assistant message.
	NameMessageOutputCreated ItemEventName = "message_output_created"
	// NameToolCalled marks a fully reassembled tool call before execution.
	NameToolCalled ItemEventName = "tool_called"
	// NameToolOutput marks a tool result.
	NameToolOutput ItemEventName = "tool_output"
	// NameHandoffRequested marks that the model called a handoff function.
	NameHandoffRequested ItemEventName = "handoff_requested"
	// NameHandoffOccurred marks that control actually transferred.
	NameHandoffOccurred ItemEventName = "handoff_occurred"
)

// Event is a single entry in a streaming run's event sequence.
type Event interface {
	// Type returns the event family as a stable string.
	Type() string

	isEvent()
}

// RawResponseEvent carries raw model output, typically a text delta. Error
// notices from a failed stream are delivered through this event family as
// well.
type RawResponseEvent struct {
	Data string
}

// Type implements Event.
func (RawResponseEvent) Type() string { return "raw_response_event" }

func (RawResponseEvent) isEvent() {}

// RunItemEvent wraps a semantic run item together with the event name that
// announces it.
type RunItemEvent struct {
	Name ItemEventName
	Item RunItem
}

// Type implements Event.
func (RunItemEvent) Type() string { return "run_item_stream_event" }

func (RunItemEvent) isEvent() {}

// AgentUpdatedEvent notifies that a new agent is now running.
type AgentUpdatedEvent struct {
	NewAgent *agent.Agent
}

// Type implements Event.
func (AgentUpdatedEvent) Type() string { return "agent_updated_stream_event" }

func (AgentUpdatedEvent) isEvent() {}

// RunItem is a semantic unit of progress within a run.
type RunItem interface {
	// ItemKind returns the item variant as a stable string.
	ItemKind() string

	isRunItem()
}

// MessageOutputItem is a completed assistant message.
type MessageOutputItem struct {
	Content string `json:"content"`
}

// ItemKind implements RunItem.
func (MessageOutputItem) ItemKind() string { return "message_output" }

func (MessageOutputItem) isRunItem() {}

// ToolCallItem is a tool call request with parsed arguments.
type ToolCallItem struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ItemKind implements RunItem.
func (ToolCallItem) ItemKind() string { return "tool_call" }

func (ToolCallItem) isRunItem() {}

// ToolOutputItem is a tool result rendered as a string.
type ToolOutputItem struct {
	Name   string `json:"name"`
	Output string `json:"output"`
}

// ItemKind implements RunItem.
func (ToolOutputItem) ItemKind() string { return "tool_output" }

func (ToolOutputItem) isRunItem() {}

// HandoffRequestedItem records that the model asked for a handoff.
type HandoffRequestedItem struct {
	AgentName string `json:"agent_name"`
}

// ItemKind implements RunItem.
func (HandoffRequestedItem) ItemKind() string { return "handoff_requested" }

func (HandoffRequestedItem) isRunItem() {}

// HandoffOccurredItem records that control transferred to another agent.
type HandoffOccurredItem struct {
	AgentName string `json:"agent_name"`
}

// ItemKind implements RunItem.
func (HandoffOccurredItem) ItemKind() string { return "handoff_occurred" }

func (HandoffOccurredItem) isRunItem() {}
