// Package stream defines the events emitted during a streaming run. Three
// event families exist: RawResponseEvent carries text deltas as they arrive
// from the backend, RunItemEvent marks semantic progress (messages, tool
// calls, handoffs), and AgentUpdatedEvent signals that a handoff switched the
// current agent. Both Event and RunItem are sealed unions; consumers switch
// on the concrete types.
package stream
