// Package runner implements the core orchestration loop for agentloop.
//
// The Runner drives the conversation between a model provider and the
// current agent's capabilities: it builds completion requests from the
// conversation log, dispatches the tool and handoff calls the model asks
// for, swaps the active agent when a handoff fires, and stops when the
// model produces a tool-call-free answer or the turn budget runs out.
//
// Two execution modes share the same turn semantics:
//   - Run blocks until the final result and surfaces every error.
//   - RunStreamed executes the loop in a background goroutine, delivering
//     progress as stream.Event values on a channel while per-step failures
//     are logged and skipped instead of aborting the run.
//
// # Responsibilities (abridged)
//   - Turn loop with a bounded budget (MaxTurns, default 100)
//   - Tool catalog construction per active agent, collision checked
//   - Tool/handoff dispatch in request order with lifecycle hooks
//   - Streaming reconciliation of fragmented tool calls
//   - Session history seeding and terminal persistence
//   - Run lifecycle management and cancellation
//
// See runner.go for the synchronous loop and streamed.go for the
// streaming variant.
package runner
