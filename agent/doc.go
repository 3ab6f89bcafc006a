// Package agent defines the agent profile: a named bundle of instructions,
// model id, tools, handoffs, guardrails and lifecycle hooks that the runner
// executes. Agents are built once with New and treated as immutable while a
// run is in flight; a handoff swaps which profile is current, it never
// mutates one.
//
// The package also holds the two hook families. Hooks observes a single
// agent's lifecycle (model calls, tool calls, handoffs); RunHooks observes
// the whole run regardless of which agent is current. Embed BaseHooks or
// BaseRunHooks to implement only the callbacks you care about.
package agent
