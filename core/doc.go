// Package core contains the shared leaf types of the agentloop runtime:
// conversation messages and the ordered per-run message log, the unified
// error taxonomy, and the final run result. Higher level packages (agent,
// model, runner, session) build on these without introducing cycles.
package core
