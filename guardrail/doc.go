// Package guardrail defines validation checkpoints for agent runs. Guardrails
// inspect user input before the first model call, final output before it is
// returned, and tool arguments/results around each tool execution. A check
// returns a Result that allows, blocks, or rewrites the content.
//
// Guardrails are declared on agents and enforced by the runner; the package
// itself has no dependency on agents or models so custom checks stay easy to
// unit test.
package guardrail
