package core

// RunResult is the terminal outcome of a run: the final assistant text plus,
// when the agent declared an output schema, the structured payload parsed
// from it.
type RunResult struct {
	finalOutput string
	structured  map[string]any
}

// NewRunResult creates a plain-text run result.
func NewRunResult(finalOutput string) *RunResult {
	return &RunResult{finalOutput: finalOutput}
}

// NewStructuredRunResult creates a run result carrying a parsed structured
// payload alongside the raw text.
func NewStructuredRunResult(finalOutput string, structured map[string]any) *RunResult {
	return &RunResult{finalOutput: finalOutput, structured: structured}
}

// FinalOutput returns the final assistant text.
func (r *RunResult) FinalOutput() string { return r.finalOutput }

// Structured returns the parsed structured payload, or nil when the agent
// declared no output schema.
func (r *RunResult) Structured() map[string]any { return r.structured }
