package guardrail

import "context"

// Decision describes the outcome of a guardrail check.
type Decision string

const (
	// DecisionAllow lets the content pass through unchanged.
	DecisionAllow Decision = "allow"
	// DecisionBlock rejects the content and aborts the run or tool call.
	DecisionBlock Decision = "block"
	// DecisionModify replaces the content with Result.NewContent.
	DecisionModify Decision = "modify"
)

// Result is the outcome of a single guardrail check.
type Result struct {
	Decision   Decision
	Reason     string
	NewContent string
}

// Allow returns a passing result.
func Allow() Result {
	return Result{Decision: DecisionAllow}
}

// Block returns a rejecting result with a reason surfaced in the run error.
func Block(reason string) Result {
	return Result{Decision: DecisionBlock, Reason: reason}
}

// Modify returns a rewriting result. For input and output guardrails
// newContent replaces the checked text; for tool guardrails it must be a JSON
// document that replaces the arguments or result payload.
func Modify(newContent string) Result {
	return Result{Decision: DecisionModify, NewContent: newContent}
}

// Input checks user input before the first model call of a run.
type Input interface {
	Check(ctx context.Context, input string) (Result, error)
}

// Output checks the final textual output of a run before it is returned.
type Output interface {
	Check(ctx context.Context, output string) (Result, error)
}

// ToolInput checks tool arguments before the tool is executed.
type ToolInput interface {
	Check(ctx context.Context, toolName string, args map[string]any) (Result, error)
}

// ToolOutput checks a tool result before it is appended to the conversation.
type ToolOutput interface {
	Check(ctx context.Context, toolName string, output any) (Result, error)
}

// InputFunc adapts a function to the Input interface.
type InputFunc func(ctx context.Context, input string) (Result, error)

// Check calls f.
func (f InputFunc) Check(ctx context.Context, input string) (Result, error) {
	return f(ctx, input)
}

// OutputFunc adapts a function to the Output interface.
type OutputFunc func(ctx context.Context, output string) (Result, error)

// Check calls f.
func (f OutputFunc) Check(ctx context.Context, output string) (Result, error) {
	return f(ctx, output)
}

// ToolInputFunc adapts a function to the ToolInput interface.
type ToolInputFunc func(ctx context.Context, toolName string, args map[string]any) (Result, error)

// Check calls f.
func (f ToolInputFunc) Check(ctx context.Context, toolName string, args map[string]any) (Result, error) {
	return f(ctx, toolName, args)
}

// ToolOutputFunc adapts a function to the ToolOutput interface.
type ToolOutputFunc func(ctx context.Context, toolName string, output any) (Result, error)

// Check calls f.
func (f ToolOutputFunc) Check(ctx context.Context, toolName string, output any) (Result, error) {
	return f(ctx, toolName, output)
}
