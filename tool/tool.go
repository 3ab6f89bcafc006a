// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side effects) with
// schema described arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"
)

// Error codes attached to ToolError for categorization.
const (
	// CodeValidation indicates the supplied arguments failed schema checks.
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution indicates the underlying implementation returned an error.
	CodeExecution = "EXECUTION_ERROR"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tools are registered on agents to enable function calling, allowing agents
// to perform actions beyond text generation such as API calls, calculations
// or database queries.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use; the runner may invoke the same tool from
//     multiple simultaneous runs
type Tool interface {
	// Name returns the unique identifier for this tool. Names should follow
	// function naming conventions (snake_case recommended) and must be
	// unique within an agent's catalog.
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is provided to the model to help it decide when to call the
	// tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments arrive already parsed from the
	// model's JSON; the returned value must be JSON-serializable and is
	// rendered into the conversation for the next turn.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
