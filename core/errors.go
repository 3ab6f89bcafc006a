package core

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes run failures so callers can branch on the class of
// failure without string matching.
type ErrorKind string

const (
	// ErrMaxTurnsExceeded signals the turn budget was exhausted without a
	// terminal response.
	ErrMaxTurnsExceeded ErrorKind = "max_turns_exceeded"
	// ErrInputGuardrail signals an input guardrail blocked the run.
	ErrInputGuardrail ErrorKind = "input_guardrail_triggered"
	// ErrOutputGuardrail signals an output guardrail blocked the final output.
	ErrOutputGuardrail ErrorKind = "output_guardrail_triggered"
	// ErrToolInputGuardrail signals a tool input guardrail blocked a call.
	ErrToolInputGuardrail ErrorKind = "tool_input_guardrail_triggered"
	// ErrToolOutputGuardrail signals a tool output guardrail blocked a result.
	ErrToolOutputGuardrail ErrorKind = "tool_output_guardrail_triggered"
	// ErrToolExecution signals an unresolved tool name or a failed execution.
	ErrToolExecution ErrorKind = "tool_execution_failed"
	// ErrToolTimeout signals a tool exceeded its execution deadline.
	ErrToolTimeout ErrorKind = "tool_timeout"
	// ErrModel signals a provider API failure. Retriable.
	ErrModel ErrorKind = "model_error"
	// ErrSession signals a session storage failure. Retriable.
	ErrSession ErrorKind = "session_error"
	// ErrSerialization signals a JSON encode/decode failure.
	ErrSerialization ErrorKind = "serialization_error"
	// ErrConfig signals invalid configuration, e.g. colliding tool names.
	ErrConfig ErrorKind = "config_error"
	// ErrUser signals an error raised by user supplied code.
	ErrUser ErrorKind = "user_error"
	// ErrModelBehavior signals a malformed or unexpected provider response.
	ErrModelBehavior ErrorKind = "model_behavior_error"
)

// AgentError is the unified error type surfaced by runs. Kind discriminates
// the failure class; Tool and Turns carry the offending tool name and the
// configured turn budget where applicable.
type AgentError struct {
	Kind  ErrorKind
	Msg   string
	Tool  string
	Turns int
	Err   error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	switch e.Kind {
	case ErrMaxTurnsExceeded:
		return fmt.Sprintf("max turns exceeded: %d", e.Turns)
	case ErrToolExecution:
		return fmt.Sprintf("tool execution failed: %s: %s", e.Tool, e.Msg)
	case ErrToolTimeout:
		return fmt.Sprintf("tool timeout: %s", e.Tool)
	default:
		return fmt.Sprintf("%s: %s", kindLabel(e.Kind), e.Msg)
	}
}

func kindLabel(kind ErrorKind) string {
	switch kind {
	case ErrInputGuardrail:
		return "input guardrail triggered"
	case ErrOutputGuardrail:
		return "output guardrail triggered"
	case ErrToolInputGuardrail:
		return "tool input guardrail triggered"
	case ErrToolOutputGuardrail:
		return "tool output guardrail triggered"
	case ErrModel:
		return "model error"
	case ErrSession:
		return "session error"
	case ErrSerialization:
		return "serialization error"
	case ErrConfig:
		return "configuration error"
	case ErrUser:
		return "user error"
	case ErrModelBehavior:
		return "model behavior error"
	default:
		return string(kind)
	}
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *AgentError) Unwrap() error { return e.Err }

// Retriable reports whether retrying the operation may succeed. Only model
// and session failures are transient; everything else is deterministic.
func (e *AgentError) Retriable() bool {
	return e.Kind == ErrModel || e.Kind == ErrSession
}

// IsKind reports whether err is (or wraps) an AgentError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// NewMaxTurnsExceeded reports turn budget exhaustion with the configured
// budget value.
func NewMaxTurnsExceeded(turns int) *AgentError {
	return &AgentError{Kind: ErrMaxTurnsExceeded, Turns: turns}
}

// NewToolExecutionFailed reports an unresolved tool name or execution failure.
func NewToolExecutionFailed(tool, reason string) *AgentError {
	return &AgentError{Kind: ErrToolExecution, Tool: tool, Msg: reason}
}

// NewToolTimeout reports a tool exceeding its deadline.
func NewToolTimeout(tool string) *AgentError {
	return &AgentError{Kind: ErrToolTimeout, Tool: tool}
}

// NewInputGuardrailTriggered reports a blocked run input.
func NewInputGuardrailTriggered(reason string) *AgentError {
	return &AgentError{Kind: ErrInputGuardrail, Msg: reason}
}

// NewOutputGuardrailTriggered reports a blocked final output.
func NewOutputGuardrailTriggered(reason string) *AgentError {
	return &AgentError{Kind: ErrOutputGuardrail, Msg: reason}
}

// NewToolInputGuardrailTriggered reports blocked tool arguments.
func NewToolInputGuardrailTriggered(reason string) *AgentError {
	return &AgentError{Kind: ErrToolInputGuardrail, Msg: reason}
}

// NewToolOutputGuardrailTriggered reports a blocked tool result.
func NewToolOutputGuardrailTriggered(reason string) *AgentError {
	return &AgentError{Kind: ErrToolOutputGuardrail, Msg: reason}
}

// NewModelError wraps a provider API failure.
func NewModelError(err error) *AgentError {
	return &AgentError{Kind: ErrModel, Msg: err.Error(), Err: err}
}

// NewSessionError wraps a session storage failure.
func NewSessionError(err error) *AgentError {
	return &AgentError{Kind: ErrSession, Msg: err.Error(), Err: err}
}

// NewSerializationError wraps a JSON encode/decode failure.
func NewSerializationError(err error) *AgentError {
	return &AgentError{Kind: ErrSerialization, Msg: err.Error(), Err: err}
}

// NewConfigError reports invalid configuration.
func NewConfigError(msg string) *AgentError {
	return &AgentError{Kind: ErrConfig, Msg: msg}
}

// NewUserError reports an error raised by user supplied code.
func NewUserError(msg string) *AgentError {
	return &AgentError{Kind: ErrUser, Msg: msg}
}

// NewModelBehaviorError reports a malformed or unexpected provider response.
func NewModelBehaviorError(msg string) *AgentError {
	return &AgentError{Kind: ErrModelBehavior, Msg: msg}
}
