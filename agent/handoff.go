package agent

import (
	"context"
	"fmt"
	"strings"
)

// Handoff declares that control may transfer to another agent. It is exposed
// to the model as a callable function; when the model calls it, the runner
// swaps the current agent for the target.
type Handoff struct {
	target       *Agent
	description  string
	overrideName string
}

// HandoffOptions configures a Handoff instance.
type HandoffOptions struct {
	// Description tells the model when to use this handoff.
	Description string
	// OverrideName replaces the derived function name.
	OverrideName string
}

// NewHandoff creates a handoff to the given agent. The function name exposed
// to the model is derived from the target's display name unless overridden.
func NewHandoff(target *Agent, optFns ...func(o *HandoffOptions)) *Handoff {
	opts := HandoffOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Handoff{
		target:       target,
		description:  opts.Description,
		overrideName: opts.OverrideName,
	}
}

// Target returns the agent that receives control.
func (h *Handoff) Target() *Agent { return h.target }

// Name returns the function name exposed to the model: the override if set,
// otherwise the target's display name lower-cased with spaces replaced by
// underscores.
func (h *Handoff) Name() string {
	if h.overrideName != "" {
		return h.overrideName
	}
	return strings.ReplaceAll(strings.ToLower(h.target.Name()), " ", "_")
}

// Description returns the handoff description shown to the model.
func (h *Handoff) Description() string {
	if h.description != "" {
		return h.description
	}
	return fmt.Sprintf("Handoff to the %s agent to handle the request.", h.target.Name())
}

// Parameters returns the argument schema. Handoffs take no arguments.
func (h *Handoff) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Call executes the handoff. The result carries the target agent marker the
// runner inspects to perform the transfer; everything else about dispatch
// (tool message rendering, hook order) treats a handoff like a regular tool.
func (h *Handoff) Call(ctx context.Context, args map[string]any) (any, error) {
	return map[string]any{"assistant": h.target.Name()}, nil
}
