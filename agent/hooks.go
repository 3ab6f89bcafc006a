package agent

import (
	"context"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Hooks receives callbacks for events in the lifecycle of a single agent.
// All methods may return an error; in synchronous runs a hook error aborts
// the run, in streaming runs it is logged and the run continues.
type Hooks interface {
	// OnStart is called before the agent is invoked.
	OnStart(ctx context.Context, agent *Agent) error

	// OnEnd is called after the agent produces a final output.
	OnEnd(ctx context.Context, agent *Agent, output string) error

	// OnLLMStart is called before each model call with the request messages.
	OnLLMStart(ctx context.Context, agent *Agent, messages []core.Message) error

	// OnLLMEnd is called after each model response.
	OnLLMEnd(ctx context.Context, agent *Agent, response *model.Response) error

	// OnToolStart is called before a tool is executed.
	OnToolStart(ctx context.Context, agent *Agent, toolName string, args map[string]any) error

	// OnToolEnd is called after a tool is executed with its result.
	OnToolEnd(ctx context.Context, agent *Agent, toolName string, result any) error

	// OnHandoff is called when this agent hands off to another agent.
	OnHandoff(ctx context.Context, from, to *Agent) error
}

// RunHooks receives callbacks spanning an entire run, regardless of which
// agent is current.
type RunHooks interface {
	// OnAgentStart is called when any agent starts a turn.
	OnAgentStart(ctx context.Context, agent *Agent) error

	// OnAgentEnd is called when any agent produces a final output.
	OnAgentEnd(ctx context.Context, agent *Agent, output string) error

	// OnHandoff is called when any handoff occurs.
	OnHandoff(ctx context.Context, from, to *Agent) error
}

// BaseHooks is a no-op Hooks implementation meant for embedding. Override
// only the callbacks you need.
type BaseHooks struct{}

var _ Hooks = (*BaseHooks)(nil)

// OnStart implements Hooks.
func (BaseHooks) OnStart(ctx context.Context, agent *Agent) error { return nil }

// OnEnd implements Hooks.
func (BaseHooks) OnEnd(ctx context.Context, agent *Agent, output string) error { return nil }

// OnLLMStart implements Hooks.
func (BaseHooks) OnLLMStart(ctx context.Context, agent *Agent, messages []core.Message) error {
	return nil
}

// OnLLMEnd implements Hooks.
func (BaseHooks) OnLLMEnd(ctx context.Context, agent *Agent, response *model.Response) error {
	return nil
}

// OnToolStart implements Hooks.
func (BaseHooks) OnToolStart(ctx context.Context, agent *Agent, toolName string, args map[string]any) error {
	return nil
}

// OnToolEnd implements Hooks.
func (BaseHooks) OnToolEnd(ctx context.Context, agent *Agent, toolName string, result any) error {
	return nil
}

// OnHandoff implements Hooks.
func (BaseHooks) OnHandoff(ctx context.Context, from, to *Agent) error { return nil }

// BaseRunHooks is a no-op RunHooks implementation meant for embedding.
type BaseRunHooks struct{}

var _ RunHooks = (*BaseRunHooks)(nil)

// OnAgentStart implements RunHooks.
func (BaseRunHooks) OnAgentStart(ctx context.Context, agent *Agent) error { return nil }

// OnAgentEnd implements RunHooks.
func (BaseRunHooks) OnAgentEnd(ctx context.Context, agent *Agent, output string) error { return nil }

// OnHandoff implements RunHooks.
func (BaseRunHooks) OnHandoff(ctx context.Context, from, to *Agent) error { return nil }
