package agent

import (
	"github.com/hupe1980/agentloop/guardrail"
	"github.com/hupe1980/agentloop/internal/util"
	"github.com/hupe1980/agentloop/tool"
)

// DefaultModel is used when no model id is configured.
const DefaultModel = "gpt-4o"

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	Instructions         string
	Model                string
	Tools                []tool.Tool
	Handoffs             []*Handoff
	Hooks                []Hooks
	InputGuardrails      []guardrail.Input
	OutputGuardrails     []guardrail.Output
	ToolInputGuardrails  []guardrail.ToolInput
	ToolOutputGuardrails []guardrail.ToolOutput
	OutputSchema         map[string]any
	OutputName           string
	ParallelToolCalls    bool
}

// OutputType sets OutputSchema and OutputName from a struct type. The schema
// is derived from json and jsonschema_description tags, with additional
// properties disallowed so strict mode can be requested downstream.
func OutputType[T any](name string) func(o *Options) {
	return func(o *Options) {
		o.OutputSchema = util.GenerateSchema[T]()
		o.OutputName = name
	}
}

// Agent is a named profile the runner executes: instructions, model id and
// the ordered capability lists the model may call. The zero value is not
// usable; construct with New.
type Agent struct {
	name                 string
	instructions         string
	model                string
	tools                []tool.Tool
	handoffs             []*Handoff
	hooks                []Hooks
	inputGuardrails      []guardrail.Input
	outputGuardrails     []guardrail.Output
	toolInputGuardrails  []guardrail.ToolInput
	toolOutputGuardrails []guardrail.ToolOutput
	outputSchema         map[string]any
	outputName           string
	parallelToolCalls    bool
}

// New creates an agent with sensible defaults.
//
// The agent is initialized with:
//   - DefaultModel as the model id
//   - Parallel tool calls enabled
//   - No tools, handoffs, guardrails or hooks
//
// Example:
//
//	triage := agent.New("Triage", func(o *agent.Options) {
//	  o.Instructions = "Route the user to the right specialist."
//	  o.Handoffs = []*agent.Handoff{agent.NewHandoff(billing)}
//	})
func New(name string, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Model:             DefaultModel,
		ParallelToolCalls: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{
		name:                 name,
		instructions:         opts.Instructions,
		model:                opts.Model,
		tools:                opts.Tools,
		handoffs:             opts.Handoffs,
		hooks:                opts.Hooks,
		inputGuardrails:      opts.InputGuardrails,
		outputGuardrails:     opts.OutputGuardrails,
		toolInputGuardrails:  opts.ToolInputGuardrails,
		toolOutputGuardrails: opts.ToolOutputGuardrails,
		outputSchema:         opts.OutputSchema,
		outputName:           opts.OutputName,
		parallelToolCalls:    opts.ParallelToolCalls,
	}
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Instructions returns the system prompt for this agent. May be empty.
func (a *Agent) Instructions() string { return a.instructions }

// Model returns the model id used for completion requests.
func (a *Agent) Model() string { return a.model }

// Tools returns the ordered list of tools available to the agent.
func (a *Agent) Tools() []tool.Tool {
	out := make([]tool.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// Handoffs returns the ordered list of handoff targets.
func (a *Agent) Handoffs() []*Handoff {
	out := make([]*Handoff, len(a.handoffs))
	copy(out, a.handoffs)
	return out
}

// Hooks returns the ordered list of agent-level lifecycle hooks.
func (a *Agent) Hooks() []Hooks { return a.hooks }

// InputGuardrails returns the guardrails applied to user input.
func (a *Agent) InputGuardrails() []guardrail.Input { return a.inputGuardrails }

// OutputGuardrails returns the guardrails applied to final output.
func (a *Agent) OutputGuardrails() []guardrail.Output { return a.outputGuardrails }

// ToolInputGuardrails returns the guardrails applied to tool arguments.
func (a *Agent) ToolInputGuardrails() []guardrail.ToolInput { return a.toolInputGuardrails }

// ToolOutputGuardrails returns the guardrails applied to tool results.
func (a *Agent) ToolOutputGuardrails() []guardrail.ToolOutput { return a.toolOutputGuardrails }

// OutputSchema returns the JSON schema for structured output, or nil when the
// agent produces free text.
func (a *Agent) OutputSchema() map[string]any { return a.outputSchema }

// OutputName returns the schema name sent with structured output requests.
// Empty means the runner substitutes a generic name.
func (a *Agent) OutputName() string { return a.outputName }

// ParallelToolCalls reports whether the backend may emit multiple tool calls
// in a single response.
func (a *Agent) ParallelToolCalls() bool { return a.parallelToolCalls }
