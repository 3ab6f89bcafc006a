package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

const (
	kindRun   = "run"
	kindAgent = "agent"
	kindLLM   = "llm"
	kindTool  = "tool"
)

// HooksOptions configure the tracing hooks.
type HooksOptions struct {
	// TracerProvider supplies the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Hooks maps lifecycle callbacks onto spans: one umbrella span per run, one
// span per active agent, one per model call and one per tool call. The hook
// callbacks cannot thread a context through to their end counterparts, so
// open spans are tracked internally.
//
// Use one Hooks value per run when runs of the same agent execute
// concurrently; sharing one across such runs interleaves their spans. A run
// that aborts between paired callbacks leaves its open spans unexported.
type Hooks struct {
	tracer trace.Tracer

	mu     sync.Mutex
	active map[spanKey]trace.Span
}

type spanKey struct {
	agent *agent.Agent
	kind  string
	name  string
}

var (
	_ agent.Hooks    = (*Hooks)(nil)
	_ agent.RunHooks = (*Hooks)(nil)
)

// NewHooks constructs tracing hooks. Register the value both as a run-level
// hook and on the agents whose turns should be traced.
func NewHooks(optFns ...func(o *HooksOptions)) *Hooks {
	opts := HooksOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Hooks{
		tracer: tp.Tracer(tracerName),
		active: make(map[spanKey]trace.Span),
	}
}

// OnAgentStart opens the run umbrella span on the first turn; later turns
// are recorded as events on it.
func (h *Hooks) OnAgentStart(ctx context.Context, a *agent.Agent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := spanKey{kind: kindRun}
	if span, ok := h.active[key]; ok {
		span.AddEvent("agent_start", trace.WithAttributes(
			attribute.String("gen_ai.agent.name", a.Name()),
		))
		return nil
	}

	_, span := h.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("gen_ai.agent.name", a.Name()),
	))
	h.active[key] = span

	return nil
}

// OnAgentEnd closes the run umbrella span.
func (h *Hooks) OnAgentEnd(_ context.Context, _ *agent.Agent, output string) error {
	if span, ok := h.pop(spanKey{kind: kindRun}); ok {
		span.SetAttributes(attribute.Int("gen_ai.response.output_length", len(output)))
		span.End()
	}
	return nil
}

// OnStart opens the span for an agent's active stretch. Subsequent turns of
// the same agent are events on the open span.
func (h *Hooks) OnStart(ctx context.Context, a *agent.Agent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := spanKey{agent: a, kind: kindAgent}
	if span, ok := h.active[key]; ok {
		span.AddEvent("turn")
		return nil
	}

	_, span := h.tracer.Start(ctx, "agent.run "+a.Name(), trace.WithAttributes(
		attribute.String("gen_ai.agent.name", a.Name()),
		attribute.String("gen_ai.request.model", a.Model()),
	))
	h.active[key] = span

	return nil
}

// OnEnd closes the agent span, together with a model-call span left open by
// a streaming run.
func (h *Hooks) OnEnd(_ context.Context, a *agent.Agent, output string) error {
	h.closeLLM(a, nil)

	if span, ok := h.pop(spanKey{agent: a, kind: kindAgent}); ok {
		span.SetAttributes(attribute.Int("gen_ai.response.output_length", len(output)))
		span.End()
	}
	return nil
}

// OnLLMStart opens a span per model call. Streaming runs deliver no end
// callback, so a still-open span from the previous turn is closed first.
func (h *Hooks) OnLLMStart(ctx context.Context, a *agent.Agent, messages []core.Message) error {
	h.closeLLM(a, nil)

	h.mu.Lock()
	defer h.mu.Unlock()

	_, span := h.tracer.Start(ctx, "llm.call "+a.Model(), trace.WithAttributes(
		attribute.String("gen_ai.request.model", a.Model()),
		attribute.Int("gen_ai.request.message_count", len(messages)),
	))
	h.active[spanKey{agent: a, kind: kindLLM}] = span

	return nil
}

// OnLLMEnd closes the model-call span and records response metadata.
func (h *Hooks) OnLLMEnd(_ context.Context, a *agent.Agent, response *model.Response) error {
	h.closeLLM(a, response)
	return nil
}

// OnToolStart opens a span per tool call. Dispatch is sequential, so at most
// one tool span per agent is open at a time.
func (h *Hooks) OnToolStart(ctx context.Context, a *agent.Agent, toolName string, args map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, span := h.tracer.Start(ctx, "tool.call "+toolName, trace.WithAttributes(
		attribute.String("gen_ai.tool.name", toolName),
		attribute.Int("gen_ai.tool.argument_count", len(args)),
	))
	h.active[spanKey{agent: a, kind: kindTool, name: toolName}] = span

	return nil
}

// OnToolEnd closes the tool-call span.
func (h *Hooks) OnToolEnd(_ context.Context, a *agent.Agent, toolName string, _ any) error {
	if span, ok := h.pop(spanKey{agent: a, kind: kindTool, name: toolName}); ok {
		span.End()
	}
	return nil
}

// OnHandoff closes the outgoing agent's spans and records the transfer on
// the run span. The same method serves the run-level and agent-level hook
// families.
func (h *Hooks) OnHandoff(_ context.Context, from, to *agent.Agent) error {
	h.closeLLM(from, nil)

	if span, ok := h.pop(spanKey{agent: from, kind: kindAgent}); ok {
		span.End()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if span, ok := h.active[spanKey{kind: kindRun}]; ok {
		span.AddEvent("handoff", trace.WithAttributes(
			attribute.String("gen_ai.handoff.from", from.Name()),
			attribute.String("gen_ai.handoff.to", to.Name()),
		))
	}

	return nil
}

func (h *Hooks) closeLLM(a *agent.Agent, response *model.Response) {
	span, ok := h.pop(spanKey{agent: a, kind: kindLLM})
	if !ok {
		return
	}

	if response != nil {
		if response.FinishReason != "" {
			span.SetAttributes(attribute.String("gen_ai.response.finish_reason", response.FinishReason))
		}
		if response.Usage != nil {
			span.SetAttributes(
				attribute.Int("gen_ai.usage.input_tokens", response.Usage.PromptTokens),
				attribute.Int("gen_ai.usage.output_tokens", response.Usage.CompletionTokens),
			)
		}
	}

	span.End()
}

func (h *Hooks) pop(key spanKey) (trace.Span, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	span, ok := h.active[key]
	if ok {
		delete(h.active, key)
	}
	return span, ok
}
