package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentloop/tool"
)

// tracedTool decorates a tool with an execution span per call.
type tracedTool struct {
	tool.Tool
}

// WrapTool returns a tool that records a span around every Call, propagating
// the span context into the wrapped implementation. Unlike Hooks, which
// observe dispatch from the outside, the wrapper runs inside the call and so
// captures the tool's own downstream requests as child spans.
func WrapTool(t tool.Tool) tool.Tool {
	return &tracedTool{Tool: t}
}

func (t *tracedTool) Call(ctx context.Context, args map[string]any) (any, error) {
	ctx, span := Tracer().Start(ctx, "tool.call "+t.Name(),
		trace.WithAttributes(
			attribute.String("gen_ai.tool.name", t.Name()),
			attribute.Int("gen_ai.tool.argument_count", len(args)),
		),
	)
	defer span.End()

	result, err := t.Tool.Call(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	if s, ok := result.(string); ok {
		span.SetAttributes(attribute.Int("gen_ai.tool.output_length", len(s)))
	}

	return result, nil
}
