// Package tracing instruments runs with OpenTelemetry: lifecycle hooks that
// map runs, model calls and tool executions onto spans, a tool wrapper that
// records execution spans with context propagation, and an OTLP/HTTP
// bootstrap that installs a global tracer provider.
package tracing
