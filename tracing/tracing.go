package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentloop/logging"
)

const tracerName = "agentloop"

// Options configure the OTLP trace bootstrap.
type Options struct {
	// ServiceName identifies this process in trace backends.
	ServiceName string
	// Endpoint is the host:port of the OTLP/HTTP collector. Empty uses the
	// exporter default.
	Endpoint string
	// URLPath overrides the traces endpoint path.
	URLPath string
	// APIKey is sent as a bearer Authorization header when set.
	APIKey string
	// Insecure disables TLS towards the collector.
	Insecure bool
	// Logger receives internal OTel errors.
	Logger logging.Logger
}

// errorHandler routes internal OTel errors through the configured logger.
type errorHandler struct {
	logger logging.Logger
}

func (h errorHandler) Handle(err error) {
	h.logger.Error("otel error", "error", err)
}

// Init boots an OTLP/HTTP span exporter, installs a global tracer provider
// with batched export and W3C trace context propagation, and returns the
// provider shutdown function. Call the shutdown function before process exit
// to flush pending spans.
func Init(ctx context.Context, optFns ...func(o *Options)) (func(context.Context) error, error) {
	opts := Options{
		ServiceName: "agentloop",
		Insecure:    true,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	otel.SetErrorHandler(errorHandler{logger: opts.Logger})

	var exporterOpts []otlptracehttp.Option
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	if opts.Endpoint != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(opts.Endpoint))
	}
	if opts.URLPath != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithURLPath(opts.URLPath))
	}
	if opts.APIKey != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + opts.APIKey,
		}))
	}

	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns the library tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// NewHTTPClient returns an http.Client that records a client span and
// propagates trace context on every outbound request. Pass it to provider
// SDK constructors so backend calls join the run trace.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
