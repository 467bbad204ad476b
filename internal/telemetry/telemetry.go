// Package telemetry builds the tracer provider the cache reports into.
package telemetry

import (
	"context"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	rf "github.com/GL1KK/redisfirstapp"
)

const exportTimeout = 10 * time.Second

type Config struct {
	// Endpoint is the OTLP/HTTP collector base URL, e.g. http://localhost:4318.
	// The /v1/traces path is appended.
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	// Processors are attached in addition to the exporter.
	Processors []sdktrace.SpanProcessor
}

// Enabled reports whether New will return an SDK provider.
func (c Config) Enabled() bool { return c.Endpoint != "" || len(c.Processors) > 0 }

type ShutdownFunc func(context.Context) error

// New returns a noop provider when neither an endpoint nor a processor is set.
// Otherwise spans are batched to the collector and the returned ShutdownFunc
// flushes them.
func New(ctx context.Context, cfg Config, log rf.Logger) (trace.TracerProvider, ShutdownFunc, error) {
	if !cfg.Enabled() {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}
	if log == nil {
		log = rf.NopLogger{}
	}

	res, err := resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		log.Warn("partial telemetry resource", rf.Fields{"err": err})
	} else if err != nil {
		return nil, nil, errors.Wrap(err, "telemetry: resource")
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Endpoint != "" {
		exp, err := newExporter(ctx, cfg.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	for _, sp := range cfg.Processors {
		opts = append(opts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	log.Info("tracing enabled", rf.Fields{"endpoint": cfg.Endpoint})
	return tp, tp.Shutdown, nil
}

func newExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "telemetry: parse endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("telemetry: endpoint %q must be http or https", endpoint)
	}
	u.Path = "/v1/traces"

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(u.String()),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if u.Scheme == "http" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "telemetry: trace exporter")
	}
	return exp, nil
}
