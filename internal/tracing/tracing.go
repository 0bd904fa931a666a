// Package tracing wraps OpenTelemetry so the batch runner can record one span
// per run and per work item without depending on the SDK directly.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"grantcloser/internal/config"
)

const instrumentationName = "grantcloser"

// Provider owns the tracer and whatever the exporter writes to.
type Provider struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	output   io.Closer
}

// Disabled returns a provider whose spans are no-ops.
func Disabled() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// NewFromConfig installs a stdout exporter when tracing is enabled. An empty
// output writes spans to stdout; otherwise they are appended to the file.
func NewFromConfig(cfg *config.Config, version string) (*Provider, error) {
	if cfg == nil || !cfg.Tracing.Enabled {
		return Disabled(), nil
	}
	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if output := cfg.Tracing.Output; output != "" && output != "stdout" {
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace output: %w", err)
		}
		w, closer = f, f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	p, err := NewWithExporter(exporter, version)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	p.output = closer
	return p, nil
}

// NewWithExporter builds a provider around any span exporter and registers it
// as the global tracer provider.
func NewWithExporter(exporter sdktrace.SpanExporter, version string) (*Provider, error) {
	if exporter == nil {
		return Disabled(), nil
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", instrumentationName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tracer: tp.Tracer(instrumentationName), provider: tp}, nil
}

// Shutdown flushes pending spans and closes the output file.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var err error
	if p.provider != nil {
		err = p.provider.Shutdown(ctx)
	}
	if p.output != nil {
		if closeErr := p.output.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// Span is a started span.
type Span struct {
	span trace.Span
}

// Start begins a span named name carrying the given string attributes.
func (p *Provider) Start(ctx context.Context, name string, attrs map[string]string) (context.Context, *Span) {
	tracer := noop.NewTracerProvider().Tracer(instrumentationName)
	if p != nil && p.tracer != nil {
		tracer = p.tracer
	}
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, v))
	}
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(kv...))
	return ctx, &Span{span: span}
}

// SetAttribute adds one attribute.
func (s *Span) SetAttribute(key, value string) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.String(key, value))
}

// End records err (or OK) and finishes the span.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
