package tracing

import (
	"context"
	"fmt"

	"github.com/go-logr/stdr"
	"github.com/ibooker/imgloader/internal/logger"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerIdentifier = "github.com/ibooker/imgloader/internal/tracing"

// Tracer starts spans for image loads
type Tracer struct {
	ServiceName string
	Log         *logger.Logger

	trace.TracerProvider

	ShutdownFunc   func(context.Context) error
	TracerInstance trace.Tracer
}

// New creates a tracer exporting spans over OTLP/gRPC
func New(ctx context.Context, log *logger.Logger, serviceName string) (*Tracer, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create opentelemetry grpc exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName))),
	)

	// Override the global otel logging
	otel.SetLogger(stdr.New(zap.NewStdLog(log.Desugar())))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Error(err)
	}))

	return &Tracer{
		serviceName,
		log,
		tp,
		tp.Shutdown,
		tp.Tracer(tracerIdentifier),
	}, nil
}

// Noop returns a tracer that records nothing
func Noop(log *logger.Logger) *Tracer {
	tp := trace.NewNoopTracerProvider()
	return &Tracer{
		ServiceName:    "noop",
		Log:            log,
		TracerProvider: tp,
		ShutdownFunc: func(context.Context) error {
			return nil
		},
		TracerInstance: tp.Tracer(tracerIdentifier),
	}
}

func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.TracerInstance.Start(ctx, spanName, opts...)
}

// StartStage starts a span for one stage of the fetch/decode pipeline
func (t *Tracer) StartStage(ctx context.Context, stage, url string) (context.Context, trace.Span) {
	return t.TracerInstance.Start(ctx, "pipeline."+stage, trace.WithAttributes(attribute.String("image.url", url)))
}

// EndStage records err on span, if any, and ends it
func EndStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Tracer) Shutdown(ctx context.Context) {
	if err := t.ShutdownFunc(ctx); err != nil {
		t.Log.Errorf("failed to shutdown tracer: %s", err)
	}
}

func TraceInfo(ctx context.Context) (string, string) {
	traceID := trace.SpanContextFromContext(ctx).TraceID().String()
	spanID := trace.SpanContextFromContext(ctx).SpanID().String()
	return traceID, spanID
}
