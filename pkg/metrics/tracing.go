package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is the tracer name used when none is given.
const DefaultTracerName = "faceflap"

// Tracer creates spans for frame round-trips and outbound commands using the
// global OpenTelemetry tracer provider. The host application installs the
// provider (faceflap play does so with --trace-file); without one, spans are
// no-ops.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer resolves a tracer from the global provider.
func NewTracer(name string) *Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	return &Tracer{tracer: otel.Tracer(name)}
}

// FrameSpan tracks one frame from send to acknowledgment.
type FrameSpan struct {
	span trace.Span
}

// StartFrame opens a span for frame seq of n bytes.
func (t *Tracer) StartFrame(ctx context.Context, seq uint64, n int) *FrameSpan {
	if t == nil {
		return nil
	}
	_, span := t.tracer.Start(ctx, "faceflap.video_frame",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(time.Now()),
		trace.WithAttributes(
			attribute.Int64("faceflap.frame_seq", int64(seq)),
			attribute.Int("faceflap.frame_bytes", n),
		),
	)
	return &FrameSpan{span: span}
}

// Acked ends the span with the acknowledgment kind. An "error" ack marks the
// span failed with msg.
func (f *FrameSpan) Acked(kind, msg string) {
	if f == nil {
		return
	}
	f.span.SetAttributes(attribute.String("faceflap.ack", kind))
	if kind == "error" {
		f.span.SetStatus(codes.Error, msg)
	} else {
		f.span.SetStatus(codes.Ok, "")
	}
	f.span.End()
}

// Aborted ends the span for a frame that will never be acknowledged.
func (f *FrameSpan) Aborted(reason string) {
	if f == nil {
		return
	}
	f.span.SetAttributes(attribute.String("faceflap.abort_reason", reason))
	f.span.SetStatus(codes.Error, "aborted")
	f.span.End()
}

// Command records a zero-length span for an outbound control command.
func (t *Tracer) Command(ctx context.Context, msgType string, delivered bool) {
	if t == nil {
		return
	}
	_, span := t.tracer.Start(ctx, "faceflap."+msgType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.Bool("faceflap.delivered", delivered)),
	)
	if !delivered {
		span.SetStatus(codes.Error, "not connected")
	}
	span.End()
}
