package runtime

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an otel trace.Tracer with the reactor's own span shape: one
// span per routed event, covering route-decision plus dispatch hand-off
// (not the dispatched task itself, which runs on the agent's own mailbox
// goroutine after this span has already ended). Grounded on the same
// simplified wrapper the agent package's Tracer uses.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer builds a Tracer under the given instrumentation name.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartRoute opens a span for one processAgentEvent call.
func (t *Tracer) StartRoute(ctx context.Context, kind string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "runtime.route",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("event.kind", kind)),
	)
}

// RecordError marks span as failed with err, a no-op if err is nil.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

var globalTracer = NewTracer("github.com/haasonsaas/nexus/internal/runtime")

// GlobalTracer returns the process-wide runtime Tracer. No once-guard
// needed: otel.Tracer(name) is itself idempotent and safe to call
// repeatedly.
func GlobalTracer() *Tracer {
	return globalTracer
}
