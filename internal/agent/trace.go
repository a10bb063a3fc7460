package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an otel trace.Tracer with the turn-engine/tool-processor
// span shapes this core needs. Grounded on the teacher's
// observability.Tracer, narrowed to a no-exporter-setup wrapper: a library
// has no service lifecycle to own a TracerProvider's shutdown, so this
// just resolves spans against whatever global provider the embedding
// application installed (a no-op provider if none was).
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer builds a Tracer under the given instrumentation name.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartTurn opens a span for one RunTurn call.
func (t *Tracer) StartTurn(ctx context.Context, turnIndex int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "agent.turn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("turn.index", turnIndex)),
	)
}

// StartLLMRequest opens a span for one provider Chat/ChatWithTools call.
func (t *Tracer) StartLLMRequest(ctx context.Context, provider, variant string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "agent.llm_request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.variant", variant),
		),
	)
}

// StartToolExecution opens a span for one tool dispatch.
func (t *Tracer) StartToolExecution(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "agent.tool_execution",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("tool.name", toolName)),
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

var globalTracer = NewTracer("github.com/haasonsaas/nexus/internal/agent")

// GlobalTracer returns the process-wide agent Tracer. Unlike Metrics this
// needs no once-guard: otel.Tracer(name) is itself idempotent and safe to
// call repeatedly, but a single shared instance avoids re-resolving it on
// every TurnEngine/ToolProcessor construction.
func GlobalTracer() *Tracer {
	return globalTracer
}
