package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the Voxgate tracer.
const tracerName = "github.com/voxhaven/voxgate"

// Span attribute keys for voice sessions.
const (
	AttrSessionID = attribute.Key("voxgate.session.id")
	AttrUserID    = attribute.Key("voxgate.user.id")
)

// Tracer returns the package-level [trace.Tracer] for Voxgate. It uses the
// globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SessionSpan starts the root span covering one voice connection, tagged with
// the session and user identity so the stage spans below it correlate.
func SessionSpan(ctx context.Context, sessionID, userID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "voice.session",
		trace.WithAttributes(
			AttrSessionID.String(sessionID),
			AttrUserID.String(userID),
		),
	)
}

// StageSpan starts a child span for one pipeline stage of a session, e.g.
// "transcribe" or "synthesize". The span name is prefixed with "voice.".
func StageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return StartSpan(ctx, "voice."+stage)
}

// CorrelationID extracts the trace ID from the OTel span context in ctx.
// Returns the empty string when no active span with a valid trace ID exists.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns an [slog.Logger] enriched with trace_id and span_id from
// the OTel span context in ctx. When no active span is present, the returned
// logger is the default slog logger without extra attributes.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
