package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook stamps trace and span IDs onto every log entry that carries a
// context with an active span.
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL trace correlation.
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a service-scoped logger.
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger bound to ctx for trace propagation.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// LogCycleError logs a cycle-level failure with its namespace.
func (l *Logger) LogCycleError(ctx context.Context, namespace, phase string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("namespace", namespace).
		Str("phase", phase).
		Msg("cycle operation failed")
}

// LogCandidateSkipped logs an isolated per-candidate failure.
func (l *Logger) LogCandidateSkipped(ctx context.Context, namespace, resourceID string, err error) {
	l.WithContext(ctx).Warn().
		Err(err).
		Str("namespace", namespace).
		Str("resource_id", resourceID).
		Msg("candidate skipped after failure")
}
