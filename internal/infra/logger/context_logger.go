package logger

import (
	"context"
	"log/slog"
	"os"
)

type ContextKey string

const (
	// Business context keys, following OpenTelemetry semantic conventions
	// with a 'catalogue.' prefix.
	JobIDKey     ContextKey = "catalogue.job.id"
	DatasetIDKey ContextKey = "catalogue.dataset.id"
	SourceKey    ContextKey = "catalogue.source"
)

// ContextLogger provides context-aware logging with business context fields.
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

// NewContextLogger creates a context-aware logger around base. A nil base
// falls back to a plain JSON logger honoring LOG_LEVEL.
func NewContextLogger(base *slog.Logger, serviceName string) *ContextLogger {
	if base == nil {
		opts := &slog.HandlerOptions{
			Level: parseLevel(os.Getenv("LOG_LEVEL")),
		}
		base = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	return &ContextLogger{
		logger:      base,
		serviceName: serviceName,
	}
}

// WithContext returns a logger with context values extracted and added as fields
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any

	if jobID := ctx.Value(JobIDKey); jobID != nil {
		fields = append(fields, string(JobIDKey), jobID)
	}
	if datasetID := ctx.Value(DatasetIDKey); datasetID != nil {
		fields = append(fields, string(DatasetIDKey), datasetID)
	}
	if source := ctx.Value(SourceKey); source != nil {
		fields = append(fields, string(SourceKey), source)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}

	return logger
}

// WithJobID adds the harvest job id to the context for observability
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithDatasetID adds the dataset id to the context for observability
func WithDatasetID(ctx context.Context, datasetID string) context.Context {
	return context.WithValue(ctx, DatasetIDKey, datasetID)
}

// WithSource adds the source catalogue tag to the context for observability
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}
