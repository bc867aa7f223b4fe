package log

import (
	"context"
	"log/slog"
	"net/http"
)

type loggerKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger, or the default one.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return Default(ComponentApp)
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd logs the completion of an HTTP request at a level matching its status
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogCheckIssued logs a successful issuance
func (sl *StructuredLogger) LogCheckIssued(ctx context.Context, reference string, checkbookID, bankID, userID, amountCents int64) {
	fields := NewFields().
		WithCheck(reference, checkbookID, bankID, userID).
		WithOperation(OpIssue).
		ToSlice()
	fields = append(fields, FieldAmountCents, amountCents)

	sl.logger.InfoContext(ctx, "Check issued", fields...)
}

// LogIssuanceRejected logs an issuance refused by validation, uniqueness or exhaustion
func (sl *StructuredLogger) LogIssuanceRejected(ctx context.Context, reference string, checkbookID int64, errorType string, err error) {
	fields := NewFields().
		WithOperation(OpIssue).
		WithError(err).
		ToSlice()
	fields = append(fields, FieldReference, reference, FieldCheckbookID, checkbookID, FieldReason, errorType)

	sl.logger.WarnContext(ctx, "Check issuance rejected", fields...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}
