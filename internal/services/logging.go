package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the HTTP request id so service logs can carry it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, component string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("component", component),
	}
}

// ===== OPERATION LOGGING =====

// LogOperation logs the outcome of one service call. Expected domain failures
// are logged below error level.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation, callerID string, resourceID uint, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		switch {
		case IsValidation(err) || IsBusinessRule(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsForbidden(err):
			level = slog.LevelWarn
			status = "forbidden"
		case IsNotFound(err):
			status = "not_found"
		case IsConflict(err):
			level = slog.LevelWarn
			status = "conflict"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("caller_id", callerID),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErr ValidationErrors
		var businessErr *BusinessRuleError
		if errors.As(err, &validationErr) {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		} else if errors.As(err, &businessErr) {
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		}
	}

	if id := requestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

// ===== AUDIT LOGGING =====

type AuditEventType string

const (
	AuditExamPublished   AuditEventType = "exam_published"
	AuditExamDeleted     AuditEventType = "exam_deleted"
	AuditAttemptFinished AuditEventType = "attempt_finished"
	AuditQuestionsImport AuditEventType = "questions_imported"
)

func (l *ServiceLogger) LogAudit(ctx context.Context, eventType AuditEventType, callerID string, resourceID uint, metadata map[string]interface{}) {
	attrs := []slog.Attr{
		slog.String("event_type", string(eventType)),
		slog.String("caller_id", callerID),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.Time("timestamp", time.Now()),
	}
	for key, value := range metadata {
		attrs = append(attrs, slog.Any("meta_"+key, value))
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "Audit event", attrs...)
}

// ===== CONTEXTUAL LOGGER =====

// ContextualLogger times a single operation and logs it once on LogResult.
type ContextualLogger struct {
	*ServiceLogger
	ctx       context.Context
	operation string
	callerID  string
	start     time.Time
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, callerID string) *ContextualLogger {
	return &ContextualLogger{
		ServiceLogger: l,
		ctx:           ctx,
		operation:     operation,
		callerID:      callerID,
		start:         time.Now(),
	}
}

func (cl *ContextualLogger) LogResult(resourceID uint, resourceType string, err error) {
	cl.LogOperation(cl.ctx, cl.operation, cl.callerID, resourceID, resourceType, time.Since(cl.start), err)
}

func (cl *ContextualLogger) Logger() *slog.Logger {
	return cl.logger
}
