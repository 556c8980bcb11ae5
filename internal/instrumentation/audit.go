package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ActionInvocation captures one add-on action for the audit log.
//
// The user is only ever recorded as a hash; message ids are included
// when AuditLoggingConfig.IncludeMessageIDs is set.
type ActionInvocation struct {
	Action    string
	RequestID string
	UserHash  string
	MessageID string
	HostApp   string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewActionInvocation creates an ActionInvocation with timing started.
// Call Complete when the action finishes.
func NewActionInvocation(action string) *ActionInvocation {
	return &ActionInvocation{
		Action:    action,
		StartTime: time.Now(),
	}
}

// WithRequest sets the request id, the anonymized user and the host app.
func (ai *ActionInvocation) WithRequest(requestID, userHash, hostApp string) *ActionInvocation {
	ai.RequestID = requestID
	ai.UserHash = userHash
	ai.HostApp = hostApp
	return ai
}

// WithMessage sets the Gmail message the action operated on.
func (ai *ActionInvocation) WithMessage(messageID string) *ActionInvocation {
	ai.MessageID = messageID
	return ai
}

// WithSpanContext copies trace and span ids from the current span.
func (ai *ActionInvocation) WithSpanContext(ctx context.Context) *ActionInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ai.TraceID = sc.TraceID().String()
		ai.SpanID = sc.SpanID().String()
	}
	return ai
}

// Complete marks the invocation finished and computes its duration.
func (ai *ActionInvocation) Complete(err error) *ActionInvocation {
	ai.Duration = time.Since(ai.StartTime)
	ai.Success = err == nil
	if err != nil {
		ai.Error = err.Error()
	}
	return ai
}

// Status returns "success" or "error".
func (ai *ActionInvocation) Status() string {
	if ai.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the attributes written to the audit log.
func (ai *ActionInvocation) LogAttrs(includeMessageID bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", ai.Action),
		slog.Duration("duration", ai.Duration),
		slog.Bool("success", ai.Success),
	}
	if ai.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", ai.RequestID))
	}
	if ai.UserHash != "" {
		attrs = append(attrs, slog.String("user_hash", ai.UserHash))
	}
	if ai.HostApp != "" {
		attrs = append(attrs, slog.String("host_app", ai.HostApp))
	}
	if includeMessageID && ai.MessageID != "" {
		attrs = append(attrs, slog.String("message_id", ai.MessageID))
	}
	if ai.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ai.TraceID))
	}
	if ai.Error != "" {
		attrs = append(attrs, slog.String("error", ai.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per add-on action.
type AuditLogger struct {
	logger *slog.Logger
	config AuditLoggingConfig
}

// NewAuditLogger creates an AuditLogger. A nil logger means slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger: logger.With(slog.String("log_type", "audit")),
		config: config,
	}
}

// LogAction writes the invocation. Failures are logged at warn level.
func (al *AuditLogger) LogAction(ai *ActionInvocation) {
	if al == nil || !al.config.Enabled {
		return
	}

	attrs := ai.LogAttrs(al.config.IncludeMessageIDs)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ai.Success {
		al.logger.Info("action_executed", args...)
	} else {
		al.logger.Warn("action_failed", args...)
	}
}
