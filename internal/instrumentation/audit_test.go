package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testAction    = "generateReply"
	testRequestID = "req-123"
	testUserHash  = "user:0123456789abcdef"
	testMessageID = "18c2f0a1b2c3d4e5"
)

func TestActionInvocation_Complete(t *testing.T) {
	ai := NewActionInvocation(testAction)
	if ai.Action != testAction {
		t.Errorf("Action = %q, want %q", ai.Action, testAction)
	}
	if ai.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ai.Complete(nil)
	if !ai.Success {
		t.Error("Success should be true")
	}
	if ai.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ai.Status(), StatusSuccess)
	}
	if ai.Duration < 0 {
		t.Error("Duration should not be negative")
	}
}

func TestActionInvocation_CompleteWithError(t *testing.T) {
	ai := NewActionInvocation(testAction).Complete(errors.New("quota exceeded"))

	if ai.Success {
		t.Error("Success should be false")
	}
	if ai.Error != "quota exceeded" {
		t.Errorf("Error = %q, want %q", ai.Error, "quota exceeded")
	}
	if ai.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ai.Status(), StatusError)
	}
}

func TestActionInvocation_LogAttrs(t *testing.T) {
	ai := NewActionInvocation(testAction).
		WithRequest(testRequestID, testUserHash, "GMAIL").
		WithMessage(testMessageID).
		Complete(nil)

	tests := []struct {
		name             string
		includeMessageID bool
		wantMessageID    bool
	}{
		{"message id hidden", false, false},
		{"message id included", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := make(map[string]string)
			for _, a := range ai.LogAttrs(tt.includeMessageID) {
				keys[a.Key] = a.Value.String()
			}
			if keys["action"] != testAction {
				t.Errorf("action = %q, want %q", keys["action"], testAction)
			}
			if keys["request_id"] != testRequestID {
				t.Errorf("request_id = %q, want %q", keys["request_id"], testRequestID)
			}
			if keys["host_app"] != "GMAIL" {
				t.Errorf("host_app = %q, want GMAIL", keys["host_app"])
			}
			_, has := keys["message_id"]
			if has != tt.wantMessageID {
				t.Errorf("message_id present = %v, want %v", has, tt.wantMessageID)
			}
		})
	}
}

func TestActionInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ai := NewActionInvocation(testAction).WithSpanContext(context.Background())
	if ai.TraceID != "" || ai.SpanID != "" {
		t.Errorf("expected empty trace ids without a span, got %q/%q", ai.TraceID, ai.SpanID)
	}
}

func TestAuditLogger_LogAction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	al := NewAuditLogger(logger, AuditLoggingConfig{Enabled: true})

	al.LogAction(NewActionInvocation(testAction).Complete(nil))
	al.LogAction(NewActionInvocation("createCalendarEvent").Complete(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["msg"] != "action_executed" || first["level"] != "INFO" {
		t.Errorf("unexpected first record: %v", first)
	}
	if second["msg"] != "action_failed" || second["level"] != "WARN" {
		t.Errorf("unexpected second record: %v", second)
	}
	if first["log_type"] != "audit" {
		t.Errorf("log_type = %v, want audit", first["log_type"])
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	al.LogAction(NewActionInvocation(testAction).Complete(nil))
	if buf.Len() != 0 {
		t.Errorf("expected no output when disabled, got %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogAction(NewActionInvocation(testAction)) // must not panic
}
