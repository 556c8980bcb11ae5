package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrValue(attrs []attribute.KeyValue, key string) string {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.Emit()
		}
	}
	return ""
}

func TestStartActionSpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartActionSpan(context.Background(), "generateReply", attribute.String(SpanAttrScreen, "reply"))
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace id inside the action span")
	}
	EndSpan(span, nil)

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "addon.generateReply" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", s.SpanKind())
	}
	if got := attrValue(s.Attributes(), SpanAttrAction); got != "generateReply" {
		t.Errorf("%s = %q", SpanAttrAction, got)
	}
	if got := attrValue(s.Attributes(), SpanAttrScreen); got != "reply" {
		t.Errorf("%s = %q", SpanAttrScreen, got)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestStartLLMSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartLLMSpan(context.Background(), "vertex", "gemini-2.5-flash", "summarize")
	EndSpan(span, errors.New("quota exceeded"))

	s := recorder.Ended()[0]
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", s.SpanKind())
	}
	if got := attrValue(s.Attributes(), SpanAttrModel); got != "gemini-2.5-flash" {
		t.Errorf("%s = %q", SpanAttrModel, got)
	}
	if s.Status().Code != codes.Error || s.Status().Description != "quota exceeded" {
		t.Errorf("status = %+v", s.Status())
	}
	if len(s.Events()) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceGmail, OperationCreateDraft)
	span.End()

	s := recorder.Ended()[0]
	if s.Name() != "google.gmail.create_draft" {
		t.Errorf("span name = %q", s.Name())
	}
	if got := attrValue(s.Attributes(), SpanAttrService); got != ServiceGmail {
		t.Errorf("%s = %q", SpanAttrService, got)
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, nil)
	span.End()

	if code := recorder.Ended()[0].Status().Code; code != codes.Unset {
		t.Errorf("status = %v, want Unset", code)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
