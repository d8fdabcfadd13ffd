package tracing

import (
	"context"
	"testing"
)

func TestStartSpanStoresInContext(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "root", "trace-1")
	if SpanFromContext(ctx) != span {
		t.Fatalf("expected the context to carry the new span")
	}
	if span.TraceID != "trace-1" {
		t.Fatalf("expected TraceID trace-1, got %q", span.TraceID)
	}
}

func TestStartChildSpanLinksToParent(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "root", "trace-1")
	_, child := StartChildSpan(ctx, "child")
	if child.TraceID != root.TraceID {
		t.Fatalf("expected the child to inherit the parent's trace id")
	}
	if len(root.Children) != 1 || root.Children[0] != child {
		t.Fatalf("expected the parent to record the child span")
	}
}

func TestStartChildSpanWithoutParent(t *testing.T) {
	_, child := StartChildSpan(context.Background(), "orphan")
	if child.TraceID != "" {
		t.Fatalf("expected an orphan span to have no trace id, got %q", child.TraceID)
	}
}

func TestSpanFromContextNilWhenAbsent(t *testing.T) {
	if SpanFromContext(context.Background()) != nil {
		t.Fatalf("expected no span in a bare context")
	}
}

func TestEndRecordsDuration(t *testing.T) {
	_, span := StartSpan(context.Background(), "root", "trace-1")
	span.End()
	if span.EndTime.Before(span.StartTime) {
		t.Fatalf("expected EndTime to be at or after StartTime")
	}
	if span.Duration < 0 {
		t.Fatalf("expected a non-negative duration, got %v", span.Duration)
	}
}

func TestSetAttrStoresValue(t *testing.T) {
	_, span := StartSpan(context.Background(), "root", "trace-1")
	span.SetAttr("results", 5)
	if span.Attrs["results"] != 5 {
		t.Fatalf("expected SetAttr to store the value, got %v", span.Attrs["results"])
	}
}
