package xray

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContextSegment(t *testing.T) {
	if ContextSegment(context.Background()) != nil {
		t.Error("want nil")
	}
	//nolint:staticcheck // nil context is allowed
	if ContextSegment(nil) != nil {
		t.Error("want nil")
	}

	ctx, td := NewTestDaemon()
	defer td.Close()

	ctx, seg := BeginSegment(ctx, "root")
	defer seg.Close()
	if ContextSegment(ctx) != seg {
		t.Error("the segment should be active")
	}
	if ContextTraceID(ctx) != seg.TraceID() {
		t.Errorf("want %q, got %q", seg.TraceID(), ContextTraceID(ctx))
	}

	ctx = WithoutSegment(ctx)
	if ContextSegment(ctx) != nil {
		t.Error("want nil")
	}
	if ContextTraceID(ctx) != "" {
		t.Error("want empty")
	}
	if ContextClient(ctx) != td.client {
		t.Error("WithoutSegment should keep the client")
	}

	ctx = WithSegment(ctx, seg)
	if ContextSegment(ctx) != seg {
		t.Error("the segment should be active")
	}
}

func TestContextClient(t *testing.T) {
	if ContextClient(context.Background()) != getDefaultClient() {
		t.Error("want the default client")
	}

	client := New(&Config{})
	defer client.Close()
	ctx := WithClient(context.Background(), client)
	if ContextClient(ctx) != client {
		t.Error("unexpected client")
	}
}

func TestDownstreamHeader(t *testing.T) {
	if diff := cmp.Diff(TraceHeader{}, DownstreamHeader(context.Background())); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	ctx, td := NewTestDaemon()
	defer td.Close()

	ctx, root := BeginSegment(ctx, "root")
	defer root.Close()
	ctx, seg := BeginSubsegment(ctx, "subsegment")
	defer seg.Close()

	got := DownstreamHeader(ctx)
	want := TraceHeader{
		TraceID:          root.TraceID(),
		ParentID:         seg.ID(),
		SamplingDecision: SamplingDecisionSampled,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func newTracedRequest(t *testing.T, header string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(TraceIDHeaderKey, header)
	return req
}

func TestDownstreamHeader_NotSampled(t *testing.T) {
	ctx, td := NewTestDaemon()
	defer td.Close()

	ctx, root := BeginSegmentWithRequest(ctx, "root", newTracedRequest(t, "Root=1-5e645f3e-1dfad076a177c5ccc5de12f5;Sampled=0"))
	defer root.Close()

	got := DownstreamHeader(ctx)
	want := TraceHeader{
		TraceID:          "1-5e645f3e-1dfad076a177c5ccc5de12f5",
		ParentID:         root.ID(),
		SamplingDecision: SamplingDecisionNotSampled,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDownstreamHeader_Dummy(t *testing.T) {
	ctx, td := NewTestDaemon()
	defer td.Close()

	ctx, seg := BeginSubsegment(ctx, "dummy")
	defer seg.Close()
	if diff := cmp.Diff(TraceHeader{}, DownstreamHeader(ctx)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
