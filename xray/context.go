package xray

import (
	"context"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string { return "xray context value " + k.name }

var (
	segmentContextKey = &contextKey{"segment"}
	clientContextKey  = &contextKey{"client"}
)

// ContextSegment returns the active segment of the context.
// It returns nil if there is no active segment.
func ContextSegment(ctx context.Context) *Segment {
	if ctx == nil {
		return nil
	}
	seg, _ := ctx.Value(segmentContextKey).(*Segment)
	return seg
}

// WithSegment returns a new context with the existing segment as the active segment.
func WithSegment(ctx context.Context, seg *Segment) context.Context {
	return context.WithValue(ctx, segmentContextKey, seg)
}

// WithoutSegment returns a new context that has no active segment.
// Other values associated with ctx are kept.
func WithoutSegment(ctx context.Context) context.Context {
	return context.WithValue(ctx, segmentContextKey, (*Segment)(nil))
}

// ContextTraceID returns the trace id of the active segment.
// It returns an empty string if there is no active segment.
func ContextTraceID(ctx context.Context) string {
	seg := ContextSegment(ctx)
	if seg == nil || seg.dummy {
		return ""
	}
	return seg.traceID
}

// DownstreamHeader returns the trace header for propagating to the downstream services.
// The parent of the downstream segment is the active segment of ctx.
func DownstreamHeader(ctx context.Context) TraceHeader {
	seg := ContextSegment(ctx)
	if seg == nil || seg.dummy {
		return TraceHeader{}
	}
	decision := SamplingDecisionNotSampled
	if seg.sampled {
		decision = SamplingDecisionSampled
	}
	return TraceHeader{
		TraceID:          seg.traceID,
		ParentID:         seg.id,
		SamplingDecision: decision,
	}
}

// WithClient returns a new context that emits the segments through client.
func WithClient(ctx context.Context, client *Client) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}

// ContextClient returns the client associated with ctx.
// If ctx has no client, it returns the default client.
func ContextClient(ctx context.Context) *Client {
	if ctx != nil {
		if client, ok := ctx.Value(clientContextKey).(*Client); ok && client != nil {
			return client
		}
	}
	return getDefaultClient()
}
