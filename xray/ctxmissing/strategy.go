package ctxmissing

import (
	"context"

	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

// LogErrorStrategy logs the value at error level.
type LogErrorStrategy struct{}

// NewLogErrorStrategy returns a new LogErrorStrategy.
func NewLogErrorStrategy() *LogErrorStrategy {
	return &LogErrorStrategy{}
}

// ContextMissing implements [Strategy].
func (*LogErrorStrategy) ContextMissing(ctx context.Context, v any) {
	xraylog.Errorf(ctx, "AWS X-Ray context missing: %v", v)
}

// RuntimeErrorStrategy panics with the value.
// Use it in tests to catch untraced calls early.
type RuntimeErrorStrategy struct{}

// ContextMissing implements [Strategy].
func (*RuntimeErrorStrategy) ContextMissing(ctx context.Context, v any) {
	panic(v)
}

// IgnoreStrategy does nothing.
type IgnoreStrategy struct{}

// NewIgnoreStrategy returns a new IgnoreStrategy.
func NewIgnoreStrategy() *IgnoreStrategy {
	return &IgnoreStrategy{}
}

// ContextMissing implements [Strategy].
func (*IgnoreStrategy) ContextMissing(ctx context.Context, v any) {}
