package xray

import (
	"context"
)

// Capture traces the provided synchronous function by
// beginning and closing a subsegment around its execution.
// The error returned by f is recorded as a fault and returned as is.
func Capture(ctx context.Context, name string, f func(context.Context) error) error {
	ctx, seg := BeginSubsegment(ctx, name)
	defer seg.Close()
	err := f(ctx)
	seg.AddError(err)
	return err
}
