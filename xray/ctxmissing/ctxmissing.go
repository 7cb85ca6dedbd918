// Package ctxmissing provides the strategies applied when
// a subsegment is begun without any active segment in the context.
package ctxmissing

import (
	"context"
	"fmt"
)

// Strategy provides an interface for
// implementing context missing strategies.
type Strategy interface {
	// ContextMissing is called when any segment is not associated with a context.
	ContextMissing(ctx context.Context, v any)
}

// The values of AWS_XRAY_CONTEXT_MISSING.
const (
	NameLogError     = "LOG_ERROR"
	NameRuntimeError = "RUNTIME_ERROR"
	NameIgnoreError  = "IGNORE_ERROR"
)

// New returns the strategy registered with the name.
// The empty name selects [LogErrorStrategy].
func New(name string) (Strategy, error) {
	switch name {
	case "", NameLogError:
		return NewLogErrorStrategy(), nil
	case NameRuntimeError:
		return &RuntimeErrorStrategy{}, nil
	case NameIgnoreError:
		return NewIgnoreStrategy(), nil
	}
	return nil, fmt.Errorf("xray/ctxmissing: unknown context missing strategy: %q", name)
}
