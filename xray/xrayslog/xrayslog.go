// Package xrayslog provides utilities for interfacing with the slog package.
package xrayslog

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shogo82148/xray-httpclient-go/xray"
	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

var _ slog.Handler = (*handler)(nil)

type handler struct {
	parent     slog.Handler
	traceIDKey string
	groups     []string
}

// Enable implements slog.Handler interface.
func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.parent.Enabled(ctx, level)
}

// Handle implements slog.Handler interface.
func (h *handler) Handle(ctx context.Context, record slog.Record) error {
	traceID := xray.ContextTraceID(ctx)
	if traceID == "" && len(h.groups) == 0 {
		// no trace ID and no groups. nothing to do.
		return h.parent.Handle(ctx, record)
	}

	var newRecord slog.Record
	if len(h.groups) == 0 {
		newRecord = record.Clone()
	} else {
		newRecord = slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
		attrs := make([]slog.Attr, 0, record.NumAttrs())
		record.Attrs(func(a slog.Attr) bool {
			attrs = append(attrs, a)
			return true
		})
		newRecord.AddAttrs(h.nest(attrs)...)
	}

	if traceID != "" {
		// the trace ID is always on the top level.
		newRecord.AddAttrs(slog.String(h.traceIDKey, traceID))
	}
	return h.parent.Handle(ctx, newRecord)
}

// nest puts attrs into the groups opened by WithGroup.
func (h *handler) nest(attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 {
		return attrs
	}
	for i := len(h.groups) - 1; i >= 0; i-- {
		args := make([]any, 0, len(attrs))
		for _, a := range attrs {
			args = append(args, a)
		}
		attrs = []slog.Attr{slog.Group(h.groups[i], args...)}
	}
	return attrs
}

// WithAttrs implements slog.Handler interface.
func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{
		parent:     h.parent.WithAttrs(h.nest(attrs)),
		traceIDKey: h.traceIDKey,
		groups:     h.groups,
	}
}

// WithGroup implements slog.Handler interface.
func (h *handler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &handler{
		parent:     h.parent,
		traceIDKey: h.traceIDKey,
		groups:     groups,
	}
}

// NewHandler returns a [slog.Handler] that adds trace ID to the log record.
func NewHandler(parent slog.Handler, traceIDKey string) slog.Handler {
	return &handler{
		parent:     parent,
		traceIDKey: traceIDKey,
	}
}

type xrayLogger struct {
	h        slog.Handler
	minLevel xraylog.LogLevel
}

// NewXRayLogger returns a new [xraylog.Logger] that dispatches the log messages of the SDK to the handler.
// The log level can be set by using either the AWS_XRAY_DEBUG_MODE or AWS_XRAY_LOG_LEVEL environment variables.
// If AWS_XRAY_DEBUG_MODE is set, the log level is set to the debug level.
// AWS_XRAY_LOG_LEVEL may be set to debug, info, warn, error or silent.
// This value is ignored if AWS_XRAY_DEBUG_MODE is set.
func NewXRayLogger(h slog.Handler) xraylog.Logger {
	return NewXRayLoggerWithMinLevel(h, xraylog.LevelFromEnv())
}

// NewXRayLoggerWithMinLevel returns a new [xraylog.Logger] that dispatches the log messages of the SDK to the handler.
func NewXRayLoggerWithMinLevel(h slog.Handler, minLogLevel xraylog.LogLevel) xraylog.Logger {
	if minLogLevel >= xraylog.LogLevelSilent {
		return xraylog.NullLogger{}
	}
	return &xrayLogger{h, minLogLevel}
}

func (l *xrayLogger) Log(level xraylog.LogLevel, msg string) {
	if level < l.minLevel {
		return
	}

	ctx := context.Background()
	lv := xraylogLevelToSlog(level)
	if !l.h.Enabled(ctx, lv) {
		return
	}

	// skip [runtime.Callers, l.Log, xraylog.Info]
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	record := slog.NewRecord(time.Now(), lv, msg, pcs[0])
	l.h.Handle(ctx, record)
}

func xraylogLevelToSlog(l xraylog.LogLevel) slog.Level {
	switch l {
	case xraylog.LogLevelDebug:
		return slog.LevelDebug
	case xraylog.LogLevelInfo:
		return slog.LevelInfo
	case xraylog.LogLevelWarn:
		return slog.LevelWarn
	case xraylog.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
