// Package xrayzap provides a [xraylog.Logger] backed by [go.uber.org/zap].
package xrayzap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

type logger struct {
	l *zap.Logger
}

// NewLogger returns a new [xraylog.Logger] that writes the logs into l.
// The log level is filtered by l.
func NewLogger(l *zap.Logger) xraylog.Logger {
	if l == nil {
		return xraylog.NullLogger{}
	}
	// skip the frames of xraylog.
	return &logger{l: l.WithOptions(zap.AddCallerSkip(2))}
}

// Log implements [xraylog.Logger].
func (l *logger) Log(level xraylog.LogLevel, msg string) {
	lv, ok := zapLevel(level)
	if !ok {
		return
	}
	if ce := l.l.Check(lv, msg); ce != nil {
		ce.Write()
	}
}

func zapLevel(level xraylog.LogLevel) (zapcore.Level, bool) {
	switch level {
	case xraylog.LogLevelDebug:
		return zapcore.DebugLevel, true
	case xraylog.LogLevelInfo:
		return zapcore.InfoLevel, true
	case xraylog.LogLevelWarn:
		return zapcore.WarnLevel, true
	case xraylog.LogLevelError:
		return zapcore.ErrorLevel, true
	}
	return zapcore.InvalidLevel, false
}
