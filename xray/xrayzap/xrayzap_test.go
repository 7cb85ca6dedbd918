package xrayzap

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

func TestNewLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := xraylog.WithLogger(context.Background(), NewLogger(zap.New(core)))

	xraylog.Debugf(ctx, "debug %d", 1)
	xraylog.Infof(ctx, "info %d", 2)
	xraylog.Warnf(ctx, "warn %d", 3)
	xraylog.Errorf(ctx, "error %d", 4)

	type entry struct {
		Level   zapcore.Level
		Message string
	}
	var got []entry
	for _, e := range logs.All() {
		got = append(got, entry{Level: e.Level, Message: e.Message})
	}
	want := []entry{
		{Level: zapcore.InfoLevel, Message: "info 2"},
		{Level: zapcore.WarnLevel, Message: "warn 3"},
		{Level: zapcore.ErrorLevel, Message: "error 4"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNewLogger_Silent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))
	logger.Log(xraylog.LogLevelSilent, "silent")
	if logs.Len() != 0 {
		t.Errorf("want no logs, got %d", logs.Len())
	}
}

func TestNewLogger_Nil(t *testing.T) {
	if _, ok := NewLogger(nil).(xraylog.NullLogger); !ok {
		t.Error("want NullLogger")
	}
}
