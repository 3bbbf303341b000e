package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	tests := []struct {
		env       string
		level     string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{env: "prod", wantLevel: zapcore.InfoLevel},
		{env: "local", wantLevel: zapcore.DebugLevel},
		{env: "docker", wantLevel: zapcore.DebugLevel},
		{env: "cli", wantLevel: zapcore.WarnLevel},
		{env: "prod", level: "error", wantLevel: zapcore.ErrorLevel},
		{env: "cli", level: "debug", wantLevel: zapcore.DebugLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.env+"/"+tc.level, func(t *testing.T) {
			l, err := NewLogger(tc.env, tc.level)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Core().Enabled(tc.wantLevel) {
				t.Errorf("expected level %s enabled", tc.wantLevel)
			}
			if tc.wantLevel > zapcore.DebugLevel && l.Core().Enabled(tc.wantLevel-1) {
				t.Errorf("expected level below %s disabled", tc.wantLevel)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected nop logger for empty context")
	}

	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected stored logger")
	}
}

func TestWith(t *testing.T) {
	bare := context.Background()
	if With(bare, zap.String("exam", "rx")) != bare {
		t.Error("expected unchanged context without a logger")
	}

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := With(ContextWithLogger(bare, zap.New(core)), zap.String("exam", "rx"))
	FromContext(ctx).Info("fetched")

	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["exam"] != "rx" {
		t.Errorf("expected exam field on entry, got %+v", entries)
	}
}
