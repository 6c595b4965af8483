package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev"} {
		if _, err := NewLogger(env); err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
		}
	}
	for _, env := range []string{"", "docker", "staging"} {
		if _, err := NewLogger(env); err == nil {
			t.Errorf("NewLogger(%q): expected error for unknown environment", env)
		}
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	if _, err := NewLogger("prod", "debug"); err != nil {
		t.Errorf("valid override: %v", err)
	}
	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestFromContext_Fallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil {
		t.Fatal("expected nop logger, got nil")
	}
	want := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), want)
	if got := FromContext(ctx); got != want {
		t.Error("expected the stored logger back")
	}
}
