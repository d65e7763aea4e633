package trigger

import (
	"context"
	"runtime"
	"testing"
)

func TestProcessHandlerEchoesEnvelope(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	h := NewProcessHandler([]string{"/bin/sh", "-c", "cat"})
	ev, err := h.Invoke(context.Background(), HookCustomMessage, Event{UserName: "alice"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ev.UserName != "alice" {
		t.Fatalf("expected echoed UserName alice, got %q", ev.UserName)
	}
}

func TestProcessHandlerNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	h := NewProcessHandler([]string{"/bin/sh", "-c", "echo denied >&2; exit 1"})
	if _, err := h.Invoke(context.Background(), HookPreSignUp, Event{}); err == nil {
		t.Fatalf("expected error from non-zero exit")
	}
}

func TestProcessHandlerNoCommand(t *testing.T) {
	h := NewProcessHandler(nil)
	if _, err := h.Invoke(context.Background(), HookPreSignUp, Event{}); err == nil {
		t.Fatalf("expected error for empty command")
	}
}
