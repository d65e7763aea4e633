package trigger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistryInvokeUnbound(t *testing.T) {
	r := NewRegistry(time.Second)
	_, ok, err := r.Invoke(context.Background(), HookPostAuthentication, Event{})
	if ok || err != nil {
		t.Fatalf("expected unbound hook to report ok=false, err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestRegistryInvokeSuccess(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Bind(HookPreSignUp, HandlerFunc(func(_ context.Context, _ Hook, ev Event) (Event, error) {
		ev.Response = map[string]interface{}{"autoConfirmUser": true}
		return ev, nil
	}))

	ev, ok, err := r.Invoke(context.Background(), HookPreSignUp, Event{UserName: "alice"})
	if !ok || err != nil {
		t.Fatalf("Invoke = ok=%v err=%v", ok, err)
	}
	if ev.Response["autoConfirmUser"] != true {
		t.Fatalf("expected override to propagate, got %v", ev.Response)
	}
}

func TestRegistryInvokeError(t *testing.T) {
	r := NewRegistry(time.Second)
	wantErr := errors.New("rejected")
	r.Bind(HookPreAuthentication, HandlerFunc(func(_ context.Context, _ Hook, ev Event) (Event, error) {
		return ev, wantErr
	}))

	_, ok, err := r.Invoke(context.Background(), HookPreAuthentication, Event{})
	if !ok {
		t.Fatalf("expected bound hook")
	}
	var hookErr *HookError
	if !errors.As(err, &hookErr) || !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped HookError, got %v", err)
	}
}

func TestRegistryInvokeTimeout(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	r.Bind(HookPostConfirmation, HandlerFunc(func(ctx context.Context, _ Hook, ev Event) (Event, error) {
		<-ctx.Done()
		return ev, ctx.Err()
	}))

	_, ok, err := r.Invoke(context.Background(), HookPostConfirmation, Event{})
	if !ok || !errors.Is(err, ErrHookTimeout) {
		t.Fatalf("expected ErrHookTimeout, got ok=%v err=%v", ok, err)
	}
}
