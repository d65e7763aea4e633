// Package trigger implements the pluggable lifecycle-hook runtime: a
// registry mapping hook name to a user-supplied Handler, invoked with a
// uniform event envelope and a per-hook timeout.
package trigger

import (
	"context"
	"errors"
	"time"
)

// Hook identifies one of the recognized lifecycle hooks.
type Hook string

const (
	HookUserMigration      Hook = "UserMigration"
	HookPreSignUp          Hook = "PreSignUp"
	HookPostConfirmation   Hook = "PostConfirmation"
	HookPreAuthentication  Hook = "PreAuthentication"
	HookPostAuthentication Hook = "PostAuthentication"
	HookPreTokenGeneration Hook = "PreTokenGeneration"
	HookCustomMessage      Hook = "CustomMessage"
	HookCustomEmailSender  Hook = "CustomEmailSender"
	HookCustomSMSSender    Hook = "CustomSMSSender"
)

// CallerContext mirrors the subset of the Lambda CognitoEventUserPoolsCallerContext
// shape that the hook envelope carries through to user code.
type CallerContext struct {
	AWSSDKVersion string
	ClientID      string
}

// Event is the uniform envelope passed to every hook invocation.
type Event struct {
	UserPoolID    string
	UserName      string
	CallerContext CallerContext
	TriggerSource string
	Request       map[string]interface{}
	Response      map[string]interface{}
}

// ErrHookTimeout is returned when a handler does not complete within its
// configured timeout; the runtime treats this identically to a handler
// error.
var ErrHookTimeout = errors.New("trigger: hook timed out")

// HookError wraps a handler's failure so callers can recover the
// originating hook name without string-matching the message.
type HookError struct {
	Hook Hook
	Err  error
}

func (e *HookError) Error() string {
	return "trigger: " + string(e.Hook) + ": " + e.Err.Error()
}

func (e *HookError) Unwrap() error { return e.Err }

// Handler is the capability interface a user-supplied trigger binding
// satisfies. Every hook is a single method returning an updated Event or
// an error; there is no handler base type, only this lookup surface —
// matching the "handler selection is a lookup, not inheritance" design.
type Handler interface {
	Invoke(ctx context.Context, hook Hook, event Event) (Event, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, hook Hook, event Event) (Event, error)

func (f HandlerFunc) Invoke(ctx context.Context, hook Hook, event Event) (Event, error) {
	return f(ctx, hook, event)
}

// Registry binds hooks to handlers and enforces the per-hook invocation
// timeout. An Engine holds one Registry, shared by every pool it serves.
type Registry struct {
	handlers map[Hook]Handler
	timeout  time.Duration
}

// NewRegistry builds a Registry with the given per-hook timeout; zero
// defaults to 5 seconds, the spec's documented default.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Registry{handlers: make(map[Hook]Handler), timeout: timeout}
}

// Bind registers h as the handler for hook, replacing any prior binding.
func (r *Registry) Bind(hook Hook, h Handler) {
	r.handlers[hook] = h
}

// Enabled reports whether hook is bound in this Registry.
func (r *Registry) Enabled(hook Hook) bool {
	_, ok := r.handlers[hook]
	return ok
}

// Invoke runs the bound handler for hook with the configured timeout. If no
// handler is bound, ok is false and the caller should fall back to default
// behavior. A context cancellation propagates to the handler and is
// reported as ctx.Err(), distinct from ErrHookTimeout.
func (r *Registry) Invoke(ctx context.Context, hook Hook, event Event) (result Event, ok bool, err error) {
	h, bound := r.handlers[hook]
	if !bound {
		return Event{}, false, nil
	}

	hookCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		event Event
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		ev, herr := h.Invoke(hookCtx, hook, event)
		done <- outcome{ev, herr}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return Event{}, true, &HookError{Hook: hook, Err: o.err}
		}
		return o.event, true, nil
	case <-hookCtx.Done():
		if ctx.Err() != nil {
			return Event{}, true, ctx.Err()
		}
		return Event{}, true, &HookError{Hook: hook, Err: ErrHookTimeout}
	}
}
