package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// ProcessHandler invokes an external process per hook call, matching
// spec.md §9's design note that user-supplied handlers "can be loaded from
// a configuration document declaring script source or external process
// endpoints" and are treated by the runtime as opaque invocables. The
// event envelope is written to the process's stdin as JSON; the process
// must write the (possibly mutated) envelope back to stdout as JSON and
// exit 0, or exit non-zero with a failure message on stderr.
type ProcessHandler struct {
	Command []string
}

// NewProcessHandler constructs a Handler that runs command (argv[0] plus
// arguments) for every invocation of the hook it is bound to.
func NewProcessHandler(command []string) *ProcessHandler {
	return &ProcessHandler{Command: command}
}

func (p *ProcessHandler) Invoke(ctx context.Context, hook Hook, event Event) (Event, error) {
	if len(p.Command) == 0 {
		return Event{}, fmt.Errorf("trigger: process handler for %s has no command", hook)
	}

	in, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("trigger: marshal event for %s: %w", hook, err)
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Stdin = bytes.NewReader(in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		return Event{}, fmt.Errorf("trigger: process handler for %s: %s", hook, msg)
	}

	var out Event
	if stdout.Len() == 0 {
		return event, nil
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Event{}, fmt.Errorf("trigger: decode process handler output for %s: %w", hook, err)
	}
	return out, nil
}
