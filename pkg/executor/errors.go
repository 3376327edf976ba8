package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/webloom/skillforge/pkg/gateway"
)

// ErrorKind classifies a step failure. Step errors never escape the engine;
// they are attached to the step and fed back into the next turn's context.
type ErrorKind string

const (
	// SyntaxError means the action code did not parse. Unparseable code is
	// a hard step error; there is no fallback to raw execution.
	SyntaxError ErrorKind = "SyntaxError"
	// PrimitiveError means a browser primitive failed.
	PrimitiveError ErrorKind = "PrimitiveError"
	// ToolError means a gateway tool call failed remotely or was not found.
	ToolError ErrorKind = "ToolError"
	// TimeoutKind means the step or a nested call exceeded its bounded wait.
	TimeoutKind ErrorKind = "TimeoutError"
	// RuntimeError covers everything else raised while executing the step.
	RuntimeError ErrorKind = "RuntimeError"
)

// StepError is the classified error attached to a failed step. Its string
// form is what trajectory records carry, so the timeout shape must stay
// recognizable to the collector.
type StepError struct {
	Kind ErrorKind
	Err  error
	// Elapsed is set for TimeoutKind only.
	Elapsed time.Duration
}

func (e *StepError) Error() string {
	if e.Kind == TimeoutKind {
		return fmt.Sprintf("TimeoutError: Timeout %dms exceeded.", e.Elapsed.Milliseconds())
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// classify wraps an arbitrary execution failure into a StepError,
// recognizing the gateway error taxonomy and the timeout pattern.
func classify(err error) *StepError {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		return se
	}

	var timeout *gateway.TimeoutError
	if errors.As(err, &timeout) {
		return &StepError{Kind: TimeoutKind, Err: timeout, Elapsed: timeout.Elapsed}
	}
	var notFound *gateway.ToolNotFoundError
	var schemaErr *gateway.SchemaError
	var remote *gateway.RemoteExecutionError
	var connErr *gateway.ConnectionError
	if errors.As(err, &notFound) || errors.As(err, &schemaErr) ||
		errors.As(err, &remote) || errors.As(err, &connErr) {
		return &StepError{Kind: ToolError, Err: err}
	}

	if elapsed, ok := gateway.IsTimeoutMessage(err.Error()); ok {
		return &StepError{Kind: TimeoutKind, Err: err, Elapsed: elapsed}
	}
	return &StepError{Kind: RuntimeError, Err: err}
}
