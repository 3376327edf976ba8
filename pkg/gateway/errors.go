package gateway

import (
	"fmt"
	"regexp"
	"time"
)

// ConnectionError indicates a tool server is unreachable or its handshake
// failed. Callers proceed without the server; the error is never fatal.
type ConnectionError struct {
	ServerID string
	Cause    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("tool server %q unavailable: %v", e.ServerID, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// ToolNotFoundError indicates a call referenced a tool that is not in the registry.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// SchemaError indicates the arguments for a tool call do not satisfy the
// tool's input schema (e.g. a required field is missing).
type SchemaError struct {
	Tool    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Message)
}

// RemoteExecutionError carries an error reported by the tool server itself,
// surfaced verbatim.
type RemoteExecutionError struct {
	Tool    string
	Code    int
	Message string
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed remotely (code %d): %s", e.Tool, e.Code, e.Message)
}

// TimeoutError indicates no response arrived within the bounded wait. It is a
// distinct kind from remote failure and carries the elapsed duration.
type TimeoutError struct {
	Op      string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("TimeoutError: Timeout %dms exceeded.", e.Elapsed.Milliseconds())
}

var timeoutPattern = regexp.MustCompile(`Timeout ([0-9]+)ms exceeded`)

// IsTimeoutMessage reports whether an error string is a recognized timeout,
// returning the elapsed duration it carries.
func IsTimeoutMessage(msg string) (time.Duration, bool) {
	m := timeoutPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	var ms int64
	fmt.Sscanf(m[1], "%d", &ms)
	return time.Duration(ms) * time.Millisecond, true
}
