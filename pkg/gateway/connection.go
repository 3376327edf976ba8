package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/webloom/skillforge/pkg/logger"
	"github.com/webloom/skillforge/pkg/osutil"
)

// State describes the lifecycle of a tool server connection.
type State int

const (
	// Disconnected means the server process is not running.
	Disconnected State = iota
	// Connected means the handshake completed and the server accepts calls.
	Connected
	// Failed means the connection is unusable (handshake failure or an
	// abandoned in-flight request after a timeout).
	Failed
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "disconnected"
	}
}

// connection manages one tool server subprocess. It enforces the protocol's
// single-outstanding-request discipline: the mutex serializes round trips, so
// responses always match requests by order.
type connection struct {
	serverID string
	timeout  time.Duration

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan readResult
	state State

	// done releases the reader goroutine on close; it may be blocked on a
	// send no one will ever receive.
	done      chan struct{}
	closeOnce sync.Once
}

type readResult struct {
	line []byte
	err  error
}

func dial(ctx context.Context, serverID string, cfg ServerConfig) (*connection, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	// a server's own children must die with it
	osutil.SetProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start tool server %q", cfg.Command)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	conn := newConnection(serverID, timeout, cmd, stdin, stdout)
	logger.G(ctx).WithField("server_id", serverID).WithField("command", cfg.Command).Debug("tool server started")
	return conn, nil
}

// newConnection wires a connection over arbitrary byte streams. Production
// connections come from dial; tests supply in-memory pipes.
func newConnection(serverID string, timeout time.Duration, cmd *exec.Cmd, stdin io.WriteCloser, stdout io.Reader) *connection {
	conn := &connection{
		serverID: serverID,
		timeout:  timeout,
		cmd:      cmd,
		stdin:    stdin,
		lines:    make(chan readResult),
		state:    Connected,
		done:     make(chan struct{}),
	}

	// One reader goroutine per connection. Responses arrive in request
	// order; the round-trip mutex guarantees at most one consumer waits.
	go func() {
		defer close(conn.lines)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case conn.lines <- readResult{line: line}:
			case <-conn.done:
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case conn.lines <- readResult{err: err}:
		case <-conn.done:
		}
	}()

	return conn
}

// roundTrip sends one request and waits for the next response line, bounded
// by the connection's call timeout. A timed-out request leaves its response
// unclaimed, which would break strict-order matching, so the connection
// transitions to Failed and rejects further calls.
func (c *connection) roundTrip(ctx context.Context, req request) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Connected {
		return nil, &ConnectionError{ServerID: c.serverID, Cause: errors.Errorf("connection is %s", c.state)}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}
	start := time.Now()
	if _, err := c.stdin.Write(append(payload, '\n')); err != nil {
		c.state = Failed
		return nil, &ConnectionError{ServerID: c.serverID, Cause: err}
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case rr, ok := <-c.lines:
		if !ok || rr.err != nil {
			c.state = Failed
			cause := rr.err
			if cause == nil {
				cause = io.EOF
			}
			return nil, &ConnectionError{ServerID: c.serverID, Cause: cause}
		}
		var resp response
		if err := json.Unmarshal(rr.line, &resp); err != nil {
			c.state = Failed
			return nil, &ConnectionError{ServerID: c.serverID, Cause: errors.Wrap(err, "malformed response")}
		}
		return &resp, nil
	case <-timer.C:
		c.state = Failed
		return nil, &TimeoutError{Op: req.Method, Elapsed: time.Since(start)}
	case <-ctx.Done():
		c.state = Failed
		return nil, errors.Wrap(ctx.Err(), "tool call canceled")
	}
}

// listTools performs the capability handshake.
func (c *connection) listTools(ctx context.Context) ([]*ToolDescriptor, error) {
	resp, err := c.roundTrip(ctx, request{Method: "tools/list", Params: map[string]any{}})
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, &ConnectionError{ServerID: c.serverID, Cause: errors.Errorf("tools/list failed: %s", resp.Err.Message)}
	}

	descriptors := make([]*ToolDescriptor, 0, len(resp.Tools))
	for _, wt := range resp.Tools {
		schema, err := parseSchema(wt.InputSchema)
		if err != nil {
			return nil, &ConnectionError{ServerID: c.serverID, Cause: err}
		}
		descriptors = append(descriptors, &ToolDescriptor{
			Name:        wt.Name,
			Description: wt.Description,
			InputSchema: schema,
			ServerID:    c.serverID,
		})
	}
	return descriptors, nil
}

// close terminates the server subprocess. Idempotent.
func (c *connection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })

	if c.cmd == nil {
		c.state = Disconnected
		return nil
	}
	c.stdin.Close()
	osutil.KillProcessGroup(c.cmd)
	err := c.cmd.Wait()
	c.cmd = nil
	c.state = Disconnected
	// Kill makes Wait report an exit error; that's the expected shutdown path.
	if err != nil && err.Error() == "signal: killed" {
		return nil
	}
	return err
}
