// Package gateway manages connections to external tool servers and exposes
// their operations as callables. Servers are subprocesses speaking
// newline-delimited JSON over stdin/stdout; each connection carries exactly
// one outstanding request at a time and matches responses by strict order.
package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/webloom/skillforge/pkg/logger"
)

// ToolFunc is a callable bound to one registered tool. Arguments mirror the
// tool's input schema; the body delegates to Manager.Call. These callables
// are injected into the action execution engine's per-step capability table.
type ToolFunc func(args map[string]any) (any, error)

// Manager owns all tool server connections and the descriptor registry.
type Manager struct {
	mu       sync.Mutex
	conns    map[string]*connection
	registry map[string]*ToolDescriptor // keyed serverID_toolName
	closed   bool
}

// NewManager returns an empty manager; servers are added with Connect.
func NewManager() *Manager {
	return &Manager{
		conns:    map[string]*connection{},
		registry: map[string]*ToolDescriptor{},
	}
}

// Connect launches the server subprocess, performs the tools/list handshake,
// and registers its descriptors. It returns false if the server could not be
// connected; a failed server is simply absent from the registry and the
// failure is never raised to the caller.
func (m *Manager) Connect(ctx context.Context, serverID string, cfg ServerConfig) bool {
	log := logger.G(ctx).WithField("server_id", serverID)

	conn, err := dial(ctx, serverID, cfg)
	if err != nil {
		log.WithError(&ConnectionError{ServerID: serverID, Cause: err}).Warn("failed to start tool server")
		return false
	}

	descriptors, err := conn.listTools(ctx)
	if err != nil {
		log.WithError(err).Warn("tool server handshake failed")
		conn.close()
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	m.conns[serverID] = conn
	for _, d := range descriptors {
		m.registry[d.Key()] = d
	}
	log.WithField("tools", len(descriptors)).Info("connected to tool server")
	return true
}

// ConnectAll connects every configured server, continuing past individual
// failures. It returns the number of servers connected.
func (m *Manager) ConnectAll(ctx context.Context, cfg Config) int {
	connected := 0
	ids := make([]string, 0, len(cfg.Servers))
	for id := range cfg.Servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if m.Connect(ctx, id, cfg.Servers[id]) {
			connected++
		}
	}
	return connected
}

// Call performs one blocking tool round trip. The tool is addressed by its
// registry key (serverID_toolName). Error kinds: ToolNotFoundError for an
// unknown tool, SchemaError for arguments violating the input schema,
// RemoteExecutionError when the server reports an error, TimeoutError when
// no response arrives in time.
func (m *Manager) Call(ctx context.Context, key string, args map[string]any) (any, error) {
	m.mu.Lock()
	desc, ok := m.registry[key]
	var conn *connection
	if ok {
		conn = m.conns[desc.ServerID]
	}
	m.mu.Unlock()

	if !ok || conn == nil {
		return nil, &ToolNotFoundError{Name: key}
	}

	if args == nil {
		args = map[string]any{}
	}
	for name, spec := range desc.InputSchema {
		if spec.Required {
			if _, present := args[name]; !present {
				return nil, &SchemaError{Tool: key, Message: "missing required field " + name}
			}
		}
	}

	logger.G(ctx).WithField("tool", key).Debug("calling tool")
	resp, err := conn.roundTrip(ctx, request{
		Method: "tools/call",
		Params: map[string]any{"name": desc.Name, "arguments": args},
	})
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, &RemoteExecutionError{Tool: key, Code: resp.Err.Code, Message: resp.Err.Message}
	}
	return decodeResult(resp), nil
}

// Descriptors returns all registered descriptors in registry-key order.
func (m *Manager) Descriptors() []*ToolDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.registry))
	for key := range m.registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]*ToolDescriptor, 0, len(keys))
	for _, key := range keys {
		out = append(out, m.registry[key])
	}
	return out
}

// Wrappers synthesizes one callable per registered tool, keyed by the
// registry key. Each callable captures (serverID, toolName, manager) and
// delegates to Call.
func (m *Manager) Wrappers(ctx context.Context) map[string]ToolFunc {
	wrappers := map[string]ToolFunc{}
	for _, d := range m.Descriptors() {
		key := d.Key()
		wrappers[key] = func(args map[string]any) (any, error) {
			return m.Call(ctx, key, args)
		}
	}
	return wrappers
}

// DisconnectAll terminates all server subprocesses. It is idempotent and is
// invoked on normal exit, on signal, and on setup failure.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conns := m.conns
	m.conns = map[string]*connection{}
	m.registry = map[string]*ToolDescriptor{}
	m.mu.Unlock()

	var result *multierror.Error
	for id, conn := range conns {
		if err := conn.close(); err != nil {
			logger.G(ctx).WithField("server_id", id).WithError(err).Warn("failed to stop tool server")
			result = multierror.Append(result, errors.Wrapf(err, "server %s", id))
		}
	}
	return result.ErrorOrNil()
}
