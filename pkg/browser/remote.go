package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Caller performs one tool round trip by registry key. It is satisfied by
// the gateway manager.
type Caller interface {
	Call(ctx context.Context, key string, args map[string]any) (any, error)
}

// RemoteEnv drives a browser hosted behind a tool server. Each primitive maps
// onto one tool of the configured server; the episode lifecycle (start,
// reward, close) uses the same channel.
type RemoteEnv struct {
	ctx      context.Context
	caller   Caller
	serverID string
}

// NewRemoteEnv binds a remote environment to one tool server. The context
// bounds every primitive issued through it.
func NewRemoteEnv(ctx context.Context, caller Caller, serverID string) *RemoteEnv {
	return &RemoteEnv{ctx: ctx, caller: caller, serverID: serverID}
}

// StartTask begins an episode for the given task id.
func (r *RemoteEnv) StartTask(taskID string) error {
	_, err := r.call("start_task", map[string]any{"task_id": taskID})
	return errors.Wrapf(err, "failed to start task %s", taskID)
}

func (r *RemoteEnv) call(tool string, args map[string]any) (any, error) {
	return r.caller.Call(r.ctx, fmt.Sprintf("%s_%s", r.serverID, tool), args)
}

func (r *RemoteEnv) Click(id string) error {
	_, err := r.call("click", map[string]any{"bid": id})
	return err
}

func (r *RemoteEnv) Fill(id, value string) error {
	_, err := r.call("fill", map[string]any{"bid": id, "value": value})
	return err
}

func (r *RemoteEnv) Press(key string) error {
	_, err := r.call("keyboard_press", map[string]any{"key": key})
	return err
}

func (r *RemoteEnv) Goto(url string) error {
	_, err := r.call("goto", map[string]any{"url": url})
	return err
}

func (r *RemoteEnv) Scroll(dx, dy float64) error {
	_, err := r.call("scroll", map[string]any{"dx": dx, "dy": dy})
	return err
}

func (r *RemoteEnv) Back() error {
	_, err := r.call("go_back", nil)
	return err
}

func (r *RemoteEnv) URL() string {
	v, err := r.call("page_url", nil)
	if err != nil {
		return ""
	}
	return asString(v)
}

func (r *RemoteEnv) Text() string {
	v, err := r.call("page_text", nil)
	if err != nil {
		return ""
	}
	return asString(v)
}

func (r *RemoteEnv) SendMessage(text string) error {
	_, err := r.call("send_msg_to_user", map[string]any{"text": text})
	return err
}

func (r *RemoteEnv) ReportInfeasible(reason string) error {
	_, err := r.call("report_infeasible", map[string]any{"reason": reason})
	return err
}

// Reward reads the episode's oracle cumulative reward. A server without a
// reward tool reports zero.
func (r *RemoteEnv) Reward() float64 {
	v, err := r.call("reward", nil)
	if err != nil {
		return 0
	}
	return asFloat(v)
}

// Close ends the episode.
func (r *RemoteEnv) Close() error {
	_, err := r.call("close", nil)
	return err
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case json.Number:
		f, _ := x.Float64()
		return f
	case map[string]any:
		return asFloat(x["reward"])
	default:
		return 0
	}
}
