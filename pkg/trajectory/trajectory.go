// Package trajectory records task executions and cleans them into reusable
// induction examples. A trajectory is the ordered action/outcome sequence of
// one episode; cleaning keeps only the steps worth learning from.
package trajectory

import (
	"strings"

	"github.com/webloom/skillforge/pkg/gateway"
)

// Step is one recorded action and its outcome.
type Step struct {
	// Action is the executed action code, empty when the turn produced none.
	Action string `json:"action"`
	// Error is the step's classified error string, empty on success.
	Error string `json:"error,omitempty"`
	// Output is the auxiliary output from trailing-expression auto-display.
	Output string `json:"output,omitempty"`
}

// Trajectory is the recorded sequence of one task execution.
type Trajectory struct {
	TaskID      string  `json:"task_id"`
	Instruction string  `json:"instruction"`
	Steps       []Step  `json:"steps"`
	Reward      float64 `json:"cum_reward"`
}

// Clean filters the recorded steps into an ordered action sequence: steps
// with empty action text are dropped, and erroring steps are dropped unless
// the error is a timeout (a timed-out action does not necessarily invalidate
// its intent). An empty result is a valid signal meaning "skip induction for
// this run".
func Clean(traj Trajectory) []string {
	var actions []string
	for _, step := range traj.Steps {
		if strings.TrimSpace(step.Action) == "" {
			continue
		}
		if step.Error != "" && !IsTimeout(step.Error) {
			continue
		}
		actions = append(actions, step.Action)
	}
	return actions
}

// IsTimeout reports whether a recorded step error is a timeout.
func IsTimeout(errMsg string) bool {
	if strings.HasPrefix(errMsg, "TimeoutError") {
		return true
	}
	_, ok := gateway.IsTimeoutMessage(errMsg)
	return ok
}

// UsesSkill reports whether any step's action invokes the named function.
// The check is structural: the name must appear as a standalone identifier
// followed by a call, not as part of a longer identifier.
func UsesSkill(traj Trajectory, name string) bool {
	for _, step := range traj.Steps {
		if invokes(step.Action, name) {
			return true
		}
	}
	return false
}

func invokes(action, name string) bool {
	for idx := strings.Index(action, name); idx >= 0; {
		boundary := idx == 0 || !isIdentByte(action[idx-1])
		rest := action[idx+len(name):]
		if boundary && strings.HasPrefix(strings.TrimLeft(rest, " "), "(") {
			return true
		}
		next := strings.Index(action[idx+1:], name)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isIdentByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// HasFailingStep reports whether any step carries a non-timeout error.
func HasFailingStep(traj Trajectory) bool {
	for _, step := range traj.Steps {
		if step.Error != "" && !IsTimeout(step.Error) {
			return true
		}
	}
	return false
}
