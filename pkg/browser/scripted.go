package browser

import (
	"fmt"
	"sync"
)

// ScriptedEnv is an in-memory Environment used by tests and replay smoke
// runs. It records every primitive invocation and can be armed to fail
// specific calls.
type ScriptedEnv struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
	url      string
	text     string
	messages []string
	infeasec []string
	reward   float64
}

// NewScriptedEnv returns an empty scripted environment.
func NewScriptedEnv() *ScriptedEnv {
	return &ScriptedEnv{failures: map[string]error{}}
}

// FailOn makes the named primitive ("click", "fill", ...) return err.
func (s *ScriptedEnv) FailOn(primitive string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[primitive] = err
}

// SetPage sets the url and text reported by the environment.
func (s *ScriptedEnv) SetPage(url, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url, s.text = url, text
}

func (s *ScriptedEnv) record(primitive, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("%s(%s)", primitive, detail))
	return s.failures[primitive]
}

func (s *ScriptedEnv) Click(id string) error            { return s.record("click", id) }
func (s *ScriptedEnv) Fill(id, value string) error      { return s.record("fill", id+","+value) }
func (s *ScriptedEnv) Press(key string) error           { return s.record("press", key) }
func (s *ScriptedEnv) Goto(url string) error            { return s.record("goto", url) }
func (s *ScriptedEnv) Scroll(dx, dy float64) error      { return s.record("scroll", fmt.Sprintf("%v,%v", dx, dy)) }
func (s *ScriptedEnv) Back() error                      { return s.record("back", "") }

func (s *ScriptedEnv) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *ScriptedEnv) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SendMessage records an outgoing user message.
func (s *ScriptedEnv) SendMessage(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, text)
	return nil
}

// ReportInfeasible records an infeasibility report.
func (s *ScriptedEnv) ReportInfeasible(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infeasec = append(s.infeasec, reason)
	return nil
}

// SetReward arms the oracle reward reported after the episode.
func (s *ScriptedEnv) SetReward(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reward = r
}

// Reward returns the armed oracle reward.
func (s *ScriptedEnv) Reward() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reward
}

// Close releases nothing; a scripted environment has no session.
func (s *ScriptedEnv) Close() error { return nil }

// Calls returns the recorded primitive invocations in order.
func (s *ScriptedEnv) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// Messages returns the outgoing user messages sent so far.
func (s *ScriptedEnv) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}
