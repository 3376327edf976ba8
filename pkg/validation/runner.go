// Package validation stages induced candidates into the skill library, replays
// their test scripts against fresh environment sessions, and commits or rolls
// back atomically on the outcome.
package validation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/webloom/skillforge/pkg/browser"
	"github.com/webloom/skillforge/pkg/executor"
	"github.com/webloom/skillforge/pkg/gateway"
	"github.com/webloom/skillforge/pkg/induction"
	"github.com/webloom/skillforge/pkg/logger"
	"github.com/webloom/skillforge/pkg/skills"
	"github.com/webloom/skillforge/pkg/trajectory"
)

// DefaultReplayTimeout bounds one test replay's wall clock.
const DefaultReplayTimeout = 200 * time.Second

// State tracks one response through the validation lifecycle.
type State string

const (
	ProposalReady State = "proposal_ready"
	Staged        State = "staged"
	Testing       State = "testing"
	Committed     State = "committed"
	RolledBack    State = "rolled_back"
)

// Task is one validation task a test script replays against.
type Task struct {
	ID          string
	Instruction string
}

// Session is one live environment episode used by a replay.
type Session interface {
	browser.Environment
	browser.Messenger
	// Reward reports the oracle cumulative reward, valid once the episode
	// is over.
	Reward() float64
	Close() error
}

// SessionFactory opens a fresh session for one task replay.
type SessionFactory func(ctx context.Context, task Task) (Session, error)

// Evaluator is the judge-policy verdict surface.
type Evaluator interface {
	Evaluate(ctx context.Context, instruction string, traj trajectory.Trajectory) (bool, error)
}

// Config wires a runner.
type Config struct {
	Library     *skills.Library
	LibraryPath string
	// TestsDir receives the per-task test script artifacts.
	TestsDir string
	// Results records the replayed trajectories.
	Results  *trajectory.Store
	Sessions SessionFactory
	Tools    map[string]gateway.ToolFunc
	Policy   Policy
	// Judge is required when Policy is JudgeVerdict.
	Judge Evaluator
	// ReplayTimeout bounds one test's wall clock; DefaultReplayTimeout
	// when zero.
	ReplayTimeout time.Duration
}

// TestResult is the outcome of one replayed test.
type TestResult struct {
	Task     Task
	Passed   bool
	Reason   string
	ResultID string
}

// Outcome is the final state of one response.
type Outcome struct {
	Response int
	State    State
	NewNames []string
	Reason   string
	Tests    []TestResult
}

// Report is the result of one validation batch.
type Report struct {
	Outcomes []Outcome
	// Committed is true when some response survived validation; processing
	// stops at the first one.
	Committed bool
	Version   uint64
}

// Runner validates induced responses one at a time. It is the library's
// single writer: staging operations never overlap.
type Runner struct {
	cfg  Config
	exec *executor.Engine
}

// NewRunner builds a validation runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Library == nil || cfg.LibraryPath == "" {
		return nil, errors.New("validation requires a library and its artifact path")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("validation requires a session factory")
	}
	if _, err := ParsePolicy(string(cfg.Policy)); err != nil {
		return nil, err
	}
	if cfg.Policy == JudgeVerdict && cfg.Judge == nil {
		return nil, errors.New("judge policy selected but no judge configured")
	}
	if cfg.ReplayTimeout <= 0 {
		cfg.ReplayTimeout = DefaultReplayTimeout
	}
	return &Runner{cfg: cfg, exec: executor.New()}, nil
}

// Validate processes responses in order until one commits. Every response is
// staged, tested, and either committed or rolled back before the next one is
// touched.
func (r *Runner) Validate(ctx context.Context, responses []induction.Response, tasks []Task) (*Report, error) {
	report := &Report{}
	for i, resp := range responses {
		outcome, err := r.validateResponse(ctx, i, resp, tasks)
		if err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.State == Committed {
			report.Committed = true
			report.Version = r.cfg.Library.Version()
			break
		}
	}
	return report, nil
}

func (r *Runner) validateResponse(ctx context.Context, idx int, resp induction.Response, tasks []Task) (Outcome, error) {
	log := logger.G(ctx).WithField("response", idx)
	outcome := Outcome{Response: idx, State: ProposalReady}

	if len(resp.Candidates) == 0 {
		outcome.Reason = "no candidates extracted"
		return outcome, nil
	}
	var sources []string
	for _, c := range resp.Candidates {
		sources = append(sources, c.Source)
		outcome.NewNames = append(outcome.NewNames, c.NewNames...)
	}
	origin := joinTaskIDs(tasks)

	// Stage: snapshot in memory, back up the artifact on disk, then append
	// and save so the replay loads skills through the production path.
	snap := r.cfg.Library.Snapshot()
	backup, err := r.backupArtifact()
	if err != nil {
		return outcome, err
	}
	staged := staging{snap: snap, backup: backup}
	if _, err := r.cfg.Library.Append(strings.Join(sources, "\n\n"), origin); err != nil {
		log.WithError(err).Warn("staging rejected")
		outcome.State = RolledBack
		outcome.Reason = err.Error()
		return outcome, r.rollback(staged)
	}
	if err := r.cfg.Library.Save(r.cfg.LibraryPath); err != nil {
		return outcome, multierror.Append(err, r.rollback(staged)).ErrorOrNil()
	}
	outcome.State = Staged
	log.WithField("names", outcome.NewNames).Info("candidates staged")

	if len(resp.Tests) == 0 {
		outcome.State = RolledBack
		outcome.Reason = "response carries no test scripts"
		return outcome, r.rollback(staged)
	}

	outcome.State = Testing
	n := len(tasks)
	if len(resp.Tests) < n {
		n = len(resp.Tests)
	}

	used := map[string]bool{}
	for t := 0; t < n; t++ {
		result, traj, err := r.runTest(ctx, idx, t, resp.Tests[t], tasks[t], &staged)
		if err != nil {
			return outcome, multierror.Append(err, r.rollback(staged)).ErrorOrNil()
		}
		outcome.Tests = append(outcome.Tests, result)
		for _, name := range outcome.NewNames {
			if trajectory.UsesSkill(traj, name) {
				used[name] = true
			}
		}

		if !result.Passed {
			log.WithField("task", result.Task.ID).WithField("reason", result.Reason).Warn("test failed, rolling back")
			outcome.State = RolledBack
			outcome.Reason = result.Reason
			return outcome, r.rollback(staged)
		}
	}

	// A candidate that passes every test without ever being invoked proved
	// nothing; reject it.
	for _, name := range outcome.NewNames {
		if !used[name] {
			outcome.State = RolledBack
			outcome.Reason = fmt.Sprintf("skill %q never invoked by any test", name)
			return outcome, r.rollback(staged)
		}
	}

	r.cfg.Library.Commit()
	if backup != "" {
		if err := os.Remove(backup); err != nil {
			log.WithError(err).Warn("failed to remove artifact backup")
		}
	}
	outcome.State = Committed
	log.WithField("version", r.cfg.Library.Version()).Info("candidates committed")
	return outcome, nil
}

// staging tracks everything a rollback must undo: the in-memory snapshot,
// the artifact backup, and the replay artifacts written so far.
type staging struct {
	snap      skills.Snapshot
	backup    string
	scripts   []string
	resultIDs []string
}

// runTest writes the script artifact, replays it in a fresh session under the
// wall-clock budget, records the trajectory, and scores it.
func (r *Runner) runTest(ctx context.Context, respIdx, testIdx int, script induction.TestScript, task Task, staged *staging) (TestResult, trajectory.Trajectory, error) {
	result := TestResult{Task: task, ResultID: fmt.Sprintf("validate.%d.%s", respIdx, task.ID)}

	if r.cfg.TestsDir != "" {
		if err := os.MkdirAll(r.cfg.TestsDir, 0o755); err != nil {
			return result, trajectory.Trajectory{}, errors.Wrap(err, "failed to create tests directory")
		}
		if err := os.WriteFile(r.testPath(testIdx), []byte(script.Render()), 0o644); err != nil {
			return result, trajectory.Trajectory{}, errors.Wrap(err, "failed to write test script")
		}
		staged.scripts = append(staged.scripts, r.testPath(testIdx))
	}

	session, err := r.cfg.Sessions(ctx, task)
	if err != nil {
		return result, trajectory.Trajectory{}, errors.Wrapf(err, "failed to open session for task %s", task.ID)
	}
	defer session.Close()

	replayCtx, cancel := context.WithTimeout(ctx, r.cfg.ReplayTimeout)
	defer cancel()

	caps := executor.Capabilities{
		Env:         session,
		Messenger:   session,
		SkillSource: r.cfg.Library.Source(),
		Tools:       r.cfg.Tools,
	}

	traj := trajectory.Trajectory{TaskID: task.ID, Instruction: task.Instruction}
	timedOut := false
	for _, action := range script.Actions {
		res := r.exec.Run(replayCtx, action, caps)
		step := trajectory.Step{Action: action, Output: res.AuxOutput}
		if res.Err != nil {
			step.Error = res.Err.Error()
		}
		traj.Steps = append(traj.Steps, step)
		if replayCtx.Err() != nil {
			timedOut = true
			break
		}
	}
	traj.Reward = session.Reward()

	if r.cfg.Results != nil {
		if err := r.cfg.Results.Save(result.ResultID, traj); err != nil {
			return result, traj, err
		}
		staged.resultIDs = append(staged.resultIDs, result.ResultID)
	}

	passed, reason, err := r.score(ctx, task, traj, timedOut)
	if err != nil {
		return result, traj, err
	}
	result.Passed = passed
	result.Reason = reason
	return result, traj, nil
}

// score applies the structural check first, then the configured policy. A
// structural failure overrides any passing score.
func (r *Runner) score(ctx context.Context, task Task, traj trajectory.Trajectory, timedOut bool) (bool, string, error) {
	if timedOut {
		return false, fmt.Sprintf("replay exceeded the %s wall clock", r.cfg.ReplayTimeout), nil
	}
	if trajectory.HasFailingStep(traj) {
		return false, "replay has a failing step", nil
	}

	switch r.cfg.Policy {
	case OracleReward:
		if traj.Reward != 1.0 {
			return false, fmt.Sprintf("oracle reward %.2f", traj.Reward), nil
		}
	case JudgeVerdict:
		ok, err := r.cfg.Judge.Evaluate(ctx, task.Instruction, traj)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, "judge ruled the replay a failure", nil
		}
	case AcceptOnExecution:
		// clean execution is the whole bar
	}
	return true, "", nil
}

// rollback restores the in-memory snapshot, puts the pre-staging artifact
// bytes back, and removes the replay artifacts of the failed response.
func (r *Runner) rollback(staged staging) error {
	r.cfg.Library.Restore(staged.snap)

	var merr *multierror.Error
	if staged.backup != "" {
		data, err := os.ReadFile(staged.backup)
		if err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "failed to read artifact backup"))
		} else if err := os.WriteFile(r.cfg.LibraryPath, data, 0o644); err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "failed to restore artifact"))
		}
		if err := os.Remove(staged.backup); err != nil {
			merr = multierror.Append(merr, err)
		}
	} else if err := os.Remove(r.cfg.LibraryPath); err != nil && !os.IsNotExist(err) {
		merr = multierror.Append(merr, err)
	}

	for _, script := range staged.scripts {
		if err := os.Remove(script); err != nil && !os.IsNotExist(err) {
			merr = multierror.Append(merr, err)
		}
	}
	if r.cfg.Results != nil {
		for _, id := range staged.resultIDs {
			if err := r.cfg.Results.Delete(id); err != nil {
				merr = multierror.Append(merr, err)
			}
		}
	}
	return merr.ErrorOrNil()
}

// backupArtifact copies the live artifact to <path>.bak and returns the
// backup path, or "" when no artifact exists yet.
func (r *Runner) backupArtifact() (string, error) {
	data, err := os.ReadFile(r.cfg.LibraryPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read library artifact")
	}
	backup := r.cfg.LibraryPath + ".bak"
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write artifact backup")
	}
	return backup, nil
}

func (r *Runner) testPath(i int) string {
	return filepath.Join(r.cfg.TestsDir, fmt.Sprintf("test_%d.txt", i))
}

func joinTaskIDs(tasks []Task) string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return strings.Join(ids, ",")
}
