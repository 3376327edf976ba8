package trajectory

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	stepsFile   = "steps.json"
	summaryFile = "summary.json"
)

// Summary is the per-episode result record used by oracle scoring.
type Summary struct {
	TaskID      string  `json:"task_id"`
	Instruction string  `json:"instruction"`
	Reward      float64 `json:"cum_reward"`
	NSteps      int     `json:"n_steps"`
}

// Store reads and writes recorded trajectories under a results directory,
// one subdirectory per task result id.
type Store struct {
	root string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Dir returns the directory holding one result id.
func (s *Store) Dir(resultID string) string {
	return filepath.Join(s.root, resultID)
}

// Save writes a trajectory and its summary under the given result id.
func (s *Store) Save(resultID string, traj Trajectory) error {
	dir := s.Dir(resultID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create result directory")
	}

	if err := writeJSON(filepath.Join(dir, stepsFile), traj); err != nil {
		return err
	}
	summary := Summary{
		TaskID:      traj.TaskID,
		Instruction: traj.Instruction,
		Reward:      traj.Reward,
		NSteps:      len(traj.Steps),
	}
	return writeJSON(filepath.Join(dir, summaryFile), summary)
}

// Load reads the trajectory recorded under the given result id.
func (s *Store) Load(resultID string) (Trajectory, error) {
	var traj Trajectory
	data, err := os.ReadFile(filepath.Join(s.Dir(resultID), stepsFile))
	if err != nil {
		return traj, errors.Wrapf(err, "no trajectory for result %q", resultID)
	}
	if err := json.Unmarshal(data, &traj); err != nil {
		return traj, errors.Wrapf(err, "corrupt trajectory for result %q", resultID)
	}
	return traj, nil
}

// LoadSummary reads the summary recorded under the given result id.
func (s *Store) LoadSummary(resultID string) (Summary, error) {
	var summary Summary
	data, err := os.ReadFile(filepath.Join(s.Dir(resultID), summaryFile))
	if err != nil {
		return summary, errors.Wrapf(err, "no summary for result %q", resultID)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return summary, errors.Wrapf(err, "corrupt summary for result %q", resultID)
	}
	return summary, nil
}

// Delete removes everything recorded under the given result id.
func (s *Store) Delete(resultID string) error {
	return errors.Wrapf(os.RemoveAll(s.Dir(resultID)), "failed to delete result %q", resultID)
}

// Exists reports whether a result id has a recorded trajectory.
func (s *Store) Exists(resultID string) bool {
	_, err := os.Stat(filepath.Join(s.Dir(resultID), stepsFile))
	return err == nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "failed to write %s", filepath.Base(path))
}
