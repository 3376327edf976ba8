package validation

import "github.com/pkg/errors"

// Policy selects how a replayed test is scored. There is no default: the
// caller chooses explicitly, and the zero value is rejected.
type Policy string

const (
	// OracleReward passes a test iff the environment's cumulative reward
	// is 1.0.
	OracleReward Policy = "oracle"
	// JudgeVerdict passes a test iff the model judge rules the replayed
	// trajectory a success.
	JudgeVerdict Policy = "judge"
	// AcceptOnExecution passes a test iff the replay itself is clean; it
	// must be selected deliberately since it validates nothing about task
	// completion.
	AcceptOnExecution Policy = "execution"
)

// ParsePolicy maps the CLI flag value onto a policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case OracleReward, JudgeVerdict, AcceptOnExecution:
		return Policy(s), nil
	default:
		return "", errors.Errorf("unknown scoring policy %q (want oracle, judge, or execution)", s)
	}
}
