package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	traj := Trajectory{
		TaskID: "110",
		Steps: []Step{
			{Action: "", Error: ""},
			{Action: "click('1')", Error: "TimeoutError: Timeout 5000ms exceeded."},
			{Action: "fill('2','x')", Error: "SyntaxError: bad"},
		},
	}

	assert.Equal(t, []string{"click('1')"}, Clean(traj))
}

func TestCleanKeepsSuccessfulSteps(t *testing.T) {
	traj := Trajectory{
		Steps: []Step{
			{Action: "click('1')"},
			{Action: "   "},
			{Action: "send_msg_to_user(\"done\")"},
		},
	}
	assert.Equal(t, []string{"click('1')", "send_msg_to_user(\"done\")"}, Clean(traj))
}

func TestCleanEmptyMeansSkipInduction(t *testing.T) {
	traj := Trajectory{
		Steps: []Step{
			{Action: "click('1')", Error: "RuntimeError: boom"},
		},
	}
	assert.Empty(t, Clean(traj))
}

func TestUsesSkill(t *testing.T) {
	traj := Trajectory{
		Steps: []Step{
			{Action: `search_product("567", "case")`},
			{Action: `send_msg_to_user("done")`},
		},
	}

	assert.True(t, UsesSkill(traj, "search_product"))
	assert.False(t, UsesSkill(traj, "open_order_history"))
	// name mentioned but never called
	noCall := Trajectory{Steps: []Step{{Action: `send_msg_to_user("search_product is nice")`}}}
	assert.False(t, UsesSkill(noCall, "search_product"))
}

func TestUsesSkillRequiresStandaloneIdentifier(t *testing.T) {
	// a name that is only the suffix of another invoked identifier is not a call
	suffix := Trajectory{Steps: []Step{{Action: `open_cart("1742")`}}}
	assert.False(t, UsesSkill(suffix, "cart"))

	// nor the prefix of a longer one
	prefix := Trajectory{Steps: []Step{{Action: `cart_total()`}}}
	assert.False(t, UsesSkill(prefix, "cart"))

	// a real call after a non-call occurrence still counts
	both := Trajectory{Steps: []Step{{Action: `open_cart("1742"); cart()`}}}
	assert.True(t, UsesSkill(both, "cart"))
}

func TestHasFailingStep(t *testing.T) {
	assert.False(t, HasFailingStep(Trajectory{Steps: []Step{
		{Action: "click('1')"},
		{Action: "click('2')", Error: "TimeoutError: Timeout 500ms exceeded."},
	}}))
	assert.True(t, HasFailingStep(Trajectory{Steps: []Step{
		{Action: "click('1')", Error: "RuntimeError: nope"},
	}}))
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	traj := Trajectory{
		TaskID:      "110",
		Instruction: "Find the cheapest switch case",
		Steps: []Step{
			{Action: "click('1')"},
			{Action: "fill('2','case')", Output: "→ 4"},
		},
		Reward: 1.0,
	}
	require.NoError(t, store.Save("webarena.110", traj))
	require.True(t, store.Exists("webarena.110"))

	loaded, err := store.Load("webarena.110")
	require.NoError(t, err)
	assert.Equal(t, traj, loaded)

	summary, err := store.LoadSummary("webarena.110")
	require.NoError(t, err)
	assert.Equal(t, 1.0, summary.Reward)
	assert.Equal(t, 2, summary.NSteps)

	require.NoError(t, store.Delete("webarena.110"))
	assert.False(t, store.Exists("webarena.110"))

	_, err = store.Load("webarena.110")
	assert.Error(t, err)
}
