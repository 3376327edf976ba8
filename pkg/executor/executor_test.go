package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webloom/skillforge/pkg/browser"
	"github.com/webloom/skillforge/pkg/gateway"
)

const searchSkillSource = `// search_product searches for a product from the home page.
//
// Examples:
//     search_product("567", "switch card case")
func search_product(searchBarID string, productName string) {
	click(searchBarID)
	fill(searchBarID, productName)
	keyboard_press("Enter")
}`

func run(t *testing.T, code string, caps Capabilities) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return New().Run(ctx, code, caps)
}

func TestAutoDisplay(t *testing.T) {
	t.Run("bare trailing expression is rendered", func(t *testing.T) {
		res := run(t, "2 + 2", Capabilities{})
		require.NoError(t, res.Err)
		assert.Equal(t, "→ 4", res.AuxOutput)
	})

	t.Run("assignment yields no auxiliary output", func(t *testing.T) {
		res := run(t, "x := 2 + 2", Capabilities{})
		require.NoError(t, res.Err)
		assert.Empty(t, res.AuxOutput)
	})

	t.Run("trailing expression sees preceding statements", func(t *testing.T) {
		res := run(t, "x := 40\ny := 2\nx + y", Capabilities{})
		require.NoError(t, res.Err)
		assert.Equal(t, "→ 42", res.AuxOutput)
	})

	t.Run("long result is truncated", func(t *testing.T) {
		code := "s := \"\"\nfor i := 0; i < 10500; i++ { s += \"a\" }\ns"
		res := run(t, code, Capabilities{})
		require.NoError(t, res.Err)
		assert.True(t, strings.HasPrefix(res.AuxOutput, "→ aaa"))
		assert.Contains(t, res.AuxOutput, "... (truncated, total length: 10500)")
		assert.Less(t, len(res.AuxOutput), 10500)
	})
}

func TestPrimitivesRecordedInOrder(t *testing.T) {
	env := browser.NewScriptedEnv()
	res := run(t, "click(\"1\")\nfill(\"2\", \"x\")", Capabilities{Env: env, Messenger: env})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"click(1)", "fill(2,x)"}, env.Calls())
}

func TestSkillInvocation(t *testing.T) {
	env := browser.NewScriptedEnv()
	caps := Capabilities{Env: env, Messenger: env, SkillSource: searchSkillSource}

	res := run(t, `search_product("567", "storage case")`, caps)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{
		"click(567)",
		"fill(567,storage case)",
		"press(Enter)",
	}, env.Calls())
}

func TestSendMessage(t *testing.T) {
	env := browser.NewScriptedEnv()
	res := run(t, `send_msg_to_user("The answer is 42")`, Capabilities{Env: env, Messenger: env})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"The answer is 42"}, env.Messages())
	assert.Empty(t, res.AuxOutput, "explicit messages are not auxiliary output")
}

func TestToolWrapperResults(t *testing.T) {
	caps := Capabilities{
		Tools: map[string]gateway.ToolFunc{
			"srv_count": func(args map[string]any) (any, error) {
				return map[string]any{"count": 3}, nil
			},
		},
	}

	res := run(t, `srv_count(map[string]any{"product_id": "B002"})`, caps)
	require.NoError(t, res.Err)
	assert.Equal(t, "→ map[count:3]", res.AuxOutput)
}

func TestErrorClassification(t *testing.T) {
	t.Run("unparseable code is a hard syntax error", func(t *testing.T) {
		res := run(t, "this is not go {{{", Capabilities{})
		var se *StepError
		require.ErrorAs(t, res.Err, &se)
		assert.Equal(t, SyntaxError, se.Kind)
		assert.True(t, strings.HasPrefix(se.Error(), "SyntaxError: "))
	})

	t.Run("primitive failure", func(t *testing.T) {
		env := browser.NewScriptedEnv()
		env.FailOn("click", errors.New("element 99 not found"))

		res := run(t, `click("99")`, Capabilities{Env: env, Messenger: env})
		var se *StepError
		require.ErrorAs(t, res.Err, &se)
		assert.Equal(t, PrimitiveError, se.Kind)
	})

	t.Run("primitive timeout is recognized with elapsed", func(t *testing.T) {
		env := browser.NewScriptedEnv()
		env.FailOn("click", errors.New("TimeoutError: Timeout 5000ms exceeded."))

		res := run(t, `click("1")`, Capabilities{Env: env, Messenger: env})
		var se *StepError
		require.ErrorAs(t, res.Err, &se)
		assert.Equal(t, TimeoutKind, se.Kind)
		assert.Equal(t, 5*time.Second, se.Elapsed)
		assert.Equal(t, "TimeoutError: Timeout 5000ms exceeded.", se.Error())
	})

	t.Run("tool failure", func(t *testing.T) {
		caps := Capabilities{
			Tools: map[string]gateway.ToolFunc{
				"srv_fail": func(map[string]any) (any, error) {
					return nil, &gateway.RemoteExecutionError{Tool: "srv_fail", Message: "boom"}
				},
			},
		}
		res := run(t, "srv_fail(nil)", caps)
		var se *StepError
		require.ErrorAs(t, res.Err, &se)
		assert.Equal(t, ToolError, se.Kind)
	})

	t.Run("tool timeout keeps its kind and elapsed", func(t *testing.T) {
		caps := Capabilities{
			Tools: map[string]gateway.ToolFunc{
				"srv_slow": func(map[string]any) (any, error) {
					return nil, &gateway.TimeoutError{Op: "tools/call", Elapsed: 30 * time.Second}
				},
			},
		}
		res := run(t, "srv_slow(nil)", caps)
		var se *StepError
		require.ErrorAs(t, res.Err, &se)
		assert.Equal(t, TimeoutKind, se.Kind)
		assert.Equal(t, 30*time.Second, se.Elapsed)
	})

	t.Run("undefined name fails without escaping", func(t *testing.T) {
		res := run(t, "definitely_not_bound()", Capabilities{})
		require.Error(t, res.Err)
	})
}

func TestStepTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	caps := Capabilities{
		Tools: map[string]gateway.ToolFunc{
			"srv_block": func(map[string]any) (any, error) {
				<-block
				return nil, nil
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := New().Run(ctx, "srv_block(nil)", caps)
	var se *StepError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, TimeoutKind, se.Kind)
	assert.GreaterOrEqual(t, se.Elapsed, 50*time.Millisecond)
}

func TestEmptyCodeIsNoOp(t *testing.T) {
	res := run(t, "   ", Capabilities{})
	assert.NoError(t, res.Err)
	assert.Empty(t, res.AuxOutput)
}
