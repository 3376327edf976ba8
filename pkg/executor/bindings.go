package executor

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/webloom/skillforge/pkg/browser"
	"github.com/webloom/skillforge/pkg/gateway"
)

// Capabilities is the per-step binding set. It is assembled fresh for every
// step from the currently connected gateway and the currently loaded skill
// library; no state is shared between steps or across modules.
type Capabilities struct {
	Env       browser.Environment
	Messenger browser.Messenger
	// SkillSource is the committed library source, loaded through
	// skills.Library.Source, the same path staging appends to.
	SkillSource string
	// Tools maps registry keys (serverID_toolName) to gateway callables.
	Tools map[string]gateway.ToolFunc
}

// failure wraps an error raised by a binding so the recover handler can
// distinguish capability failures from interpreter panics. The kind is a
// hint; recognized gateway kinds and the timeout pattern take precedence.
type failure struct {
	err  error
	kind ErrorKind
}

func raise(kind ErrorKind, err error) {
	if err != nil {
		panic(failure{err: err, kind: kind})
	}
}

// bindings enumerates the explicit symbol table injected into the step
// interpreter: browser primitives, outgoing-message callbacks, and one
// wrapper per gateway tool. Nothing else is reachable from action code.
func (c Capabilities) bindings() map[string]reflect.Value {
	symbols := map[string]reflect.Value{}

	if c.Env != nil {
		env := c.Env
		symbols["click"] = reflect.ValueOf(func(id string) { raise(PrimitiveError, env.Click(id)) })
		symbols["fill"] = reflect.ValueOf(func(id, value string) { raise(PrimitiveError, env.Fill(id, value)) })
		symbols["keyboard_press"] = reflect.ValueOf(func(key string) { raise(PrimitiveError, env.Press(key)) })
		symbols["goto_url"] = reflect.ValueOf(func(url string) { raise(PrimitiveError, env.Goto(url)) })
		symbols["scroll"] = reflect.ValueOf(func(dx, dy float64) { raise(PrimitiveError, env.Scroll(dx, dy)) })
		symbols["go_back"] = reflect.ValueOf(func() { raise(PrimitiveError, env.Back()) })
		symbols["page_url"] = reflect.ValueOf(func() string { return env.URL() })
		symbols["page_text"] = reflect.ValueOf(func() string { return env.Text() })
		symbols["noop"] = reflect.ValueOf(func() {})
	}

	if c.Messenger != nil {
		msg := c.Messenger
		symbols["send_msg_to_user"] = reflect.ValueOf(func(text string) { raise(RuntimeError, msg.SendMessage(text)) })
		symbols["report_infeasible"] = reflect.ValueOf(func(reason string) { raise(RuntimeError, msg.ReportInfeasible(reason)) })
	}

	for key, fn := range c.Tools {
		tool := fn
		name := key
		symbols[name] = reflect.ValueOf(func(args map[string]any) any {
			result, err := tool(args)
			if err != nil {
				raise(ToolError, errors.Wrapf(err, "tool %s", name))
			}
			return result
		})
	}

	return symbols
}
