// Package executor runs one step's action code against the live environment,
// the committed skill library, and the gateway-exposed tools. Action code is
// Go statements interpreted in a per-step sandbox; every failure is captured
// and classified, so execution never escapes to terminate the task loop.
package executor

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// maxAuxOutput bounds the rendered auto-display result.
const maxAuxOutput = 10000

// Result is the outcome of one step.
type Result struct {
	// AuxOutput is the auxiliary output from trailing-expression
	// auto-display ("→ <value>"), distinct from any explicit outgoing
	// message. Empty when the final statement is not a bare expression or
	// its value renders empty.
	AuxOutput string
	// Err is nil on success, a classified *StepError otherwise.
	Err error
}

// Engine executes action code. It is stateless; every Run builds a fresh
// interpreter from the capability table, so steps share nothing but the
// library and gateway the caller passes in.
type Engine struct{}

// New returns an execution engine.
func New() *Engine {
	return &Engine{}
}

// Run executes one step synchronously. The context bounds the whole step;
// on expiry the result is a timeout error carrying the elapsed duration.
func (e *Engine) Run(ctx context.Context, code string, caps Capabilities) Result {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{}
	}

	preceding, trailing, err := splitTrailingExpr(code)
	if err != nil {
		return Result{Err: &StepError{Kind: SyntaxError, Err: err}}
	}

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- e.eval(preceding, trailing, caps)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return Result{Err: &StepError{Kind: TimeoutKind, Err: ctx.Err(), Elapsed: time.Since(start)}}
	}
}

// eval runs the step body inside a fresh interpreter, recovering panics from
// capability bindings and from the interpreter itself.
func (e *Engine) eval(preceding, trailing string, caps Capabilities) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(failure); ok {
				se := classify(f.err)
				if se.Kind == RuntimeError && f.kind != "" {
					se.Kind = f.kind
				}
				res = Result{Err: se}
				return
			}
			res = Result{Err: classify(errors.Errorf("%v", r))}
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return Result{Err: classify(errors.Wrap(err, "failed to load stdlib symbols"))}
	}
	if err := i.Use(interp.Exports{"skillforge/actions/actions": caps.bindings()}); err != nil {
		return Result{Err: classify(errors.Wrap(err, "failed to bind capabilities"))}
	}
	if _, err := i.Eval(`import . "skillforge/actions"`); err != nil {
		return Result{Err: classify(errors.Wrap(err, "failed to import capabilities"))}
	}

	if src := strings.TrimSpace(caps.SkillSource); src != "" {
		if _, err := i.Eval(src); err != nil {
			return Result{Err: classify(errors.Wrap(err, "skill library failed to load"))}
		}
	}

	if preceding != "" {
		if _, err := i.Eval(preceding); err != nil {
			return Result{Err: classify(err)}
		}
	}
	if trailing == "" {
		return Result{}
	}

	v, err := i.Eval(trailing)
	if err != nil {
		return Result{Err: classify(err)}
	}
	return Result{AuxOutput: renderAux(v)}
}

func renderAux(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	value := v.Interface()
	if value == nil {
		return ""
	}
	rendered := fmt.Sprintf("%v", value)
	if rendered == "" {
		return ""
	}
	if len(rendered) > maxAuxOutput {
		rendered = rendered[:maxAuxOutput] + fmt.Sprintf("... (truncated, total length: %d)", len(rendered))
	}
	return "→ " + rendered
}

// stepWrapper hosts the action code for parsing. The offset of the wrapped
// code inside it converts AST positions back into the original string.
const stepWrapper = "package step\nfunc _step() {\n"

// splitTrailingExpr separates the final statement of the action code when it
// is a bare expression, so it can be evaluated apart from the preceding
// statements and its value auto-displayed. Unparseable code is rejected.
func splitTrailingExpr(code string) (preceding, trailing string, err error) {
	wrapped := stepWrapper + code + "\n}\n"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "step.go", wrapped, 0)
	if err != nil {
		return "", "", errors.Wrap(err, "action code does not parse")
	}

	var body *ast.BlockStmt
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name.Name == "_step" {
			body = fn.Body
		}
	}
	if body == nil || len(body.List) == 0 {
		return code, "", nil
	}

	last, ok := body.List[len(body.List)-1].(*ast.ExprStmt)
	if !ok {
		return code, "", nil
	}

	startOff := fset.Position(last.Pos()).Offset - len(stepWrapper)
	endOff := fset.Position(last.End()).Offset - len(stepWrapper)
	if startOff < 0 || endOff > len(code) {
		return code, "", nil
	}
	return strings.TrimSpace(code[:startOff]), strings.TrimSpace(code[startOff:endOff]), nil
}
