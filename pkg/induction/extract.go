package induction

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// Candidate is one extracted skill proposal: a source blob and the names it
// introduces that the library does not already hold.
type Candidate struct {
	Source   string
	NewNames []string
}

var (
	fenceRe         = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\n(.*?)```")
	packageClauseRe = regexp.MustCompile(`(?m)^package\s+\w`)
)

func fencedBlocks(response string) []string {
	var blocks []string
	for _, m := range fenceRe.FindAllStringSubmatch(response, -1) {
		block := strings.TrimSpace(m[1])
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// ExtractCandidates parses the fenced code blocks of a response into ordered
// candidates. A block qualifies only when it defines at least one function
// and calls at least one name it does not define itself, which filters out
// trivial aliases. Names already present in existing (or introduced by an
// earlier block of the same response) are discarded; a block with no
// surviving new name contributes nothing.
func ExtractCandidates(response string, existing map[string]struct{}) []Candidate {
	seen := make(map[string]struct{}, len(existing))
	for name := range existing {
		seen[name] = struct{}{}
	}

	var candidates []Candidate
	for _, block := range fencedBlocks(response) {
		defined, callsOut, ok := inspectBlock(block)
		if !ok || len(defined) == 0 || !callsOut {
			continue
		}

		var newNames []string
		for _, name := range defined {
			if _, dup := seen[name]; dup {
				continue
			}
			newNames = append(newNames, name)
		}
		if len(newNames) == 0 {
			continue
		}
		for _, name := range newNames {
			seen[name] = struct{}{}
		}
		candidates = append(candidates, Candidate{Source: block, NewNames: newNames})
	}
	return candidates
}

// inspectBlock parses one block and reports its top-level function names and
// whether any of their bodies call a name defined outside the block.
func inspectBlock(block string) (defined []string, callsOut bool, ok bool) {
	src := block
	if !packageClauseRe.MatchString(src) {
		src = "package candidates\n\n" + src
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, false, false
	}

	names := make(map[string]struct{})
	for _, decl := range file.Decls {
		fn, isFn := decl.(*ast.FuncDecl)
		if !isFn || fn.Recv != nil {
			continue
		}
		defined = append(defined, fn.Name.Name)
		names[fn.Name.Name] = struct{}{}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		call, isCall := n.(*ast.CallExpr)
		if !isCall {
			return true
		}
		if ident, isIdent := call.Fun.(*ast.Ident); isIdent {
			if _, own := names[ident.Name]; !own {
				callsOut = true
			}
		}
		return true
	})
	return defined, callsOut, true
}

// ParseTests extracts test scripts from a response: the fenced blocks that
// define no function, one script per originating trajectory. When the model
// emits more scripts than trajectories, the last n are kept.
func ParseTests(response string, n int) []TestScript {
	var tests []TestScript
	for _, block := range fencedBlocks(response) {
		defined, _, ok := inspectBlock(block)
		if ok && len(defined) > 0 {
			continue
		}
		var actions []string
		for _, line := range strings.Split(block, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				actions = append(actions, line)
			}
		}
		if len(actions) > 0 {
			tests = append(tests, TestScript{Actions: actions})
		}
	}
	if n > 0 && len(tests) > n {
		tests = tests[len(tests)-n:]
	}
	return tests
}
