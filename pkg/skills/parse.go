package skills

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const sourcePrefix = "package skills\n\n"

var packageClause = regexp.MustCompile(`(?m)^package\s+\w`)

// ParseSource parses a blob of Go function definitions into skills. The blob
// is plain top-level functions, as appended by induction; no package clause.
func ParseSource(src, taskID string) ([]Skill, error) {
	augmented := src
	if !packageClause.MatchString(src) {
		augmented = sourcePrefix + src
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "skills.go", augmented, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(err, "skill source does not parse")
	}

	var out []Skill
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}

		start := fn.Pos()
		if fn.Doc != nil {
			start = fn.Doc.Pos()
		}
		startOff := fset.Position(start).Offset
		endOff := fset.Position(fn.End()).Offset

		var params []Param
		if fn.Type.Params != nil {
			for _, field := range fn.Type.Params.List {
				typ := exprText(augmented, fset, field.Type)
				for _, name := range field.Names {
					params = append(params, Param{Name: name.Name, Type: typ})
				}
			}
		}

		out = append(out, Skill{
			Name:        fn.Name.Name,
			Params:      params,
			Description: fn.Doc.Text(),
			Source:      strings.TrimSpace(augmented[startOff:endOff]),
			TaskID:      taskID,
		})
	}
	if len(out) == 0 {
		return nil, errors.New("skill source defines no functions")
	}
	return out, nil
}

func exprText(src string, fset *token.FileSet, expr ast.Expr) string {
	return src[fset.Position(expr.Pos()).Offset:fset.Position(expr.End()).Offset]
}

// FunctionNames returns the names of all top-level functions defined in src,
// in declaration order. Unparseable source yields no names.
func FunctionNames(src string) []string {
	parsed, err := ParseSource(src, "")
	if err != nil {
		return nil
	}
	names := make([]string, len(parsed))
	for i, s := range parsed {
		names[i] = s.Name
	}
	return names
}
