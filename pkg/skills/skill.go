// Package skills holds the shared library of committed skills: named,
// parameterized action functions mined from successful task executions.
// The library is mutated only by append, guarded by snapshot/restore so a
// staged mutation can be rolled back without partial effects.
package skills

import (
	"fmt"
	"strings"
)

// Param is one parameter of a skill's signature.
type Param struct {
	Name string
	Type string
}

// Skill is one committed library entry. Source is the exact function
// definition text, including its doc comment; it is never edited in place.
type Skill struct {
	Name        string
	Params      []Param
	Description string
	Source      string
	// TaskID records the task whose trajectory the skill was induced from.
	TaskID string
}

// Signature renders the call signature used in action-space documentation.
func (s Skill) Signature() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.Name
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(params, ", "))
}

// HasExamples reports whether the skill's description carries the Examples
// section required by the action-space describer and the induction prompt.
func (s Skill) HasExamples() bool {
	return strings.Contains(s.Description, "Examples:")
}
