package gateway

import (
	"fmt"
	"sort"
	"strings"
)

// FieldSpec describes one input field of a tool.
type FieldSpec struct {
	Type     string
	Required bool
}

// ToolDescriptor describes one operation exposed by a tool server.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]FieldSpec
	ServerID    string
}

// Key returns the registry key for the descriptor, prefixed with the owning
// server id to avoid collisions between servers exposing same-named tools.
func (d *ToolDescriptor) Key() string {
	return fmt.Sprintf("%s_%s", d.ServerID, d.Name)
}

// Signature renders a call signature mirroring the input schema: required
// fields are mandatory positional-style parameters, optional fields default
// to None.
func (d *ToolDescriptor) Signature() string {
	names := make([]string, 0, len(d.InputSchema))
	for name := range d.InputSchema {
		names = append(names, name)
	}
	// required fields first, each group alphabetical
	sort.Slice(names, func(i, j int) bool {
		a, b := d.InputSchema[names[i]], d.InputSchema[names[j]]
		if a.Required != b.Required {
			return a.Required
		}
		return names[i] < names[j]
	})

	params := make([]string, 0, len(names))
	for _, name := range names {
		spec := d.InputSchema[name]
		if spec.Required {
			params = append(params, fmt.Sprintf("%s: %s", name, spec.Type))
		} else {
			params = append(params, fmt.Sprintf("%s: %s = None", name, spec.Type))
		}
	}
	return fmt.Sprintf("%s(%s)", d.Key(), strings.Join(params, ", "))
}

// Describe renders the action-space documentation for the tool. The Examples
// section is required by both the action-space describer and the induction
// prompt template.
func (d *ToolDescriptor) Describe() string {
	desc := d.Description
	if desc == "" {
		desc = "External tool."
	}
	return fmt.Sprintf("%s\n\nExamples:\n    %s()", desc, d.Key())
}
