package induction

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// TestScript is an ordered sequence of action snippets replayed during
// validation.
type TestScript struct {
	Actions []string
}

var scriptSnippetRe = regexp.MustCompile("(?s)```(.*?)```")

// Render serializes the script into the on-disk test format: one fenced
// snippet per line.
func (s TestScript) Render() string {
	lines := make([]string, 0, len(s.Actions))
	for _, action := range s.Actions {
		lines = append(lines, "```"+action+"```")
	}
	return strings.Join(lines, "\n")
}

// ParseScript parses the on-disk test format back into a script.
func ParseScript(content string) TestScript {
	var script TestScript
	for _, m := range scriptSnippetRe.FindAllStringSubmatch(content, -1) {
		if action := strings.TrimSpace(m[1]); action != "" {
			script.Actions = append(script.Actions, action)
		}
	}
	return script
}

// LoadScript reads and parses a test script file.
func LoadScript(path string) (TestScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TestScript{}, errors.Wrapf(err, "failed to read test script %s", path)
	}
	return ParseScript(string(data)), nil
}
