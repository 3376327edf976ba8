// Package induction turns cleaned trajectories into candidate skill
// definitions by prompting a language model and parsing the sampled
// responses.
package induction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/webloom/skillforge/pkg/logger"
)

// PromptArtifacts are the fixed prompt files sent ahead of the query.
type PromptArtifacts struct {
	SystemPath      string
	InstructionPath string
	FewShotPath     string
}

// Example is one cleaned trajectory presented as an in-context example.
type Example struct {
	TaskID      string
	Instruction string
	Actions     []string
}

// Request describes one induction batch.
type Request struct {
	// Template is the task family template heading the query.
	Template string
	// Examples are the cleaned trajectories to generalize from.
	Examples []Example
	// LibraryDoc documents the already-committed skills so the model does
	// not reinvent them.
	LibraryDoc string
	// Existing holds the committed skill names; candidates that only
	// redefine them are rejected.
	Existing map[string]struct{}
	// NumSamples is the number of independent responses to draw.
	NumSamples  int
	Temperature float64
	// OutDir receives the query and per-response artifacts.
	OutDir string
}

// Response is one parsed model sample.
type Response struct {
	Raw        string
	Candidates []Candidate
	Tests      []TestScript
}

// Engine drives prompt assembly, sampling, and response persistence.
type Engine struct {
	gen     Generator
	prompts PromptArtifacts
}

// NewEngine builds an induction engine over the given generator and prompt
// artifacts.
func NewEngine(gen Generator, prompts PromptArtifacts) *Engine {
	return &Engine{gen: gen, prompts: prompts}
}

// BuildQuery assembles the query message from the template and examples.
func BuildQuery(template string, examples []Example) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Task: %s\n", template)
	for i, ex := range examples {
		fmt.Fprintf(&sb, "\n### Example %d (%s): %s\n", i+1, ex.TaskID, ex.Instruction)
		sb.WriteString(strings.Join(ex.Actions, "\n"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n\n## Reusable Functions")
	return sb.String()
}

// Induce samples the requested number of responses, persisting each raw
// response to <outdir>/<i>.md before parsing. A sample whose generation
// fails after retries degrades to an empty response; the batch continues.
func (e *Engine) Induce(ctx context.Context, req Request) ([]Response, error) {
	log := logger.G(ctx)

	system, err := readArtifact(e.prompts.SystemPath)
	if err != nil {
		return nil, err
	}
	instruction, err := readArtifact(e.prompts.InstructionPath)
	if err != nil {
		return nil, err
	}
	fewShot, err := readArtifact(e.prompts.FewShotPath)
	if err != nil {
		return nil, err
	}

	query := BuildQuery(req.Template, req.Examples)
	if req.LibraryDoc != "" {
		query += "\n" + req.LibraryDoc
	}

	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}
	if err := os.WriteFile(filepath.Join(req.OutDir, "query.md"), []byte(query), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write query artifact")
	}

	samples := req.NumSamples
	if samples < 1 {
		samples = 1
	}

	userMessages := []string{instruction, fewShot, query}
	responses := make([]Response, 0, samples)
	for i := 0; i < samples; i++ {
		raw, err := e.gen.Generate(ctx, system, userMessages, req.Temperature)
		if err != nil {
			log.WithError(err).WithField("sample", i).Warn("generation exhausted retries, recording empty response")
			raw = ""
		}
		path := filepath.Join(req.OutDir, fmt.Sprintf("%d.md", i))
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			return nil, errors.Wrapf(err, "failed to persist response %d", i)
		}

		responses = append(responses, Response{
			Raw:        raw,
			Candidates: ExtractCandidates(raw, req.Existing),
			Tests:      ParseTests(raw, len(req.Examples)),
		})
	}
	return responses, nil
}

func readArtifact(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read prompt artifact %s", path)
	}
	return string(data), nil
}
