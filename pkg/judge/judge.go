// Package judge scores replayed trajectories with a model-based verdict when
// no oracle reward is available.
package judge

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/webloom/skillforge/pkg/logger"
	"github.com/webloom/skillforge/pkg/trajectory"
)

const systemPrompt = `You are an expert evaluator of web automation runs. Given a task
instruction and the trace of actions an agent took, decide whether the task was
completed. Think step by step, then end your answer with exactly one line:
Status: "success" or Status: "failure"`

var verdictRe = regexp.MustCompile(`(?i)status:\s*"?(success|failure)"?`)

// ChatCompleter is the slice of the OpenAI client the judge needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Judge evaluates task completion via chat completion.
type Judge struct {
	client ChatCompleter
	model  string
}

// New builds a judge backed by the OpenAI API. The credential must be present
// when the judge policy is selected.
func New(model string) (*Judge, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &Judge{client: openai.NewClient(apiKey), model: model}, nil
}

// NewWithClient builds a judge over an existing client, used by tests.
func NewWithClient(client ChatCompleter, model string) *Judge {
	if model == "" {
		model = openai.GPT4o
	}
	return &Judge{client: client, model: model}
}

// Evaluate returns the verdict for one replayed trajectory.
func (j *Judge) Evaluate(ctx context.Context, instruction string, traj trajectory.Trajectory) (bool, error) {
	req := openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: renderEpisode(instruction, traj)},
		},
	}

	resp, err := j.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return false, errors.Wrap(err, "judge completion failed")
	}
	if len(resp.Choices) == 0 {
		return false, errors.New("judge returned no choices")
	}

	content := resp.Choices[0].Message.Content
	matches := verdictRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		logger.G(ctx).WithField("content", content).Warn("judge verdict missing status line")
		return false, nil
	}
	verdict := strings.ToLower(matches[len(matches)-1][1])
	return verdict == "success", nil
}

func renderEpisode(instruction string, traj trajectory.Trajectory) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Instruction\n%s\n\n## Actions\n", instruction)
	for i, step := range traj.Steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step.Action)
		if step.Output != "" {
			fmt.Fprintf(&sb, "   output: %s\n", step.Output)
		}
		if step.Error != "" {
			fmt.Fprintf(&sb, "   error: %s\n", step.Error)
		}
	}
	return sb.String()
}
