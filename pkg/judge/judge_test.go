package judge

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webloom/skillforge/pkg/trajectory"
)

type fakeCompleter struct {
	content string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestEvaluate(t *testing.T) {
	traj := trajectory.Trajectory{
		Instruction: "Find the cheapest usb hub",
		Steps: []trajectory.Step{
			{Action: `search_widget("567", "usb hub")`, Output: "→ 4"},
			{Action: `send_msg_to_user("The cheapest is $12.99")`},
		},
	}

	t.Run("success verdict", func(t *testing.T) {
		fake := &fakeCompleter{content: "The agent found the item.\nStatus: \"success\""}
		ok, err := NewWithClient(fake, "").Evaluate(context.Background(), traj.Instruction, traj)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, openai.GPT4o, fake.lastReq.Model)

		prompt := fake.lastReq.Messages[1].Content
		assert.Contains(t, prompt, "Find the cheapest usb hub")
		assert.Contains(t, prompt, `search_widget("567", "usb hub")`)
	})

	t.Run("failure verdict", func(t *testing.T) {
		fake := &fakeCompleter{content: "It never confirmed the price.\nStatus: failure"}
		ok, err := NewWithClient(fake, "").Evaluate(context.Background(), traj.Instruction, traj)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("last status line wins", func(t *testing.T) {
		fake := &fakeCompleter{content: "Status: success is tempting, but no.\nStatus: failure"}
		ok, err := NewWithClient(fake, "").Evaluate(context.Background(), traj.Instruction, traj)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing status defaults to failure without error", func(t *testing.T) {
		fake := &fakeCompleter{content: "I am not sure."}
		ok, err := NewWithClient(fake, "").Evaluate(context.Background(), traj.Instruction, traj)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("transport error propagates", func(t *testing.T) {
		fake := &fakeCompleter{err: errors.New("connection refused")}
		_, err := NewWithClient(fake, "").Evaluate(context.Background(), traj.Instruction, traj)
		assert.Error(t, err)
	})
}
