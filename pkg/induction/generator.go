package induction

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/webloom/skillforge/pkg/logger"
)

// Generator produces one sampled completion for an induction prompt.
type Generator interface {
	Generate(ctx context.Context, system string, userMessages []string, temperature float64) (string, error)
}

const (
	// Rate-limited generations retry with exponential backoff and jitter
	// before the attempt degrades to an empty response.
	retryAttempts  = 3
	retryBaseDelay = 30 * time.Second
	retryMaxJitter = 10 * time.Second

	defaultMaxTokens = 4096
)

// AnthropicGenerator samples completions from the Anthropic API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator builds a generator for the given model. The API
// credential must be present at startup; its absence is a configuration
// error, not a per-call condition.
func NewAnthropicGenerator(model string) (*AnthropicGenerator, error) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is not set")
	}
	if model == "" {
		model = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	return &AnthropicGenerator{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: defaultMaxTokens,
	}, nil
}

// Generate performs one sampled completion, retrying rate limits and server
// errors with exponential backoff plus jitter.
func (g *AnthropicGenerator) Generate(ctx context.Context, system string, userMessages []string, temperature float64) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(userMessages))
	for _, content := range userMessages {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(temperature),
		Messages:    messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var text string
	err := retry.Do(
		func() error {
			resp, err := g.client.Messages.New(ctx, params)
			if err != nil {
				return err
			}
			var sb strings.Builder
			for _, block := range resp.Content {
				if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
					sb.WriteString(variant.Text)
				}
			}
			text = sb.String()
			return nil
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(retryMaxJitter),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying generation")
		}),
	)
	if err != nil {
		return "", errors.Wrap(err, "generation failed")
	}
	return text, nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"too many requests",
		"overloaded",
		"connection refused",
		"connection reset",
		"service unavailable",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
