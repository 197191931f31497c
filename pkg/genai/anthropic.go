package genai

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicOption configures the Anthropic generator.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicModel overrides the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *AnthropicClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAnthropicRateLimit paces requests to at most rpm per minute.
func WithAnthropicRateLimit(rpm int) AnthropicOption {
	return func(c *AnthropicClient) {
		if rpm > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
		}
	}
}

// AnthropicClient generates completions via the official SDK, paced by a
// client-side rate limiter.
type AnthropicClient struct {
	client  sdk.Client
	model   string
	limiter *rate.Limiter
}

// NewAnthropic creates an Anthropic-backed generator.
func NewAnthropic(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		client:  sdk.NewClient(option.WithAPIKey(apiKey)),
		model:   defaultAnthropicModel,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate runs one message turn and returns the concatenated text blocks.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "anthropic: rate limiter")
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxOutputTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", &APIError{
				Provider:   "anthropic",
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Error(),
			}
		}
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}

	zap.L().Debug("anthropic: completion",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.String("stop_reason", string(msg.StopReason)),
	)
	return out, nil
}
