package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultChatBaseURL = "https://api.openai.com/v1"
	defaultChatModel   = "gpt-4o"
)

// ChatOption configures the chat-completions generator.
type ChatOption func(*ChatClient)

// WithChatBaseURL points the client at an OpenAI-compatible endpoint.
func WithChatBaseURL(url string) ChatOption {
	return func(c *ChatClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithChatModel overrides the default model.
func WithChatModel(model string) ChatOption {
	return func(c *ChatClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithChatRateLimit paces requests to at most rpm per minute.
func WithChatRateLimit(rpm int) ChatOption {
	return func(c *ChatClient) {
		if rpm > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
		}
	}
}

// WithChatHTTPClient overrides the default http.Client.
func WithChatHTTPClient(hc *http.Client) ChatOption {
	return func(c *ChatClient) {
		c.http = hc
	}
}

// ChatClient generates completions against any OpenAI-compatible
// chat-completions endpoint.
type ChatClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewChat creates a chat-completions generator.
func NewChat(apiKey string, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		apiKey:  apiKey,
		baseURL: defaultChatBaseURL,
		model:   defaultChatModel,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate runs one chat completion and returns the first choice's content.
func (c *ChatClient) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "chat: rate limiter")
	}

	req := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	if maxOutputTokens > 0 {
		req.MaxTokens = &maxOutputTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", eris.Wrap(err, "chat: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "chat: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "chat: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "chat: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			Provider:   "chat",
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "chat: unmarshal response")
	}
	if len(result.Choices) == 0 {
		return "", eris.New("chat: response has no choices")
	}
	return result.Choices[0].Message.Content, nil
}
