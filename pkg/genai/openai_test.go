package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatGenerate(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": `{"a":"b"}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewChat("test-key",
		WithChatBaseURL(srv.URL),
		WithChatModel("local-model"),
		WithChatRateLimit(6000),
	)

	out, err := c.Generate(context.Background(), "extract things", 512)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, out)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "local-model", gotReq.Model)
	require.NotNil(t, gotReq.MaxTokens)
	assert.Equal(t, 512, *gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestChatGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewChat("k", WithChatBaseURL(srv.URL), WithChatRateLimit(6000))
	_, err := c.Generate(context.Background(), "p", 100)

	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.StatusCode)
	assert.True(t, IsRateLimit(err))
}

func TestChatGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewChat("k", WithChatBaseURL(srv.URL), WithChatRateLimit(6000))
	_, err := c.Generate(context.Background(), "p", 100)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 502, apiErr.StatusCode)
	assert.False(t, IsRateLimit(err))
}

func TestChatGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "cmpl-2", "choices": []}`))
	}))
	defer srv.Close()

	c := NewChat("k", WithChatBaseURL(srv.URL), WithChatRateLimit(6000))
	_, err := c.Generate(context.Background(), "p", 100)
	assert.Error(t, err)
}

func TestIsRateLimit(t *testing.T) {
	assert.False(t, IsRateLimit(nil))
	assert.False(t, IsRateLimit(errors.New("boom")))
	assert.True(t, IsRateLimit(errors.New("anthropic: rate_limit_error")))
	assert.True(t, IsRateLimit(&APIError{Provider: "chat", StatusCode: 429}))
	assert.False(t, IsRateLimit(&APIError{Provider: "chat", StatusCode: 500}))
}
