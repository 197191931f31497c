// Package genai abstracts the text-generation backends behind a single
// Generator interface. The pipeline treats a generator as an opaque,
// possibly adversarial text source; everything provider-specific lives here.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator produces one text completion for one prompt. Implementations
// must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// APIError is a non-2xx response from a generator backend.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimit reports whether an error is a rate-limit rejection, from any
// backend.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit")
}
