// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm talks to the language model that plans, analyzes, and
// synthesizes research runs. Completions are plain text; Structured decodes
// them into a typed value and validates it.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/secrets"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer returns the model's text reply to a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the completer selected by cfg.Provider. A missing API key is a
// ConfigurationError naming the variable the operator must set.
func New(cfg types.AIConfig, client *http.Client) (Completer, error) {
	switch cfg.Provider {
	case types.AIOpenAI, "":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, &types.ConfigurationError{Variable: secrets.OpenAI.Env, Component: "deep research"}
		}
		return NewOpenAI(cfg, client), nil
	case types.AIAnthropic:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, &types.ConfigurationError{Variable: secrets.Anthropic.Env, Component: "deep research"}
		}
		return NewClaude(cfg, client), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q (want openai or anthropic)", cfg.Provider)
	}
}

// Validatable is a decoded model reply that can check its own constraints.
type Validatable interface {
	Validate() error
}

// SchemaError reports a reply that could not be decoded or that violated its
// schema. It is never retried.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "model output does not match schema: " + strings.Join(e.Violations, "; ")
}

// backoffBase is the base duration for retry backoff. Tests override it.
var backoffBase = time.Second

// Structured completes req and decodes the reply into T. Transport errors are
// retried up to maxRetries times with exponential backoff. Decode and
// validation failures return a *SchemaError immediately.
func Structured[T Validatable](ctx context.Context, c Completer, req Request, maxRetries int) (T, error) {
	var zero T
	text, err := completeWithRetry(ctx, c, req, maxRetries)
	if err != nil {
		return zero, err
	}

	raw, ok := extractJSON(text)
	if !ok {
		return zero, &SchemaError{Violations: []string{"no JSON object in reply"}}
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero, &SchemaError{Violations: []string{"decoding reply: " + err.Error()}}
	}
	if err := out.Validate(); err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return zero, se
		}
		return zero, &SchemaError{Violations: []string{err.Error()}}
	}
	return out, nil
}

func completeWithRetry(ctx context.Context, c Completer, req Request, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := c.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// extractJSON strips Markdown code fences and returns the outermost JSON
// object in text.
func extractJSON(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
