// Package llm wraps the generative-text providers used for session analysis.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer turns a prompt into a single unstructured text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var ErrEmptyCompletion = errors.New("empty response content")

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s api error %d: %s: %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s api error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Options selects and configures a provider.
type Options struct {
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// New returns the completer for opts.Provider.
func New(opts Options) (Completer, error) {
	switch opts.Provider {
	case "", "gemini":
		if opts.GeminiAPIKey == "" {
			return nil, errors.New("gemini api key is required")
		}
		return NewGeminiClient(opts.GeminiAPIKey, opts.GeminiModel), nil
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, errors.New("openai api key is required")
		}
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIModel, opts.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
