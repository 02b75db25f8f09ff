package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	jsonFence  = "```json"
	plainFence = "```"
)

// InvalidOutputError means the model's text was not a JSON object even after
// fence stripping. Raw is the untouched completion.
type InvalidOutputError struct {
	Raw string
	Err error
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("invalid model output: %v", e.Err)
}

func (e *InvalidOutputError) Unwrap() error { return e.Err }

// StripFences removes an optional markdown code fence around the completion.
// A ```json opener wins over a bare ``` opener; the closing fence is only
// removed when it ends the text.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(cleaned, jsonFence):
		cleaned = strings.TrimPrefix(cleaned, jsonFence)
		cleaned = strings.TrimSuffix(cleaned, plainFence)
		cleaned = strings.TrimSpace(cleaned)
	case strings.HasPrefix(cleaned, plainFence):
		cleaned = strings.TrimPrefix(cleaned, plainFence)
		cleaned = strings.TrimSuffix(cleaned, plainFence)
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// ParseModelOutput strips fences and decodes the completion into an Insight.
// Numbers are kept as json.Number so they survive a round trip unchanged.
func ParseModelOutput(raw string) (Insight, error) {
	cleaned := StripFences(raw)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &InvalidOutputError{Raw: raw, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &InvalidOutputError{Raw: raw, Err: errors.New("trailing data after JSON value")}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &InvalidOutputError{Raw: raw, Err: fmt.Errorf("expected a JSON object, got %s", kindOf(v))}
	}
	return Insight(obj), nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
