package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body["model"] != "test-model" {
			t.Errorf("expected model test-model, got %v", body["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "resp_1",
			"object":     "response",
			"created_at": 1700000000,
			"model":      "test-model",
			"status":     "completed",
			"output": []map[string]any{
				{
					"type":   "message",
					"id":     "msg_1",
					"role":   "assistant",
					"status": "completed",
					"content": []map[string]any{
						{"type": "output_text", "text": `{"topic":"Sleep"}`, "annotations": []any{}},
					},
				},
			},
		})
	}))
	defer server.Close()

	c := NewOpenAIClient("sk-test", "test-model", server.URL+"/")

	got, err := c.Complete(context.Background(), "analyse this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"topic":"Sleep"}` {
		t.Errorf("unexpected completion %q", got)
	}
}

func TestOpenAIComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "bad key",
				"type":    "invalid_request_error",
				"code":    "invalid_api_key",
			},
		})
	}))
	defer server.Close()

	c := NewOpenAIClient("sk-bad", "test-model", server.URL+"/")

	_, err := c.Complete(context.Background(), "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.StatusCode)
	}
}
