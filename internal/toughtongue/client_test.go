package toughtongue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/haven/internal/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memCache struct {
	values map[string][]byte
}

func (m *memCache) GetJSON(_ context.Context, key string, dest any) error {
	v, ok := m.values[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(v, dest)
}

func (m *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.values == nil {
		m.values = map[string][]byte{}
	}
	m.values[key] = b
	return nil
}

func (m *memCache) Incr(context.Context, string, time.Duration) (int64, error) { return 0, nil }

func newTestAPI(t *testing.T, hits map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tt-token" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("accept") != "application/json" {
			t.Errorf("expected accept application/json, got %q", r.Header.Get("accept"))
		}
		hits[r.URL.Path]++

		switch r.URL.Path {
		case "/scenarios":
			w.Write([]byte(`[{"id":"scn-1","name":"Anxiety Coach"}]`))
		case "/sessions":
			if r.URL.Query().Get("scenario_id") != "scn-1" {
				t.Errorf("expected scenario_id scn-1, got %q", r.URL.Query().Get("scenario_id"))
			}
			w.Write([]byte(`[{"id":"sess-1"},{"id":"sess-2"}]`))
		case "/sessions/sess-2":
			w.Write([]byte(`{"id":"sess-2","transcript_content":"User: hi\nCoach: hello"}`))
		case "/sessions/empty":
			w.Write([]byte(`{"id":"empty"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		}
	}))
}

func TestFetchBundle(t *testing.T) {
	hits := map[string]int{}
	server := newTestAPI(t, hits)
	defer server.Close()

	c := NewClient("tt-token", server.URL+"/", "scn-1", nil, 0, discardLogger())

	b, err := c.FetchBundle(context.Background(), "sess-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b.Scenario) != `[{"id":"scn-1","name":"Anxiety Coach"}]` {
		t.Errorf("unexpected scenario payload %s", b.Scenario)
	}
	if string(b.Sessions) != `[{"id":"sess-1"},{"id":"sess-2"}]` {
		t.Errorf("unexpected sessions payload %s", b.Sessions)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(out, &decoded)
	for _, key := range []string{"scenario", "sessions", "latestSession"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in bundle JSON", key)
		}
	}
	if hits["/scenarios"] != 1 || hits["/sessions"] != 1 || hits["/sessions/sess-2"] != 1 {
		t.Errorf("expected one call per endpoint, got %v", hits)
	}
}

func TestFetchBundle_StopsOnUpstreamError(t *testing.T) {
	hits := map[string]int{}
	server := newTestAPI(t, hits)
	defer server.Close()

	c := NewClient("tt-token", server.URL, "scn-1", nil, 0, discardLogger())

	_, err := c.FetchBundle(context.Background(), "missing")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Op != "session details" {
		t.Errorf("unexpected status error %+v", se)
	}
	if se.Error() != "failed to fetch session details: 404" {
		t.Errorf("unexpected message %q", se.Error())
	}
}

func TestGet_RejectsOversizedBody(t *testing.T) {
	hits := map[string]int{}
	server := newTestAPI(t, hits)
	defer server.Close()

	defer func(n int64) { maxResponseBytes = n }(maxResponseBytes)
	maxResponseBytes = 16

	c := NewClient("tt-token", server.URL, "scn-1", nil, 0, discardLogger())

	_, err := c.FetchTranscript(context.Background(), "sess-2")
	if err == nil || !strings.Contains(err.Error(), "exceeds 16 bytes") {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestListScenarios_Cached(t *testing.T) {
	hits := map[string]int{}
	server := newTestAPI(t, hits)
	defer server.Close()

	mc := &memCache{}
	c := NewClient("tt-token", server.URL, "scn-1", mc, time.Minute, discardLogger())

	for i := 0; i < 3; i++ {
		if _, err := c.ListScenarios(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if hits["/scenarios"] != 1 {
		t.Errorf("expected a single upstream call, got %d", hits["/scenarios"])
	}
}

func TestFetchTranscript(t *testing.T) {
	hits := map[string]int{}
	server := newTestAPI(t, hits)
	defer server.Close()

	c := NewClient("tt-token", server.URL, "scn-1", nil, 0, discardLogger())

	got, err := c.FetchTranscript(context.Background(), "sess-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "User: hi\nCoach: hello" {
		t.Errorf("unexpected transcript %q", got)
	}

	if _, err := c.FetchTranscript(context.Background(), "empty"); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("expected ErrNoTranscript, got %v", err)
	}
}

func TestTranscript_Fallbacks(t *testing.T) {
	got, err := Transcript(json.RawMessage(`{"transcript":"fallback text"}`))
	if err != nil || got != "fallback text" {
		t.Errorf("expected fallback field, got %q %v", got, err)
	}
	if _, err := Transcript(json.RawMessage(`not json`)); err == nil {
		t.Error("expected parse error")
	}
}
