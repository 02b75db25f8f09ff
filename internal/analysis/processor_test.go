package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MikeSquared-Agency/haven/internal/extractor"
	"github.com/MikeSquared-Agency/haven/internal/hermes"
	"github.com/MikeSquared-Agency/haven/internal/metrics"
	"github.com/MikeSquared-Agency/haven/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	raw   string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, transcript string) (extractor.Insight, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return extractor.ParseModelOutput(f.raw)
}

type fakeWriter struct {
	rows map[string]extractor.Analysis
	err  error
}

func (f *fakeWriter) UpsertSessionAnalysis(_ context.Context, sessionID string, userID uuid.UUID, a extractor.Analysis) (*store.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.rows == nil {
		f.rows = map[string]extractor.Analysis{}
	}
	f.rows[sessionID] = a
	return &store.Session{SessionID: sessionID, UserID: userID, Topic: a.Topic, AgentType: a.AgentType, InsightTags: a.InsightTags}, nil
}

type fakeSource struct {
	transcripts map[string]string
}

func (f *fakeSource) FetchTranscript(_ context.Context, sessionID string) (string, error) {
	t, ok := f.transcripts[sessionID]
	if !ok {
		return "", errors.New("failed to fetch session details: 404")
	}
	return t, nil
}

type publishedEvent struct {
	subject string
	data    any
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.events = append(f.events, publishedEvent{subject, data})
	return nil
}

func TestAnalyze_Success(t *testing.T) {
	ext := &fakeExtractor{raw: "```json\n{\"topic\":\"\",\"insight_tags\":[\"sleep\"]}\n```"}
	w := &fakeWriter{}
	pub := &fakePublisher{}
	m := metrics.New()
	p := New(ext, w, nil, pub, m, discardLogger())
	userID := uuid.New()

	res, err := p.Analyze(context.Background(), "sess-1", userID, "User: I can't sleep.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Session.Topic != extractor.DefaultTopic {
		t.Errorf("expected stored topic %q, got %q", extractor.DefaultTopic, res.Session.Topic)
	}
	if res.Insight["topic"] != "" {
		t.Errorf("expected returned insight to keep the model's own topic, got %v", res.Insight["topic"])
	}
	if string(w.rows["sess-1"].InsightTags) != `["sleep"]` {
		t.Errorf("unexpected stored tags %s", w.rows["sess-1"].InsightTags)
	}

	if len(pub.events) != 1 || pub.events[0].subject != hermes.SubjectSessionAnalyzed {
		t.Fatalf("expected one analyzed event, got %+v", pub.events)
	}
	evt := pub.events[0].data.(hermes.SessionAnalyzed)
	if evt.SessionID != "sess-1" || evt.UserID != userID.String() || evt.Topic != extractor.DefaultTopic {
		t.Errorf("unexpected event %+v", evt)
	}

	if got := testutil.ToFloat64(m.AnalysisCounter(metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("expected one success observation, got %v", got)
	}
}

func TestAnalyze_MissingInputMakesNoCalls(t *testing.T) {
	tests := []struct {
		name       string
		sessionID  string
		userID     uuid.UUID
		transcript string
	}{
		{"no transcript", "sess-1", uuid.New(), "   "},
		{"no session", "", uuid.New(), "hello"},
		{"no user", "sess-1", uuid.Nil, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &fakeExtractor{raw: `{}`}
			p := New(ext, &fakeWriter{}, nil, nil, nil, discardLogger())

			_, err := p.Analyze(context.Background(), tt.sessionID, tt.userID, tt.transcript)
			if !errors.Is(err, ErrMissingInput) {
				t.Fatalf("expected ErrMissingInput, got %v", err)
			}
			if ext.calls != 0 {
				t.Error("expected no model call")
			}
		})
	}
}

func TestAnalyze_InvalidOutputNotStored(t *testing.T) {
	ext := &fakeExtractor{raw: "I'm sorry, I can't help with that."}
	w := &fakeWriter{}
	m := metrics.New()
	p := New(ext, w, nil, nil, m, discardLogger())

	_, err := p.Analyze(context.Background(), "sess-1", uuid.New(), "hello")
	var invalid *extractor.InvalidOutputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidOutputError, got %v", err)
	}
	if invalid.Raw != "I'm sorry, I can't help with that." {
		t.Errorf("expected raw text preserved, got %q", invalid.Raw)
	}
	if len(w.rows) != 0 {
		t.Error("expected nothing stored")
	}
	if got := testutil.ToFloat64(m.AnalysisCounter(metrics.OutcomeInvalidOutput)); got != 1 {
		t.Errorf("expected one invalid_output observation, got %v", got)
	}
}

func TestAnalyze_StorageFailure(t *testing.T) {
	p := New(&fakeExtractor{raw: `{"topic":"x"}`}, &fakeWriter{err: errors.New("duplicate key")}, nil, nil, nil, discardLogger())

	_, err := p.Analyze(context.Background(), "sess-1", uuid.New(), "hello")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if err.Error() != "duplicate key" {
		t.Errorf("expected storage message passed through, got %q", err.Error())
	}
}

func TestAnalyze_SecondRunOverwrites(t *testing.T) {
	ext := &fakeExtractor{raw: `{"topic":"First"}`}
	w := &fakeWriter{}
	p := New(ext, w, nil, nil, nil, discardLogger())
	userID := uuid.New()

	if _, err := p.Analyze(context.Background(), "sess-1", userID, "one"); err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	ext.raw = `{"topic":"Second"}`
	if _, err := p.Analyze(context.Background(), "sess-1", userID, "two"); err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if len(w.rows) != 1 || w.rows["sess-1"].Topic != "Second" {
		t.Errorf("expected last write to win, got %+v", w.rows)
	}
}

func TestHandleSessionCompleted(t *testing.T) {
	src := &fakeSource{transcripts: map[string]string{"tt-9": "User: hi"}}
	w := &fakeWriter{}
	p := New(&fakeExtractor{raw: `{"topic":"Greeting"}`}, w, src, nil, nil, discardLogger())

	data, _ := json.Marshal(hermes.SessionCompleted{SessionID: "tt-9", UserID: uuid.NewString()})
	p.HandleSessionCompleted(hermes.SubjectSessionCompleted, data)

	if w.rows["tt-9"].Topic != "Greeting" {
		t.Errorf("expected session analyzed from the source, got %+v", w.rows)
	}

	// Unknown session and malformed payloads are logged, not stored.
	data, _ = json.Marshal(hermes.SessionCompleted{SessionID: "missing", UserID: uuid.NewString()})
	p.HandleSessionCompleted(hermes.SubjectSessionCompleted, data)
	p.HandleSessionCompleted(hermes.SubjectSessionCompleted, []byte(`{`))
	if len(w.rows) != 1 {
		t.Errorf("expected only the first session stored, got %d", len(w.rows))
	}
}

func TestAnalyzeFromSource_NoSource(t *testing.T) {
	p := New(&fakeExtractor{}, &fakeWriter{}, nil, nil, nil, discardLogger())
	if _, err := p.AnalyzeFromSource(context.Background(), "s", uuid.New()); err == nil {
		t.Error("expected error without a transcript source")
	}
}
