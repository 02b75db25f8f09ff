package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/analysis"
	"github.com/MikeSquared-Agency/haven/internal/auth"
	"github.com/MikeSquared-Agency/haven/internal/extractor"
	"github.com/MikeSquared-Agency/haven/internal/progress"
	"github.com/MikeSquared-Agency/haven/internal/store"
	"github.com/MikeSquared-Agency/haven/internal/toughtongue"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errDB = errors.New("connection refused")

// fakeStore keeps rows in memory. failing makes every call return errDB.
type fakeStore struct {
	failing bool

	sessions  map[string]store.Session
	moods     []store.MoodEntry
	moodInput []store.MoodInput
	journals  []store.JournalEntry
	exercises []store.Exercise
	logs      []store.ExerciseLog
	insights  []store.ProgressInsight
	profile   *store.Profile
	settings  *store.Settings
	phones    map[uuid.UUID]string
	feedback  []store.Feedback
	totals    store.ActivityTotals
	labels    []string
	since     string
}

func (f *fakeStore) err() error {
	if f.failing {
		return errDB
	}
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return f.err() }

func (f *fakeStore) GetSession(_ context.Context, userID uuid.UUID, sessionID string) (*store.Session, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) ListSessions(_ context.Context, userID uuid.UUID) ([]store.Session, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []store.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertMood(_ context.Context, in store.MoodInput) (*store.MoodEntry, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	f.moodInput = append(f.moodInput, in)
	return &store.MoodEntry{ID: uuid.New(), UserID: in.UserID, Mood: in.Mood, Date: in.Date}, nil
}

func (f *fakeStore) ListMoodsSince(_ context.Context, _ uuid.UUID, since string, _ bool) ([]store.MoodEntry, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	f.since = since
	return f.moods, nil
}

func (f *fakeStore) ListAllMoodLabels(context.Context, uuid.UUID) ([]string, error) {
	return f.labels, f.err()
}

func (f *fakeStore) CreateJournal(_ context.Context, userID uuid.UUID, content string, linked *uuid.UUID) (*store.JournalEntry, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	e := store.JournalEntry{ID: uuid.New(), UserID: userID, Content: content, LinkedSessionID: linked, CreatedAt: time.Now()}
	f.journals = append(f.journals, e)
	return &e, nil
}

func (f *fakeStore) GetJournal(_ context.Context, userID, id uuid.UUID) (*store.JournalEntry, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	for _, e := range f.journals {
		if e.ID == id && e.UserID == userID {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListJournals(context.Context, uuid.UUID) ([]store.JournalEntry, error) {
	return f.journals, f.err()
}

func (f *fakeStore) ListExercises(context.Context) ([]store.Exercise, error) {
	return f.exercises, f.err()
}

func (f *fakeStore) GetExercise(_ context.Context, id uuid.UUID) (*store.Exercise, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	for _, e := range f.exercises {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) LogExercise(_ context.Context, userID, exerciseID uuid.UUID) (*store.ExerciseLog, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	l := store.ExerciseLog{ID: uuid.New(), UserID: userID, ExerciseID: exerciseID, CompletedAt: time.Now()}
	f.logs = append(f.logs, l)
	return &l, nil
}

func (f *fakeStore) CreateProgressInsight(_ context.Context, userID uuid.UUID, source, summary string, tags []string) (*store.ProgressInsight, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	pi := store.ProgressInsight{ID: uuid.New(), UserID: userID, Source: source, Summary: summary, Tags: tags}
	f.insights = append(f.insights, pi)
	return &pi, nil
}

func (f *fakeStore) GetProfile(context.Context, uuid.UUID) (*store.Profile, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	if f.profile == nil {
		return nil, store.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeStore) UpdatePreferences(context.Context, uuid.UUID, store.Preferences) error {
	return f.err()
}

func (f *fakeStore) UpsertPhone(_ context.Context, userID uuid.UUID, phone, _ string) error {
	if err := f.err(); err != nil {
		return err
	}
	if f.phones == nil {
		f.phones = map[uuid.UUID]string{}
	}
	f.phones[userID] = phone
	return nil
}

func (f *fakeStore) GetSettings(context.Context, uuid.UUID) (*store.Settings, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	if f.settings == nil {
		return nil, store.ErrNotFound
	}
	return f.settings, nil
}

func (f *fakeStore) UpdateSettings(_ context.Context, st store.Settings) error {
	if err := f.err(); err != nil {
		return err
	}
	f.settings = &st
	return nil
}

func (f *fakeStore) CountAll(context.Context, uuid.UUID) (store.ActivityTotals, error) {
	return f.totals, f.err()
}

func (f *fakeStore) ListFeedback(context.Context, uuid.UUID) ([]store.Feedback, error) {
	return f.feedback, f.err()
}

type fakeAnalyzer struct {
	raw       string
	err       error
	calls     int
	sessionID string
	userID    uuid.UUID
}

func (f *fakeAnalyzer) Analyze(_ context.Context, sessionID string, userID uuid.UUID, transcript string) (*analysis.Result, error) {
	f.calls++
	f.sessionID, f.userID = sessionID, userID
	if f.err != nil {
		return nil, f.err
	}
	in, err := extractor.ParseModelOutput(f.raw)
	if err != nil {
		return nil, err
	}
	return &analysis.Result{Insight: in}, nil
}

func (f *fakeAnalyzer) AnalyzeFromSource(ctx context.Context, sessionID string, userID uuid.UUID) (*analysis.Result, error) {
	return f.Analyze(ctx, sessionID, userID, "from source")
}

type fakeSource struct {
	bundle *toughtongue.Bundle
	err    error
}

func (f *fakeSource) FetchBundle(context.Context, string) (*toughtongue.Bundle, error) {
	return f.bundle, f.err
}

type fakeProgress struct {
	summary *progress.Summary
	report  *progress.BadgeReport
	err     error
}

func (f *fakeProgress) Summary(context.Context, uuid.UUID, time.Time) (*progress.Summary, error) {
	return f.summary, f.err
}

func (f *fakeProgress) Badges(context.Context, uuid.UUID, time.Time) (*progress.BadgeReport, error) {
	return f.report, f.err
}

type fakeFeedback struct {
	err       error
	submitted []string
}

func (f *fakeFeedback) Submit(_ context.Context, userID uuid.UUID, kind, message string) (*store.Feedback, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, kind+":"+message)
	return &store.Feedback{ID: uuid.New(), UserID: userID, Type: kind, Message: message}, nil
}

type fakePublisher struct {
	subjects []string
}

func (f *fakePublisher) Publish(subject string, _ any) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

// denyAfter allows the first n calls.
type denyAfter struct {
	n    int
	seen int
}

func (d *denyAfter) Allow(context.Context, string) (bool, error) {
	d.seen++
	return d.seen <= d.n, nil
}

type testEnv struct {
	srv      *Server
	store    *fakeStore
	analyzer *fakeAnalyzer
	source   *fakeSource
	progress *fakeProgress
	feedback *fakeFeedback
	events   *fakePublisher
	verifier *auth.Verifier
	now      time.Time
}

func newTestEnv(t *testing.T, opts Options, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    &fakeStore{sessions: map[string]store.Session{}},
		analyzer: &fakeAnalyzer{raw: `{"topic":"Work stress"}`},
		source:   &fakeSource{},
		progress: &fakeProgress{},
		feedback: &fakeFeedback{},
		events:   &fakePublisher{},
		verifier: auth.NewVerifier(testSecret),
		now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	deps := Deps{
		Store:    env.store,
		Analyzer: env.analyzer,
		Source:   env.source,
		Progress: env.progress,
		Feedback: env.feedback,
		Events:   env.events,
		Verifier: env.verifier,
		Logger:   discardLogger(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	env.srv = NewServer(opts, deps)
	env.srv.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := e.verifier.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// do sends a request. body may be a string, which is sent verbatim, or any
// value, which is JSON encoded.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	wantStatus(t, w, status)
	if got := decodeBody(t, w)["error"]; got != msg {
		t.Errorf("expected error %q, got %v", msg, got)
	}
}
