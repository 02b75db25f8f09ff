package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/slack"
	"github.com/MikeSquared-Agency/haven/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	created   []store.Feedback
	handled   []uuid.UUID
	markErr   error
	createErr error
}

func (f *fakeStore) CreateFeedback(_ context.Context, userID uuid.UUID, kind, message string) (*store.Feedback, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	fb := store.Feedback{ID: uuid.New(), UserID: userID, Type: kind, Message: message, CreatedAt: time.Now()}
	f.created = append(f.created, fb)
	return &fb, nil
}

func (f *fakeStore) MarkFeedbackHandled(_ context.Context, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.handled = append(f.handled, id)
	return nil
}

type fakeNotifier struct {
	ts      string
	postErr error
	posted  []slack.FeedbackMessage
	threads []string
}

func (f *fakeNotifier) PostFeedback(_ context.Context, fb slack.FeedbackMessage) (string, error) {
	if f.postErr != nil {
		return "", f.postErr
	}
	f.posted = append(f.posted, fb)
	return f.ts, nil
}

func (f *fakeNotifier) PostThread(_ context.Context, threadTS, text string) error {
	f.threads = append(f.threads, threadTS)
	return nil
}

func reaction(emoji, ts string) []byte {
	data, _ := json.Marshal(map[string]any{
		"metadata": map[string]string{
			"text":       emoji,
			"user_id":    "U1",
			"channel_id": "C1",
			"message_ts": ts,
		},
	})
	return data
}

func TestSubmit_PostsAndTracks(t *testing.T) {
	s := &fakeStore{}
	n := &fakeNotifier{ts: "100.1"}
	tr := NewTriage(s, n, discardLogger())

	fb, err := tr.Submit(context.Background(), uuid.New(), "bug", "broken chart")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.posted) != 1 || n.posted[0].ID != fb.ID.String() {
		t.Fatalf("expected feedback posted, got %+v", n.posted)
	}
	if tr.Pending() != 1 {
		t.Errorf("expected 1 pending message, got %d", tr.Pending())
	}
}

func TestSubmit_SlackFailureStillStores(t *testing.T) {
	s := &fakeStore{}
	tr := NewTriage(s, &fakeNotifier{postErr: errors.New("slack down")}, discardLogger())

	if _, err := tr.Submit(context.Background(), uuid.New(), "idea", "dark mode"); err != nil {
		t.Fatalf("expected slack failure to be swallowed, got %v", err)
	}
	if len(s.created) != 1 {
		t.Error("expected feedback stored")
	}
	if tr.Pending() != 0 {
		t.Error("expected nothing tracked")
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	n := &fakeNotifier{ts: "1.0"}
	tr := NewTriage(&fakeStore{createErr: errors.New("db down")}, n, discardLogger())

	if _, err := tr.Submit(context.Background(), uuid.New(), "bug", "x"); err == nil {
		t.Fatal("expected store error")
	}
	if len(n.posted) != 0 {
		t.Error("expected nothing posted")
	}
}

func TestSubmit_NoNotifier(t *testing.T) {
	s := &fakeStore{}
	tr := NewTriage(s, nil, discardLogger())

	if _, err := tr.Submit(context.Background(), uuid.New(), "bug", "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.created) != 1 {
		t.Error("expected feedback stored")
	}
}

func TestHandleReaction(t *testing.T) {
	s := &fakeStore{}
	n := &fakeNotifier{ts: "100.1"}
	tr := NewTriage(s, n, discardLogger())
	fb, _ := tr.Submit(context.Background(), uuid.New(), "bug", "broken chart")

	// Unrelated emoji and untracked messages are ignored.
	tr.HandleReaction("swarm.slack.reaction", reaction(":heart:", "100.1"))
	tr.HandleReaction("swarm.slack.reaction", reaction(":white_check_mark:", "999.9"))
	tr.HandleReaction("swarm.slack.reaction", []byte("not json"))
	if len(s.handled) != 0 {
		t.Fatalf("expected nothing handled yet, got %v", s.handled)
	}

	tr.HandleReaction("swarm.slack.reaction", reaction(":white_check_mark:", "100.1"))
	if len(s.handled) != 1 || s.handled[0] != fb.ID {
		t.Fatalf("expected feedback %s handled, got %v", fb.ID, s.handled)
	}
	if len(n.threads) != 1 || n.threads[0] != "100.1" {
		t.Errorf("expected one thread reply, got %v", n.threads)
	}
	if tr.Pending() != 0 {
		t.Error("expected message no longer tracked")
	}

	// A second check mark is a no-op.
	tr.HandleReaction("swarm.slack.reaction", reaction(":white_check_mark:", "100.1"))
	if len(s.handled) != 1 {
		t.Error("expected handled once")
	}
}

func TestHandleReaction_StoreFailureKeepsTracking(t *testing.T) {
	s := &fakeStore{}
	tr := NewTriage(s, &fakeNotifier{ts: "5.5"}, discardLogger())
	if _, err := tr.Submit(context.Background(), uuid.New(), "bug", "x"); err != nil {
		t.Fatal(err)
	}

	s.markErr = errors.New("db down")
	tr.HandleReaction("swarm.slack.reaction", reaction("heavy_check_mark", "5.5"))
	if tr.Pending() != 1 {
		t.Fatal("expected message to stay tracked after a store failure")
	}

	s.markErr = nil
	tr.HandleReaction("swarm.slack.reaction", reaction("heavy_check_mark", "5.5"))
	if len(s.handled) != 1 {
		t.Error("expected retry to succeed")
	}
}
