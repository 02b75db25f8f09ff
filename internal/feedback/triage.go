// Package feedback stores user feedback and runs the Slack triage loop
// around it.
package feedback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/slack"
	"github.com/MikeSquared-Agency/haven/internal/store"
)

type Store interface {
	CreateFeedback(ctx context.Context, userID uuid.UUID, kind, message string) (*store.Feedback, error)
	MarkFeedbackHandled(ctx context.Context, id uuid.UUID) error
}

type Notifier interface {
	PostFeedback(ctx context.Context, fb slack.FeedbackMessage) (string, error)
	PostThread(ctx context.Context, threadTS, text string) error
}

type Triage struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]uuid.UUID // keyed by Slack message ts
}

// NewTriage returns a triage loop over s. A nil notifier stores feedback
// without posting it anywhere.
func NewTriage(s Store, n Notifier, logger *slog.Logger) *Triage {
	return &Triage{
		store:    s,
		notifier: n,
		logger:   logger,
		pending:  make(map[string]uuid.UUID),
	}
}

// Submit stores the feedback and posts it to Slack. Only the store write
// can fail the call.
func (t *Triage) Submit(ctx context.Context, userID uuid.UUID, kind, message string) (*store.Feedback, error) {
	fb, err := t.store.CreateFeedback(ctx, userID, kind, message)
	if err != nil {
		return nil, err
	}
	if t.notifier == nil {
		return fb, nil
	}

	ts, err := t.notifier.PostFeedback(ctx, slack.FeedbackMessage{
		ID:      fb.ID.String(),
		UserID:  fb.UserID.String(),
		Type:    fb.Type,
		Message: fb.Message,
		SentAt:  fb.CreatedAt,
	})
	if err != nil {
		t.logger.Warn("failed to post feedback to slack", "feedback_id", fb.ID, "error", err)
		return fb, nil
	}

	t.mu.Lock()
	t.pending[ts] = fb.ID
	t.mu.Unlock()
	return fb, nil
}

// HandleReaction processes Slack reactions from slack-forwarder via NATS.
func (t *Triage) HandleReaction(subject string, data []byte) {
	evt, err := slack.ParseReactionEvent(data)
	if err != nil {
		t.logger.Error("failed to parse reaction", "error", err)
		return
	}
	if slack.ParseReaction(evt.Reaction) != slack.VerdictHandled {
		return
	}

	t.mu.Lock()
	id, ok := t.pending[evt.MessageTS]
	if ok {
		delete(t.pending, evt.MessageTS)
	}
	t.mu.Unlock()
	if !ok {
		return // not a message we're tracking
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := t.store.MarkFeedbackHandled(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			// Keep it tracked so another reaction can retry.
			t.mu.Lock()
			t.pending[evt.MessageTS] = id
			t.mu.Unlock()
		}
		t.logger.Error("failed to mark feedback handled", "feedback_id", id, "error", err)
		return
	}
	t.logger.Info("feedback handled", "feedback_id", id, "by", evt.UserID)

	if err := t.notifier.PostThread(ctx, evt.MessageTS, "Marked as handled by <@"+evt.UserID+">"); err != nil {
		t.logger.Warn("failed to post handled thread", "error", err)
	}
}

// Pending reports how many posted messages still await a reaction.
func (t *Triage) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
