package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SubjectSessionCompleted is published by the client when a recorded
	// session ends and is ready for analysis.
	SubjectSessionCompleted = "haven.session.completed"
	// SubjectSessionAnalyzed follows every stored analysis.
	SubjectSessionAnalyzed = "haven.session.analyzed"
	// SubjectMoodRecorded follows every mood upsert.
	SubjectMoodRecorded = "haven.mood.recorded"
	// SubjectBadgeUnlockRequested asks the badge writer to record an unlock.
	SubjectBadgeUnlockRequested = "haven.badge.unlock.requested"
)

// SessionCompleted names a session whose transcript can now be fetched.
type SessionCompleted struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// ParseSessionCompleted decodes and checks a completion event.
func ParseSessionCompleted(data []byte) (SessionCompleted, uuid.UUID, error) {
	var evt SessionCompleted
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, uuid.Nil, fmt.Errorf("parse session completed: %w", err)
	}
	if evt.SessionID == "" {
		return evt, uuid.Nil, errors.New("session completed event has no session_id")
	}
	userID, err := uuid.Parse(evt.UserID)
	if err != nil {
		return evt, uuid.Nil, fmt.Errorf("invalid user_id %q: %w", evt.UserID, err)
	}
	return evt, userID, nil
}

type SessionAnalyzed struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Topic      string    `json:"topic"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

type MoodRecorded struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Mood   string `json:"mood"`
}

type BadgeUnlockRequested struct {
	UserID      string    `json:"user_id"`
	BadgeID     string    `json:"badge_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// UnlockBadge publishes an unlock request. The badge writer that consumes
// it owns the user_badges table and must treat repeats as no-ops: requests
// are only deduplicated within a short window.
func (c *Client) UnlockBadge(_ context.Context, userID, badgeID uuid.UUID) error {
	return c.Publish(SubjectBadgeUnlockRequested, BadgeUnlockRequested{
		UserID:      userID.String(),
		BadgeID:     badgeID.String(),
		RequestedAt: time.Now().UTC(),
	})
}
