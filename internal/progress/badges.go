// Package progress derives the dashboard view of a user's activity: counts
// over a trailing window and how close each badge is to being unlocked.
package progress

import (
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/store"
)

// Activity sources a badge can count.
const (
	SourceJournal  = "journal"
	SourceMood     = "mood"
	SourceSession  = "session"
	SourceExercise = "exercise"
)

type ActivityCounts struct {
	Journal  int `json:"journal"`
	Mood     int `json:"mood"`
	Session  int `json:"session"`
	Exercise int `json:"exercise"`
}

// For returns the count matching a badge trigger type, 0 for unknown types.
func (c ActivityCounts) For(triggerType string) int {
	switch triggerType {
	case SourceJournal:
		return c.Journal
	case SourceMood:
		return c.Mood
	case SourceSession:
		return c.Session
	case SourceExercise:
		return c.Exercise
	default:
		return 0
	}
}

// BadgeStatus is a catalog badge with the user's progress toward it.
type BadgeStatus struct {
	store.Badge
	CurrentCount int     `json:"current_count"`
	Progress     float64 `json:"progress"`
	IsUnlocked   bool    `json:"is_unlocked"`
	Remaining    int     `json:"remaining"`
}

// BadgeProgress computes min(100, 100*count/trigger). A badge with a
// non-positive trigger is complete as soon as there is any activity.
func BadgeProgress(b store.Badge, count int, unlocked map[uuid.UUID]bool) BadgeStatus {
	if count < 0 {
		count = 0
	}
	var pct float64
	switch {
	case b.TriggerCount <= 0 && count > 0:
		pct = 100
	case b.TriggerCount <= 0:
		pct = 0
	default:
		pct = min(100, float64(count)/float64(b.TriggerCount)*100)
	}
	return BadgeStatus{
		Badge:        b,
		CurrentCount: count,
		Progress:     pct,
		IsUnlocked:   unlocked[b.ID],
		Remaining:    max(0, b.TriggerCount-count),
	}
}

// EvaluateBadges applies BadgeProgress to every badge in catalog order.
func EvaluateBadges(badges []store.Badge, counts ActivityCounts, unlocked map[uuid.UUID]bool) []BadgeStatus {
	out := make([]BadgeStatus, 0, len(badges))
	for _, b := range badges {
		out = append(out, BadgeProgress(b, counts.For(b.TriggerType), unlocked))
	}
	return out
}
