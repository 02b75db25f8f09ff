package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/haven/internal/store"
)

// Window is how far back activity counts toward badges.
const Window = 30 * 24 * time.Hour

const latestInsightsLimit = 5

// Reader is the slice of the store the aggregator reads from.
type Reader interface {
	ListMoodsSince(ctx context.Context, userID uuid.UUID, since string, ascending bool) ([]store.MoodEntry, error)
	ListJournalsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]store.JournalEntry, error)
	ListSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]store.Session, error)
	ListExerciseLogsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]store.ExerciseLog, error)
	ListLatestInsights(ctx context.Context, userID uuid.UUID, limit int) ([]store.ProgressInsight, error)
	ListUserBadges(ctx context.Context, userID uuid.UUID) ([]store.UserBadge, error)
	ListUnlockedBadgeIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListBadges(ctx context.Context) ([]store.Badge, error)

	CountMoodsSince(ctx context.Context, userID uuid.UUID, since string) (int, error)
	CountJournalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	CountSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	CountExerciseLogsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// Unlocker records that a user has earned a badge. It is implemented
// outside this package.
type Unlocker interface {
	UnlockBadge(ctx context.Context, userID, badgeID uuid.UUID) error
}

// Counter is a TTL counter, satisfied by cache.Cache.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// UnlockDedupeTTL is how long a sent unlock request suppresses repeats.
const UnlockDedupeTTL = 10 * time.Minute

// Summary is the full dashboard snapshot.
type Summary struct {
	MoodTrends       []store.MoodEntry       `json:"mood_trends"`
	JournalSentiment []store.JournalEntry    `json:"journal_sentiment"`
	SessionTopics    []store.Session         `json:"session_topics"`
	ExerciseStreaks  []store.ExerciseLog     `json:"exercise_streaks"`
	LatestInsights   []store.ProgressInsight `json:"latest_insights"`
	UnlockedBadges   []store.UserBadge       `json:"unlocked_badges"`
	BadgeProgress    []BadgeStatus           `json:"badge_progress"`
}

// BadgeReport is the count-only badge view.
type BadgeReport struct {
	Badges         []BadgeStatus  `json:"badges"`
	ActivityCounts ActivityCounts `json:"activity_counts"`
}

type Aggregator struct {
	store    Reader
	unlocker Unlocker
	dedupe   Counter
	logger   *slog.Logger
}

// NewAggregator returns an aggregator over r. A nil unlocker disables
// unlock requests.
func NewAggregator(r Reader, u Unlocker, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: r, unlocker: u, logger: logger}
}

// DedupeUnlocks sends at most one unlock request per user and badge every
// UnlockDedupeTTL. A counter that errors or reports 0 lets the request through.
func (a *Aggregator) DedupeUnlocks(c Counter) {
	a.dedupe = c
}

// windowStart returns the timestamp and calendar-day bounds of the window
// ending at now.
func windowStart(now time.Time) (time.Time, string) {
	since := now.Add(-Window)
	return since, since.UTC().Format(store.DateLayout)
}

// Summary reads every activity log for the window and derives badge
// progress from the rows. The reads run concurrently and are not taken
// from a single snapshot.
func (a *Aggregator) Summary(ctx context.Context, userID uuid.UUID, now time.Time) (*Summary, error) {
	since, sinceDay := windowStart(now)
	var (
		s      Summary
		badges []store.Badge
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.MoodTrends, err = a.store.ListMoodsSince(gctx, userID, sinceDay, true)
		return err
	})
	g.Go(func() (err error) {
		s.JournalSentiment, err = a.store.ListJournalsSince(gctx, userID, since)
		return err
	})
	g.Go(func() (err error) {
		s.SessionTopics, err = a.store.ListSessionsSince(gctx, userID, since)
		return err
	})
	g.Go(func() (err error) {
		s.ExerciseStreaks, err = a.store.ListExerciseLogsSince(gctx, userID, since)
		return err
	})
	g.Go(func() (err error) {
		s.LatestInsights, err = a.store.ListLatestInsights(gctx, userID, latestInsightsLimit)
		return err
	})
	g.Go(func() (err error) {
		s.UnlockedBadges, err = a.store.ListUserBadges(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		badges, err = a.store.ListBadges(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("progress summary: %w", err)
	}

	unlocked := make(map[uuid.UUID]bool, len(s.UnlockedBadges))
	for _, ub := range s.UnlockedBadges {
		unlocked[ub.BadgeID] = true
	}
	counts := ActivityCounts{
		Journal:  len(s.JournalSentiment),
		Mood:     len(s.MoodTrends),
		Session:  len(s.SessionTopics),
		Exercise: len(s.ExerciseStreaks),
	}
	s.BadgeProgress = EvaluateBadges(badges, counts, unlocked)
	a.requestUnlocks(ctx, userID, s.BadgeProgress)

	s.normalize()
	return &s, nil
}

// Badges computes badge progress from count queries alone. For the same
// data it agrees with Summary on every badge's count and progress.
func (a *Aggregator) Badges(ctx context.Context, userID uuid.UUID, now time.Time) (*BadgeReport, error) {
	since, sinceDay := windowStart(now)
	var (
		counts      ActivityCounts
		badges      []store.Badge
		unlockedIDs []uuid.UUID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts.Journal, err = a.store.CountJournalsSince(gctx, userID, since)
		return err
	})
	g.Go(func() (err error) {
		counts.Mood, err = a.store.CountMoodsSince(gctx, userID, sinceDay)
		return err
	})
	g.Go(func() (err error) {
		counts.Session, err = a.store.CountSessionsSince(gctx, userID, since)
		return err
	})
	g.Go(func() (err error) {
		counts.Exercise, err = a.store.CountExerciseLogsSince(gctx, userID, since)
		return err
	})
	g.Go(func() (err error) {
		badges, err = a.store.ListBadges(gctx)
		return err
	})
	g.Go(func() (err error) {
		unlockedIDs, err = a.store.ListUnlockedBadgeIDs(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("badge progress: %w", err)
	}

	unlocked := make(map[uuid.UUID]bool, len(unlockedIDs))
	for _, id := range unlockedIDs {
		unlocked[id] = true
	}
	report := &BadgeReport{
		Badges:         EvaluateBadges(badges, counts, unlocked),
		ActivityCounts: counts,
	}
	a.requestUnlocks(ctx, userID, report.Badges)
	return report, nil
}

// requestUnlocks asks the unlocker for every completed badge the user does
// not hold yet. Failures are logged and do not fail the read.
func (a *Aggregator) requestUnlocks(ctx context.Context, userID uuid.UUID, statuses []BadgeStatus) {
	if a.unlocker == nil {
		return
	}
	for _, st := range statuses {
		if st.IsUnlocked || st.Progress < 100 {
			continue
		}
		if a.recentlyRequested(ctx, userID, st.ID) {
			continue
		}
		if err := a.unlocker.UnlockBadge(ctx, userID, st.ID); err != nil {
			a.logger.Warn("badge unlock request failed", "user_id", userID, "badge_id", st.ID, "error", err)
		}
	}
}

func (a *Aggregator) recentlyRequested(ctx context.Context, userID, badgeID uuid.UUID) bool {
	if a.dedupe == nil {
		return false
	}
	n, err := a.dedupe.Incr(ctx, "haven:unlock:"+userID.String()+":"+badgeID.String(), UnlockDedupeTTL)
	if err != nil {
		a.logger.Warn("unlock dedupe failed", "user_id", userID, "badge_id", badgeID, "error", err)
		return false
	}
	return n > 1
}

// normalize replaces nil slices so they encode as [] rather than null.
func (s *Summary) normalize() {
	if s.MoodTrends == nil {
		s.MoodTrends = []store.MoodEntry{}
	}
	if s.JournalSentiment == nil {
		s.JournalSentiment = []store.JournalEntry{}
	}
	if s.SessionTopics == nil {
		s.SessionTopics = []store.Session{}
	}
	if s.ExerciseStreaks == nil {
		s.ExerciseStreaks = []store.ExerciseLog{}
	}
	if s.LatestInsights == nil {
		s.LatestInsights = []store.ProgressInsight{}
	}
	if s.UnlockedBadges == nil {
		s.UnlockedBadges = []store.UserBadge{}
	}
}
