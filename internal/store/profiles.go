package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultDisplayName is stored when a phone upsert carries no display name.
const DefaultDisplayName = "User"

type Profile struct {
	UserID                uuid.UUID `json:"user_id"`
	DisplayName           *string   `json:"display_name"`
	PhoneNo               *string   `json:"phone_no"`
	PreferredTone         *string   `json:"preferred_tone"`
	PreferredAgent        *string   `json:"preferred_agent"`
	AllowAgentSuggestions *bool     `json:"allow_agent_suggestions"`
	CreatedAt             time.Time `json:"created_at"`
}

type Preferences struct {
	PreferredTone         *string
	PreferredAgent        *string
	AllowAgentSuggestions *bool
}

type Settings struct {
	UserID                uuid.UUID  `json:"user_id"`
	NotifyMoodReminder    bool       `json:"notify_mood_reminder"`
	NotifyProgressSummary bool       `json:"notify_progress_summary"`
	NotifyJournalNudge    bool       `json:"notify_journal_nudge"`
	NotifyExerciseStreak  bool       `json:"notify_exercise_streak"`
	UpdatedAt             *time.Time `json:"updated_at"`
}

// ActivityTotals are all-time counts shown on the profile page.
type ActivityTotals struct {
	Sessions           int
	JournalEntries     int
	ExercisesCompleted int
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, display_name, phone_no, preferred_tone, preferred_agent, allow_agent_suggestions, created_at
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.PhoneNo, &p.PreferredTone, &p.PreferredAgent, &p.AllowAgentSuggestions, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", notFound(err))
	}
	return &p, nil
}

// UpdatePreferences overwrites the agent preferences. A missing profile is
// not an error; nothing is written.
func (s *Store) UpdatePreferences(ctx context.Context, userID uuid.UUID, p Preferences) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_profiles
		SET preferred_tone = $2, preferred_agent = $3, allow_agent_suggestions = $4
		WHERE user_id = $1`,
		userID, p.PreferredTone, p.PreferredAgent, p.AllowAgentSuggestions,
	)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return nil
}

// UpsertPhone creates the profile or replaces its phone and display name.
func (s *Store) UpsertPhone(ctx context.Context, userID uuid.UUID, phone, displayName string) error {
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, phone_no, display_name, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
			phone_no = EXCLUDED.phone_no,
			display_name = EXCLUDED.display_name`,
		userID, phone, displayName,
	)
	if err != nil {
		return fmt.Errorf("upsert phone: %w", err)
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context, userID uuid.UUID) (*Settings, error) {
	var st Settings
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, notify_mood_reminder, notify_progress_summary, notify_journal_nudge, notify_exercise_streak, updated_at
		FROM user_settings WHERE user_id = $1`, userID,
	).Scan(&st.UserID, &st.NotifyMoodReminder, &st.NotifyProgressSummary, &st.NotifyJournalNudge, &st.NotifyExerciseStreak, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", notFound(err))
	}
	return &st, nil
}

func (s *Store) UpdateSettings(ctx context.Context, st Settings) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_settings
		SET notify_mood_reminder = $2, notify_progress_summary = $3,
			notify_journal_nudge = $4, notify_exercise_streak = $5, updated_at = now()
		WHERE user_id = $1`,
		st.UserID, st.NotifyMoodReminder, st.NotifyProgressSummary, st.NotifyJournalNudge, st.NotifyExerciseStreak,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// CountAll returns the user's all-time activity totals.
func (s *Store) CountAll(ctx context.Context, userID uuid.UUID) (ActivityTotals, error) {
	var t ActivityTotals
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM sessions WHERE user_id = $1),
			(SELECT count(*) FROM journal_entries WHERE user_id = $1),
			(SELECT count(*) FROM exercise_logs WHERE user_id = $1)`, userID,
	).Scan(&t.Sessions, &t.JournalEntries, &t.ExercisesCompleted)
	if err != nil {
		return t, fmt.Errorf("count activity: %w", err)
	}
	return t, nil
}
