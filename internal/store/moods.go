package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DateLayout is how mood dates are written and compared: a UTC calendar day.
const DateLayout = "2006-01-02"

type MoodEntry struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Mood            string     `json:"mood"`
	Note            *string    `json:"note"`
	Date            string     `json:"date"`
	LinkedSessionID *uuid.UUID `json:"linked_session_id"`
	LinkedJournalID *uuid.UUID `json:"linked_journal_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

type MoodInput struct {
	UserID          uuid.UUID
	Date            string
	Mood            string
	Note            *string
	LinkedSessionID *uuid.UUID
	LinkedJournalID *uuid.UUID
}

const moodColumns = `id, user_id, mood, note, date::text, linked_session_id, linked_journal_id, created_at, updated_at`

func scanMood(row pgx.Row) (*MoodEntry, error) {
	var m MoodEntry
	if err := row.Scan(&m.ID, &m.UserID, &m.Mood, &m.Note, &m.Date,
		&m.LinkedSessionID, &m.LinkedJournalID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMood records the user's mood for in.Date. A second call for the same
// day updates the existing row in the same statement; nil optional fields
// keep their stored values.
func (s *Store) UpsertMood(ctx context.Context, in MoodInput) (*MoodEntry, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO mood_entries (id, user_id, mood, note, date, linked_session_id, linked_journal_id, created_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, now())
		ON CONFLICT (user_id, date) DO UPDATE SET
			mood = EXCLUDED.mood,
			note = COALESCE(EXCLUDED.note, mood_entries.note),
			linked_session_id = COALESCE(EXCLUDED.linked_session_id, mood_entries.linked_session_id),
			linked_journal_id = COALESCE(EXCLUDED.linked_journal_id, mood_entries.linked_journal_id),
			updated_at = now()
		RETURNING `+moodColumns,
		uuid.New(), in.UserID, in.Mood, in.Note, in.Date, in.LinkedSessionID, in.LinkedJournalID,
	)
	m, err := scanMood(row)
	if err != nil {
		return nil, fmt.Errorf("upsert mood: %w", err)
	}
	return m, nil
}

// ListMoodsSince returns entries dated on or after since (a DateLayout day).
func (s *Store) ListMoodsSince(ctx context.Context, userID uuid.UUID, since string, ascending bool) ([]MoodEntry, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+moodColumns+` FROM mood_entries WHERE user_id = $1 AND date >= $2::date ORDER BY date `+order,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}
	defer rows.Close()

	var out []MoodEntry
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mood: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) CountMoodsSince(ctx context.Context, userID uuid.UUID, since string) (int, error) {
	n, err := s.count(ctx, `SELECT count(*) FROM mood_entries WHERE user_id = $1 AND date >= $2::date`, userID, since)
	if err != nil {
		return 0, fmt.Errorf("count moods: %w", err)
	}
	return n, nil
}

// ListAllMoodLabels returns the mood label of every entry the user has.
func (s *Store) ListAllMoodLabels(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT mood FROM mood_entries WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query mood labels: %w", err)
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect mood labels: %w", err)
	}
	return labels, nil
}
