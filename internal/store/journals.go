package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type JournalEntry struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Content         string     `json:"content"`
	LinkedSessionID *uuid.UUID `json:"linked_session_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

const journalColumns = `id, user_id, content, linked_session_id, created_at`

func scanJournal(row pgx.Row) (*JournalEntry, error) {
	var j JournalEntry
	if err := row.Scan(&j.ID, &j.UserID, &j.Content, &j.LinkedSessionID, &j.CreatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) CreateJournal(ctx context.Context, userID uuid.UUID, content string, linkedSessionID *uuid.UUID) (*JournalEntry, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO journal_entries (id, user_id, content, linked_session_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING `+journalColumns,
		uuid.New(), userID, content, linkedSessionID,
	)
	j, err := scanJournal(row)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	return j, nil
}

func (s *Store) GetJournal(ctx context.Context, userID, id uuid.UUID) (*JournalEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+journalColumns+` FROM journal_entries WHERE user_id = $1 AND id = $2`, userID, id)
	j, err := scanJournal(row)
	if err != nil {
		return nil, fmt.Errorf("get journal entry: %w", notFound(err))
	}
	return j, nil
}

// ListJournals returns the user's entries, newest first.
func (s *Store) ListJournals(ctx context.Context, userID uuid.UUID) ([]JournalEntry, error) {
	return s.queryJournals(ctx,
		`SELECT `+journalColumns+` FROM journal_entries WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListJournalsSince returns entries created at or after since, oldest first.
func (s *Store) ListJournalsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]JournalEntry, error) {
	return s.queryJournals(ctx,
		`SELECT `+journalColumns+` FROM journal_entries WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at ASC`,
		userID, since)
}

func (s *Store) CountJournalsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	n, err := s.count(ctx, `SELECT count(*) FROM journal_entries WHERE user_id = $1 AND created_at >= $2`, userID, since)
	if err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return n, nil
}

func (s *Store) queryJournals(ctx context.Context, query string, args ...any) ([]JournalEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}
