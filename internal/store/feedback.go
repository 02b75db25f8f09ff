package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Feedback struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Handled   bool      `json:"handled"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateFeedback stores a new, unhandled piece of feedback.
func (s *Store) CreateFeedback(ctx context.Context, userID uuid.UUID, kind, message string) (*Feedback, error) {
	var f Feedback
	err := s.pool.QueryRow(ctx, `
		INSERT INTO user_feedback (id, user_id, type, message, handled, created_at)
		VALUES ($1, $2, $3, $4, false, now())
		RETURNING id, user_id, type, message, handled, created_at`,
		uuid.New(), userID, kind, message,
	).Scan(&f.ID, &f.UserID, &f.Type, &f.Message, &f.Handled, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}
	return &f, nil
}

func (s *Store) ListFeedback(ctx context.Context, userID uuid.UUID) ([]Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, type, message, handled, created_at
		FROM user_feedback WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Feedback, error) {
		var f Feedback
		err := row.Scan(&f.ID, &f.UserID, &f.Type, &f.Message, &f.Handled, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan feedback: %w", err)
	}
	return out, nil
}

// MarkFeedbackHandled flags one piece of feedback as handled.
func (s *Store) MarkFeedbackHandled(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE user_feedback SET handled = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark feedback handled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
