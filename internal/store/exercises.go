package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Exercise is a static catalog entry. Steps is stored as JSON and rendered
// by the client.
type Exercise struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	DurationSec int             `json:"duration_sec"`
	Steps       json.RawMessage `json:"steps"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ExerciseLog struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ExerciseID  uuid.UUID `json:"exercise_id"`
	CompletedAt time.Time `json:"completed_at"`
}

const exerciseColumns = `id, type, title, description, duration_sec, steps, created_at`

func scanExercise(row pgx.Row) (*Exercise, error) {
	var e Exercise
	if err := row.Scan(&e.ID, &e.Type, &e.Title, &e.Description, &e.DurationSec, &e.Steps, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExercises returns the catalog, newest first.
func (s *Store) ListExercises(ctx context.Context) ([]Exercise, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+exerciseColumns+` FROM exercises ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	var out []Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) GetExercise(ctx context.Context, id uuid.UUID) (*Exercise, error) {
	e, err := scanExercise(s.pool.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get exercise: %w", notFound(err))
	}
	return e, nil
}

// LogExercise records a completion of exerciseID by the user at now.
func (s *Store) LogExercise(ctx context.Context, userID, exerciseID uuid.UUID) (*ExerciseLog, error) {
	var l ExerciseLog
	err := s.pool.QueryRow(ctx, `
		INSERT INTO exercise_logs (id, user_id, exercise_id, completed_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, user_id, exercise_id, completed_at`,
		uuid.New(), userID, exerciseID,
	).Scan(&l.ID, &l.UserID, &l.ExerciseID, &l.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("insert exercise log: %w", err)
	}
	return &l, nil
}

// ListExerciseLogsSince returns completions at or after since, oldest first.
func (s *Store) ListExerciseLogsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]ExerciseLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, exercise_id, completed_at FROM exercise_logs
		WHERE user_id = $1 AND completed_at >= $2
		ORDER BY completed_at ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query exercise logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ExerciseLog, error) {
		var l ExerciseLog
		err := row.Scan(&l.ID, &l.UserID, &l.ExerciseID, &l.CompletedAt)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan exercise logs: %w", err)
	}
	return logs, nil
}

func (s *Store) CountExerciseLogsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	n, err := s.count(ctx, `SELECT count(*) FROM exercise_logs WHERE user_id = $1 AND completed_at >= $2`, userID, since)
	if err != nil {
		return 0, fmt.Errorf("count exercise logs: %w", err)
	}
	return n, nil
}
