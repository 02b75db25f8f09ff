package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProgressInsight struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) CreateProgressInsight(ctx context.Context, userID uuid.UUID, source, summary string, tags []string) (*ProgressInsight, error) {
	if tags == nil {
		tags = []string{}
	}
	var in ProgressInsight
	err := s.pool.QueryRow(ctx, `
		INSERT INTO progress_insights (id, user_id, source, summary, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, user_id, source, summary, tags, created_at`,
		uuid.New(), userID, source, summary, tags,
	).Scan(&in.ID, &in.UserID, &in.Source, &in.Summary, &in.Tags, &in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert progress insight: %w", err)
	}
	return &in, nil
}

// ListLatestInsights returns up to limit insights, newest first.
func (s *Store) ListLatestInsights(ctx context.Context, userID uuid.UUID, limit int) ([]ProgressInsight, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, source, summary, tags, created_at
		FROM progress_insights
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query progress insights: %w", err)
	}
	insights, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProgressInsight, error) {
		var in ProgressInsight
		err := row.Scan(&in.ID, &in.UserID, &in.Source, &in.Summary, &in.Tags, &in.CreatedAt)
		return in, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan progress insights: %w", err)
	}
	return insights, nil
}
