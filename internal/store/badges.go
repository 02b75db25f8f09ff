package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Badge is a catalog rule: unlock after TriggerCount activities of
// TriggerType (journal, mood, session or exercise).
type Badge struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	IconURL      *string   `json:"icon_url"`
	TriggerType  string    `json:"trigger_type"`
	TriggerCount int       `json:"trigger_count"`
}

type BadgeDisplay struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IconURL     *string `json:"icon_url"`
}

// UserBadge is an unlock record joined with its badge's display fields.
type UserBadge struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	BadgeID    uuid.UUID    `json:"badge_id"`
	UnlockedAt time.Time    `json:"unlocked_at"`
	Badge      BadgeDisplay `json:"badges"`
}

// ListBadges returns the catalog ordered by trigger_count ascending.
func (s *Store) ListBadges(ctx context.Context) ([]Badge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, icon_url, trigger_type, trigger_count
		FROM badges ORDER BY trigger_count ASC`)
	if err != nil {
		return nil, fmt.Errorf("query badges: %w", err)
	}
	badges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Badge, error) {
		var b Badge
		err := row.Scan(&b.ID, &b.Name, &b.Description, &b.IconURL, &b.TriggerType, &b.TriggerCount)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan badges: %w", err)
	}
	return badges, nil
}

func (s *Store) ListUnlockedBadgeIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query unlocked badges: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan unlocked badges: %w", err)
	}
	return ids, nil
}

// ListUserBadges returns the user's unlocks, most recent first.
func (s *Store) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]UserBadge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ub.id, ub.user_id, ub.badge_id, ub.unlocked_at, b.name, b.description, b.icon_url
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.unlocked_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user badges: %w", err)
	}
	badges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserBadge, error) {
		var ub UserBadge
		err := row.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.UnlockedAt,
			&ub.Badge.Name, &ub.Badge.Description, &ub.Badge.IconURL)
		return ub, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan user badges: %w", err)
	}
	return badges, nil
}
