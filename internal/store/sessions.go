package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/haven/internal/extractor"
)

// Session is one analysed conversation. session_id comes from the recording
// service; ID is the row's own key that journals link to.
type Session struct {
	ID                  uuid.UUID       `json:"id"`
	SessionID           string          `json:"session_id"`
	UserID              uuid.UUID       `json:"user_id"`
	Topic               string          `json:"topic"`
	AgentType           string          `json:"agent_type"`
	TranscriptSummary   json.RawMessage `json:"transcript_summary"`
	EmotionalAnalysis   json.RawMessage `json:"emotional_analysis"`
	CognitivePatterns   json.RawMessage `json:"cognitive_patterns"`
	TriggersIdentified  json.RawMessage `json:"triggers_identified"`
	UserIntent          json.RawMessage `json:"user_intent"`
	Recommendations     json.RawMessage `json:"recommendations"`
	InsightTags         json.RawMessage `json:"insight_tags"`
	FollowUpSuggestions json.RawMessage `json:"follow_up_suggestions"`
	CreatedAt           time.Time       `json:"created_at"`
}

const sessionColumns = `id, session_id, user_id, topic, agent_type,
	transcript_summary, emotional_analysis, cognitive_patterns, triggers_identified,
	user_intent, recommendations, insight_tags, follow_up_suggestions, created_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.SessionID, &s.UserID, &s.Topic, &s.AgentType,
		&s.TranscriptSummary, &s.EmotionalAnalysis, &s.CognitivePatterns, &s.TriggersIdentified,
		&s.UserIntent, &s.Recommendations, &s.InsightTags, &s.FollowUpSuggestions, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSessionAnalysis writes the analysis for sessionID in one statement.
// An existing row has every analysis-owned column overwritten, so absent
// fields become NULL. The row is returned as stored.
func (s *Store) UpsertSessionAnalysis(ctx context.Context, sessionID string, userID uuid.UUID, a extractor.Analysis) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, session_id, user_id, topic, agent_type,
			transcript_summary, emotional_analysis, cognitive_patterns, triggers_identified,
			user_intent, recommendations, insight_tags, follow_up_suggestions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		ON CONFLICT (session_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			topic = EXCLUDED.topic,
			agent_type = EXCLUDED.agent_type,
			transcript_summary = EXCLUDED.transcript_summary,
			emotional_analysis = EXCLUDED.emotional_analysis,
			cognitive_patterns = EXCLUDED.cognitive_patterns,
			triggers_identified = EXCLUDED.triggers_identified,
			user_intent = EXCLUDED.user_intent,
			recommendations = EXCLUDED.recommendations,
			insight_tags = EXCLUDED.insight_tags,
			follow_up_suggestions = EXCLUDED.follow_up_suggestions
		RETURNING `+sessionColumns,
		uuid.New(), sessionID, userID, a.Topic, a.AgentType,
		a.TranscriptSummary, a.EmotionalAnalysis, a.CognitivePatterns, a.TriggersIdentified,
		a.UserIntent, a.Recommendations, a.InsightTags, a.FollowUpSuggestions,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("upsert session analysis: %w", err)
	}
	return sess, nil
}

// GetSession returns the user's session with the given external session_id.
func (s *Store) GetSession(ctx context.Context, userID uuid.UUID, sessionID string) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND session_id = $2`,
		userID, sessionID)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", notFound(err))
	}
	return sess, nil
}

// ListSessions returns every session of the user, newest first.
func (s *Store) ListSessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
}

// ListSessionsSince returns sessions created at or after since, oldest first.
func (s *Store) ListSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at ASC`,
		userID, since)
}

func (s *Store) CountSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	n, err := s.count(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1 AND created_at >= $2`, userID, since)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}
