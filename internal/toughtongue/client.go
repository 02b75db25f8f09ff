// Package toughtongue reads scenario and session data from the ToughTongue AI
// public API, which hosts the conversational sessions users run.
package toughtongue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/haven/internal/cache"
)

var ErrNoTranscript = errors.New("session detail has no transcript")

// maxResponseBytes caps how much of an upstream body is read.
var maxResponseBytes int64 = 16 << 20

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %d", e.Op, e.StatusCode)
}

type Client struct {
	token      string
	baseURL    string
	scenarioID string
	client     *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewClient builds a client for the given API root and fixed scenario.
// A nil cache disables scenario caching.
func NewClient(token, baseURL, scenarioID string, c cache.Cache, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	return &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		scenarioID: scenarioID,
		client:     &http.Client{Timeout: 30 * time.Second},
		cache:      c,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Bundle is everything the client needs after a session ends.
type Bundle struct {
	Scenario      json.RawMessage `json:"scenario"`
	Sessions      json.RawMessage `json:"sessions"`
	LatestSession json.RawMessage `json:"latestSession"`
}

// ListScenarios returns the public scenario listing. It is served from the
// cache when a fresh copy is present.
func (c *Client) ListScenarios(ctx context.Context) (json.RawMessage, error) {
	key := "toughtongue:scenarios"
	var cached json.RawMessage
	if err := c.cache.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("scenario cache read failed", "error", err)
	}

	body, err := c.get(ctx, "scenario data", "/scenarios", nil)
	if err != nil {
		return nil, err
	}
	if c.cacheTTL > 0 {
		if err := c.cache.SetJSON(ctx, key, body, c.cacheTTL); err != nil {
			c.logger.Warn("scenario cache write failed", "error", err)
		}
	}
	return body, nil
}

// ListSessions returns the sessions recorded for scenarioID, or for the
// configured scenario when scenarioID is empty.
func (c *Client) ListSessions(ctx context.Context, scenarioID string) (json.RawMessage, error) {
	if scenarioID == "" {
		scenarioID = c.scenarioID
	}
	return c.get(ctx, "sessions data", "/sessions", url.Values{"scenario_id": {scenarioID}})
}

// GetSession returns the full detail of one session, transcript included.
func (c *Client) GetSession(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return c.get(ctx, "session details", "/sessions/"+url.PathEscape(sessionID), nil)
}

// FetchBundle performs the three reads in order and stops at the first failure.
func (c *Client) FetchBundle(ctx context.Context, sessionID string) (*Bundle, error) {
	scenario, err := c.ListScenarios(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := c.ListSessions(ctx, "")
	if err != nil {
		return nil, err
	}
	detail, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Bundle{Scenario: scenario, Sessions: sessions, LatestSession: detail}, nil
}

// FetchTranscript reads one session and returns its transcript text.
func (c *Client) FetchTranscript(ctx context.Context, sessionID string) (string, error) {
	detail, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return Transcript(detail)
}

// Transcript pulls the transcript text out of a session detail payload.
func Transcript(detail json.RawMessage) (string, error) {
	var d struct {
		TranscriptContent string `json:"transcript_content"`
		Transcript        string `json:"transcript"`
	}
	if err := json.Unmarshal(detail, &d); err != nil {
		return "", fmt.Errorf("parse session detail: %w", err)
	}
	switch {
	case strings.TrimSpace(d.TranscriptContent) != "":
		return d.TranscriptContent, nil
	case strings.TrimSpace(d.Transcript) != "":
		return d.Transcript, nil
	default:
		return "", ErrNoTranscript
	}
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", op, err)
	}
	if int64(len(body)) > maxResponseBytes {
		return nil, fmt.Errorf("read %s: response exceeds %d bytes", op, maxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("parse %s: invalid JSON", op)
	}
	return json.RawMessage(body), nil
}
