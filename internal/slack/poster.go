// Package slack posts user feedback to an ops channel and reads the
// reactions used to triage it.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxExcerpt bounds how much of a feedback message is copied into Slack.
const maxExcerpt = 1500

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// FeedbackMessage is what gets shown to the ops channel.
type FeedbackMessage struct {
	ID      string
	UserID  string
	Type    string
	Message string
	SentAt  time.Time
}

// PostFeedback posts one piece of feedback and returns the message ts,
// which reactions refer back to.
func (p *Poster) PostFeedback(ctx context.Context, fb FeedbackMessage) (string, error) {
	text := formatFeedbackMessage(fb)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "React :white_check_mark: once handled",
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	p.logger.Info("posted feedback to slack", "ts", ts, "feedback_id", fb.ID)
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatFeedbackMessage(fb FeedbackMessage) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*New feedback:* %s\n", fb.Type)
	fmt.Fprintf(&sb, "*From:* %s\n", fb.UserID)
	if !fb.SentAt.IsZero() {
		fmt.Fprintf(&sb, "*At:* %s\n", fb.SentAt.UTC().Format(time.RFC3339))
	}
	sb.WriteString("\n")

	msg := strings.TrimSpace(fb.Message)
	if r := []rune(msg); len(r) > maxExcerpt {
		msg = string(r[:maxExcerpt]) + "…"
	}
	for _, line := range strings.Split(msg, "\n") {
		sb.WriteString("> " + line + "\n")
	}
	fmt.Fprintf(&sb, "\n_id: %s_", fb.ID)

	return sb.String()
}
