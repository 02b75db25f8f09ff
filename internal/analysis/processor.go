// Package analysis runs a session transcript through extraction and stores
// the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/extractor"
	"github.com/MikeSquared-Agency/haven/internal/hermes"
	"github.com/MikeSquared-Agency/haven/internal/metrics"
	"github.com/MikeSquared-Agency/haven/internal/store"
)

// ErrMissingInput is returned before any external call when the transcript,
// session id or user id is absent.
var ErrMissingInput = errors.New("missing transcript_content, session_id, or user_id")

// StorageError marks a failure to persist an otherwise good analysis.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

type Extractor interface {
	Extract(ctx context.Context, transcript string) (extractor.Insight, error)
}

type SessionWriter interface {
	UpsertSessionAnalysis(ctx context.Context, sessionID string, userID uuid.UUID, a extractor.Analysis) (*store.Session, error)
}

type TranscriptSource interface {
	FetchTranscript(ctx context.Context, sessionID string) (string, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Result carries the model's object exactly as parsed, before the topic
// fallback, alongside the stored row.
type Result struct {
	Insight extractor.Insight
	Session *store.Session
}

type Processor struct {
	extractor Extractor
	sessions  SessionWriter
	source    TranscriptSource
	events    Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds a processor. source, events and m may be nil.
func New(ext Extractor, sessions SessionWriter, source TranscriptSource, events Publisher, m *metrics.Metrics, logger *slog.Logger) *Processor {
	return &Processor{
		extractor: ext,
		sessions:  sessions,
		source:    source,
		events:    events,
		metrics:   m,
		logger:    logger,
	}
}

// Analyze extracts an insight from transcript and upserts it for sessionID.
func (p *Processor) Analyze(ctx context.Context, sessionID string, userID uuid.UUID, transcript string) (*Result, error) {
	if strings.TrimSpace(transcript) == "" || sessionID == "" || userID == uuid.Nil {
		return nil, ErrMissingInput
	}

	insight, err := p.extractor.Extract(ctx, transcript)
	if err != nil {
		var invalid *extractor.InvalidOutputError
		if errors.As(err, &invalid) {
			p.metrics.ObserveAnalysis(metrics.OutcomeInvalidOutput)
		} else {
			p.metrics.ObserveAnalysis(metrics.OutcomeUpstreamError)
		}
		p.logger.Error("extraction failed", "session_id", sessionID, "error", err)
		return nil, err
	}

	a := insight.Analysis()
	sess, err := p.sessions.UpsertSessionAnalysis(ctx, sessionID, userID, a)
	if err != nil {
		p.metrics.ObserveAnalysis(metrics.OutcomeStorageError)
		p.logger.Error("persistence failed", "session_id", sessionID, "error", err)
		return nil, &StorageError{Err: err}
	}
	p.metrics.ObserveAnalysis(metrics.OutcomeSuccess)

	if p.events != nil {
		if err := p.events.Publish(hermes.SubjectSessionAnalyzed, hermes.SessionAnalyzed{
			SessionID:  sessionID,
			UserID:     userID.String(),
			Topic:      a.Topic,
			AnalyzedAt: time.Now().UTC(),
		}); err != nil {
			p.logger.Warn("failed to publish session analyzed", "session_id", sessionID, "error", err)
		}
	}

	p.logger.Info("session analyzed", "session_id", sessionID, "user_id", userID, "topic", a.Topic)
	return &Result{Insight: insight, Session: sess}, nil
}

// AnalyzeFromSource fetches the transcript from the recording service
// before analyzing it.
func (p *Processor) AnalyzeFromSource(ctx context.Context, sessionID string, userID uuid.UUID) (*Result, error) {
	if sessionID == "" || userID == uuid.Nil {
		return nil, ErrMissingInput
	}
	if p.source == nil {
		return nil, errors.New("no transcript source configured")
	}
	transcript, err := p.source.FetchTranscript(ctx, sessionID)
	if err != nil {
		p.metrics.ObserveAnalysis(metrics.OutcomeSourceError)
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	return p.Analyze(ctx, sessionID, userID, transcript)
}

// HandleSessionCompleted is the NATS handler for haven.session.completed.
func (p *Processor) HandleSessionCompleted(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	evt, userID, err := hermes.ParseSessionCompleted(data)
	if err != nil {
		p.logger.Error("failed to parse session completed event", "subject", subject, "error", err)
		return
	}

	p.logger.Info("processing completed session", "session_id", evt.SessionID, "user_id", evt.UserID)

	if _, err := p.AnalyzeFromSource(ctx, evt.SessionID, userID); err != nil {
		p.logger.Error("session analysis failed", "session_id", evt.SessionID, "error", err)
	}
}
