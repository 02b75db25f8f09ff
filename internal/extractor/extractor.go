package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/haven/internal/llm"
)

var ErrEmptyTranscript = errors.New("transcript is empty")

type Extractor struct {
	llm    llm.Completer
	logger *slog.Logger
}

func New(completer llm.Completer, logger *slog.Logger) *Extractor {
	return &Extractor{llm: completer, logger: logger}
}

// BuildPrompt renders the fixed analysis instruction around the transcript.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(analysisPrompt, transcript)
}

// Extract sends the transcript to the model and parses its answer. There is
// no retry: upstream failures and unparseable output are returned as-is.
func (e *Extractor) Extract(ctx context.Context, transcript string) (Insight, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	e.logger.Info("extracting insights from transcript", "transcript_len", len(transcript))

	raw, err := e.llm.Complete(ctx, BuildPrompt(transcript))
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	insight, err := ParseModelOutput(raw)
	if err != nil {
		e.logger.Error("failed to parse model response", "error", err, "raw", raw)
		return nil, err
	}

	e.logger.Info("extraction complete", "topic", insight.Topic(), "fields", len(insight))
	return insight, nil
}
