package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownSource = errors.New("unknown insight source")

// Insight is a one-line observation about a user's recent activity.
type Insight struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// insightContent holds every field any source reads.
type insightContent struct {
	Sentiment string   `json:"sentiment"`
	Topics    []string `json:"topics"`
	Mood      string   `json:"mood"`
	Streak    int      `json:"streak"`
	Count     int      `json:"count"`
	Type      string   `json:"type"`
}

// GenerateInsight builds an insight from a source-specific content object.
func GenerateInsight(source string, content json.RawMessage) (Insight, error) {
	var c insightContent
	if len(content) > 0 && string(content) != "null" {
		if err := json.Unmarshal(content, &c); err != nil {
			return Insight{}, fmt.Errorf("decode %s insight content: %w", source, err)
		}
	}
	topics := strings.Join(c.Topics, ", ")

	switch source {
	case SourceJournal:
		switch c.Sentiment {
		case "positive":
			return Insight{
				Summary: "Your journal entries show a positive outlook on " + topics,
				Tags:    append([]string{"positivity"}, c.Topics...),
			}, nil
		case "negative":
			return Insight{
				Summary: "You're working through challenges related to " + topics,
				Tags:    append([]string{"growth"}, c.Topics...),
			}, nil
		default:
			return Insight{
				Summary: "You're reflecting on " + topics,
				Tags:    append([]string{"reflection"}, c.Topics...),
			}, nil
		}

	case SourceMood:
		if c.Streak > 3 {
			return Insight{
				Summary: fmt.Sprintf("You've maintained a %s mood for %d days in a row", c.Mood, c.Streak),
				Tags:    []string{"consistency", c.Mood},
			}, nil
		}
		return Insight{
			Summary: "You're currently feeling " + c.Mood,
			Tags:    []string{c.Mood},
		}, nil

	case SourceSession:
		return Insight{
			Summary: fmt.Sprintf("You've completed %d sessions focusing on %s", c.Count, topics),
			Tags:    append([]string{"therapy"}, c.Topics...),
		}, nil

	case SourceExercise:
		return Insight{
			Summary: fmt.Sprintf("You've completed %d %s exercises", c.Count, c.Type),
			Tags:    []string{"exercise", c.Type},
		}, nil
	}
	return Insight{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
}
