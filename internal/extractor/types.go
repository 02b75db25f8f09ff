package extractor

import (
	"encoding/json"
	"strconv"
)

// DefaultTopic is used when the model leaves the topic out or empty.
const DefaultTopic = "General"

// AgentType labels every session analysed by this service.
const AgentType = "Anxiety Coach"

// Analysis-owned keys, in column order.
const (
	KeyTopic               = "topic"
	KeyTranscriptSummary   = "transcript_summary"
	KeyEmotionalAnalysis   = "emotional_analysis"
	KeyCognitivePatterns   = "cognitive_patterns"
	KeyTriggersIdentified  = "triggers_identified"
	KeyUserIntent          = "user_intent"
	KeyRecommendations     = "recommendations"
	KeyInsightTags         = "insight_tags"
	KeyFollowUpSuggestions = "follow_up_suggestions"
)

// Insight is the model's JSON object, kept as an untyped tree. Only the
// topic is ever interpreted; every other field is passed through as-is.
type Insight map[string]any

// Topic returns the model's topic, or DefaultTopic when it is absent or falsy.
func (in Insight) Topic() string {
	v, ok := in[KeyTopic]
	if !ok || !truthy(v) {
		return DefaultTopic
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return DefaultTopic
		}
		return string(b)
	}
}

// Field returns the raw JSON encoding of key, or nil when the key is absent
// or null.
func (in Insight) Field(key string) json.RawMessage {
	v, ok := in[key]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// truthy mirrors JSON-value truthiness: null, false, "", and 0 are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// Analysis is the row-shaped view of an Insight for the sessions table.
type Analysis struct {
	Topic               string
	AgentType           string
	TranscriptSummary   json.RawMessage
	EmotionalAnalysis   json.RawMessage
	CognitivePatterns   json.RawMessage
	TriggersIdentified  json.RawMessage
	UserIntent          json.RawMessage
	Recommendations     json.RawMessage
	InsightTags         json.RawMessage
	FollowUpSuggestions json.RawMessage
}

// Analysis applies the topic fallback and projects the insight onto columns.
func (in Insight) Analysis() Analysis {
	return Analysis{
		Topic:               in.Topic(),
		AgentType:           AgentType,
		TranscriptSummary:   in.Field(KeyTranscriptSummary),
		EmotionalAnalysis:   in.Field(KeyEmotionalAnalysis),
		CognitivePatterns:   in.Field(KeyCognitivePatterns),
		TriggersIdentified:  in.Field(KeyTriggersIdentified),
		UserIntent:          in.Field(KeyUserIntent),
		Recommendations:     in.Field(KeyRecommendations),
		InsightTags:         in.Field(KeyInsightTags),
		FollowUpSuggestions: in.Field(KeyFollowUpSuggestions),
	}
}
