// Package mood computes the statistics shown for a user's mood log.
package mood

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Entry is the part of a mood row the statistics read. Date is a UTC
// calendar day in YYYY-MM-DD form.
type Entry struct {
	Date string
	Mood string
}

// Vocabulary maps the mood labels of one client surface to scores from 5
// (happiest) down to 1.
type Vocabulary struct {
	Labels []string
	scores map[string]int
	// fallback scores labels outside the vocabulary; 0 leaves them unscored.
	fallback int
}

func newVocabulary(fallback int, labels ...string) Vocabulary {
	scores := make(map[string]int, len(labels))
	for i, l := range labels {
		scores[l] = len(labels) - i
	}
	return Vocabulary{Labels: labels, scores: scores, fallback: fallback}
}

var (
	// Emoji is used by the stats endpoint.
	Emoji = newVocabulary(0, "😊", "😌", "😐", "😔", "😢")
	// Words is used by the mood page.
	Words = newVocabulary(0, "happy", "calm", "neutral", "sad", "anxious")
	// ProfileWords is used for the profile summary, where unknown labels
	// count as neutral.
	ProfileWords = newVocabulary(3, "happy", "good", "neutral", "sad", "angry")
)

// Score returns the label's score and whether it has one.
func (v Vocabulary) Score(label string) (int, bool) {
	if s, ok := v.scores[label]; ok {
		return s, true
	}
	if v.fallback > 0 {
		return v.fallback, true
	}
	return 0, false
}

// Streak counts consecutive days with an entry, walking back from the newest
// entry. The newest entry must be dated today or yesterday, relative to now
// in UTC, or the streak is 0. Several entries on one day count once.
func Streak(entries []Entry, now time.Time) int {
	days := sortedDays(entries)
	today := day(now)

	// Skip anything dated after today.
	i := 0
	for i < len(days) && days[i].After(today) {
		i++
	}
	if i == len(days) {
		return 0
	}
	if gap := daysBetween(days[i], today); gap > 1 {
		return 0
	}

	streak := 1
	prev := days[i]
	for _, d := range days[i+1:] {
		switch daysBetween(d, prev) {
		case 0:
			continue
		case 1:
			streak++
			prev = d
		default:
			return streak
		}
	}
	return streak
}

// Average is a mean mood score. NaN marks a mean over an unscored label and
// encodes as JSON null.
type Average float64

func (a Average) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// IsValid reports whether every entry contributed a score.
func (a Average) IsValid() bool {
	return !math.IsNaN(float64(a))
}

// Mean returns the unrounded mean score, 0 for no entries, and NaN if any
// label has no score in v.
func Mean(entries []Entry, v Vocabulary) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range entries {
		s, ok := v.Score(e.Mood)
		if !ok {
			return math.NaN()
		}
		sum += s
	}
	return float64(sum) / float64(len(entries))
}

// AverageOf returns the mean score rounded half up to one decimal place.
func AverageOf(entries []Entry, v Vocabulary) Average {
	m := Mean(entries, v)
	if math.IsNaN(m) {
		return Average(m)
	}
	return Average(math.Floor(m*10+0.5) / 10)
}

// ProfileAverage formats the mean with two decimals, as the profile page
// shows it. It returns nil when there are no entries.
func ProfileAverage(labels []string) *string {
	if len(labels) == 0 {
		return nil
	}
	entries := make([]Entry, len(labels))
	for i, l := range labels {
		entries[i] = Entry{Mood: l}
	}
	s := strconv.FormatFloat(Mean(entries, ProfileWords), 'f', 2, 64)
	return &s
}

// WeeklyDistribution counts entries from the last 7 days per label. Every
// vocabulary label is present; labels outside it get their own key.
func WeeklyDistribution(entries []Entry, v Vocabulary, now time.Time) map[string]int {
	dist := make(map[string]int, len(v.Labels))
	for _, l := range v.Labels {
		dist[l] = 0
	}
	cutoff := now.UTC().Add(-7 * 24 * time.Hour).Format(dateLayout)
	for _, e := range entries {
		if e.Date >= cutoff {
			dist[e.Mood]++
		}
	}
	return dist
}

type Stats struct {
	Streak             int            `json:"streak"`
	AverageMood        Average        `json:"averageMood"`
	WeeklyDistribution map[string]int `json:"weeklyDistribution"`
}

// ComputeStats derives all three statistics from the same entries.
func ComputeStats(entries []Entry, v Vocabulary, now time.Time) Stats {
	return Stats{
		Streak:             Streak(entries, now),
		AverageMood:        AverageOf(entries, v),
		WeeklyDistribution: WeeklyDistribution(entries, v, now),
	}
}

// sortedDays parses entry dates and orders them newest first. Unparseable
// dates are dropped.
func sortedDays(entries []Entry) []time.Time {
	days := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		d, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from older to newer.
func daysBetween(older, newer time.Time) int {
	return int(newer.Sub(older).Hours() / 24)
}
