// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
	"time"
)

// TraitCount is the number of rubric traits scored by each rater.
const TraitCount = 4

// previewRunes bounds the excerpt shown in the past essays list.
const previewRunes = 100

// TraitLabels names trait1..trait4 for display.
var TraitLabels = [TraitCount]string{"Idea", "Organization", "Style", "Convention"}

// feedbackOrder is the display order of the feedback keys the scoring
// service is known to return. Unknown keys sort after these.
var feedbackOrder = map[string]int{
	"Ideas":        0,
	"Organization": 1,
	"Style":        2,
	"Conventions":  3,
}

// Identity is the opaque handle (an email) of the logged-in user.
type Identity string

// IsZero reports whether no identity is set.
func (i Identity) IsZero() bool { return i == "" }

func (i Identity) String() string { return string(i) }

// Score is the structured result of the score-essay call.
// Field names mirror the wire format.
type Score struct {
	Domain1Score  float64 `json:"domain1_score"`
	Rater1Domain1 float64 `json:"rater1_domain1"`
	Rater2Domain1 float64 `json:"rater2_domain1"`
	Rater1Trait1  float64 `json:"rater1_trait1"`
	Rater1Trait2  float64 `json:"rater1_trait2"`
	Rater1Trait3  float64 `json:"rater1_trait3"`
	Rater1Trait4  float64 `json:"rater1_trait4"`
	Rater2Trait1  float64 `json:"rater2_trait1"`
	Rater2Trait2  float64 `json:"rater2_trait2"`
	Rater2Trait3  float64 `json:"rater2_trait3"`
	Rater2Trait4  float64 `json:"rater2_trait4"`
}

// Traits returns the per-trait values of both raters, trait1 first.
func (s Score) Traits() (rater1, rater2 [TraitCount]float64) {
	rater1 = [TraitCount]float64{s.Rater1Trait1, s.Rater1Trait2, s.Rater1Trait3, s.Rater1Trait4}
	rater2 = [TraitCount]float64{s.Rater2Trait1, s.Rater2Trait2, s.Rater2Trait3, s.Rater2Trait4}
	return rater1, rater2
}

// TraitPoints pairs both raters' values per trait, labelled for charts.
func (s Score) TraitPoints() []TraitPoint {
	r1, r2 := s.Traits()
	points := make([]TraitPoint, TraitCount)
	for i := range points {
		points[i] = TraitPoint{Trait: TraitLabels[i], Rater1: r1[i], Rater2: r2[i]}
	}
	return points
}

// Feedback maps a trait name to narrative text.
type Feedback map[string]string

// Clone returns an independent copy.
func (f Feedback) Clone() Feedback {
	if f == nil {
		return nil
	}
	out := make(Feedback, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the trait names in display order.
func (f Feedback) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iKnown := feedbackOrder[keys[i]]
		oj, jKnown := feedbackOrder[keys[j]]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Entries returns the feedback as ordered trait/text pairs.
func (f Feedback) Entries() []FeedbackEntry {
	keys := f.Keys()
	out := make([]FeedbackEntry, len(keys))
	for i, k := range keys {
		out[i] = FeedbackEntry{Trait: k, Text: f[k]}
	}
	return out
}

// FeedbackEntry is one feedback line for display.
type FeedbackEntry struct {
	Trait string `json:"trait"`
	Text  string `json:"text"`
}

// EssayRecord is one committed submission. It is never modified after
// it is appended to a history.
type EssayRecord struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	Content     string    `json:"content"`
	Score       Score     `json:"score"`
	Feedback    Feedback  `json:"feedback"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Preview returns the start of the essay content for list views.
func (r EssayRecord) Preview() string {
	runes := []rune(strings.TrimSpace(r.Content))
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes]) + "..."
}

// TraitPoint is one bar pair of the trait comparison chart.
type TraitPoint struct {
	Trait  string  `json:"trait"`
	Rater1 float64 `json:"rater1"`
	Rater2 float64 `json:"rater2"`
}

// TraitSeries holds the trait points of a single record.
type TraitSeries struct {
	RecordID string       `json:"record_id"`
	Index    int          `json:"index"`
	Points   []TraitPoint `json:"points"`
}

// ProgressPoint is one bar of the score progress chart.
type ProgressPoint struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Summary aggregates a history for the profile view.
type Summary struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
	BestScore    float64 `json:"best_score"`
	LatestScore  float64 `json:"latest_score"`
}
