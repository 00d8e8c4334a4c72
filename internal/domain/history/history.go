// Package history accumulates committed essays for the active identity and
// derives the statistics shown on the profile and score pages.
package history

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/pkg/metrics"
)

// Aggregator is an append-only, identity-scoped list of essay records.
// It is safe for concurrent use.
type Aggregator struct {
	mu      sync.RWMutex
	owner   model.Identity
	records []model.EssayRecord
	// sum of domain1 scores, kept so AverageScore stays O(1)
	sum float64
}

// New creates an empty aggregator with no owner.
func New() *Aggregator {
	return &Aggregator{}
}

// Reset drops every record and hands the history to owner. An empty owner
// leaves the aggregator unowned until the next Reset.
func (a *Aggregator) Reset(owner model.Identity) {
	a.mu.Lock()
	a.owner = owner
	a.records = nil
	a.sum = 0
	a.mu.Unlock()

	metrics.UpdateHistorySize(0)
	metrics.UpdateAverageScore(0)
}

// Owner returns the identity the history belongs to.
func (a *Aggregator) Owner() model.Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.owner
}

// Append adds rec to the end of owner's history. Existing entries are never
// touched.
func (a *Aggregator) Append(owner model.Identity, rec model.EssayRecord) error {
	rec.Feedback = rec.Feedback.Clone()

	a.mu.Lock()
	if a.owner.IsZero() {
		a.mu.Unlock()
		return ErrNoOwner
	}
	if a.owner != owner {
		a.mu.Unlock()
		return fmt.Errorf("%w: history of %q, record of %q", ErrWrongOwner, a.owner, owner)
	}
	a.records = append(a.records, rec)
	a.sum += rec.Score.Domain1Score
	n := len(a.records)
	avg := a.sum / float64(n)
	a.mu.Unlock()

	metrics.UpdateHistorySize(n)
	metrics.UpdateAverageScore(avg)
	metrics.UpdateLastScore(rec.Score.Domain1Score)
	return nil
}

// Len returns the number of records.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

// Records returns a copy of the history in insertion order.
func (a *Aggregator) Records() []model.EssayRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.EssayRecord, len(a.records))
	for i, r := range a.records {
		r.Feedback = r.Feedback.Clone()
		out[i] = r
	}
	return out
}

// Latest returns the most recent record.
func (a *Aggregator) Latest() (model.EssayRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.records) == 0 {
		return model.EssayRecord{}, false
	}
	r := a.records[len(a.records)-1]
	r.Feedback = r.Feedback.Clone()
	return r, true
}

// AverageScore is the mean domain1 score, 0 for an empty history.
func (a *Aggregator) AverageScore() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.records) == 0 {
		return 0
	}
	return a.sum / float64(len(a.records))
}

// TraitSeries returns the per-trait rater values of every record, in
// insertion order.
func (a *Aggregator) TraitSeries() []model.TraitSeries {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.TraitSeries, len(a.records))
	for i, r := range a.records {
		out[i] = model.TraitSeries{RecordID: r.ID, Index: i, Points: r.Score.TraitPoints()}
	}
	return out
}

// ProgressSeries returns one labelled point per record for the progress chart.
func (a *Aggregator) ProgressSeries() []model.ProgressPoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.ProgressPoint, len(a.records))
	for i, r := range a.records {
		out[i] = model.ProgressPoint{Label: "Essay " + strconv.Itoa(i+1), Score: r.Score.Domain1Score}
	}
	return out
}

// TraitAverages returns the mean value per trait and rater across the history.
// Every value is 0 for an empty history.
func (a *Aggregator) TraitAverages() []model.TraitPoint {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var sum1, sum2 [model.TraitCount]float64
	for _, r := range a.records {
		r1, r2 := r.Score.Traits()
		for i := range sum1 {
			sum1[i] += r1[i]
			sum2[i] += r2[i]
		}
	}
	out := make([]model.TraitPoint, model.TraitCount)
	n := float64(len(a.records))
	for i := range out {
		out[i].Trait = model.TraitLabels[i]
		if n > 0 {
			out[i].Rater1 = sum1[i] / n
			out[i].Rater2 = sum2[i] / n
		}
	}
	return out
}

// Summary bundles count, average, best and latest score.
func (a *Aggregator) Summary() model.Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := model.Summary{Count: len(a.records)}
	if s.Count == 0 {
		return s
	}
	s.AverageScore = a.sum / float64(s.Count)
	s.BestScore = a.records[0].Score.Domain1Score
	for _, r := range a.records[1:] {
		if r.Score.Domain1Score > s.BestScore {
			s.BestScore = r.Score.Domain1Score
		}
	}
	s.LatestScore = a.records[s.Count-1].Score.Domain1Score
	return s
}
