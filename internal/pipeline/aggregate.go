package pipeline

import (
	"math"
	"sort"
	"sync"

	"movie-dq-pipeline/internal/model"
)

// QualityAggregator accumulates the data quality report of one job while
// records flow through the export stage. A nil aggregator is a no-op.
type QualityAggregator struct {
	mu          sync.Mutex
	valid       int64
	rejected    int64
	violations  map[string]int64
	byYear      map[int64]int64
	ratingSum   float64
	ratingCount int64
}

// NewQualityAggregator creates an empty aggregator
func NewQualityAggregator() *QualityAggregator {
	return &QualityAggregator{
		violations: make(map[string]int64),
		byYear:     make(map[int64]int64),
	}
}

// ObserveValid counts a transformed record towards the per-year and rating
// metrics.
func (a *QualityAggregator) ObserveValid(rec model.TransformedRecord) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.valid++
	a.byYear[rec.ReleasedYear]++
	// NaN passes the range check; keep it out of the mean
	if !math.IsNaN(rec.IMDBRating) {
		a.ratingSum += rec.IMDBRating
		a.ratingCount++
	}
}

// ObserveRejected adds each of the record's messages to the violation
// histogram.
func (a *QualityAggregator) ObserveRejected(rec model.RejectedRecord) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rejected++
	for _, e := range rec.Errors {
		a.violations[e.Message()]++
	}
}

// Report builds the quality report. dropped is taken from the job tracker
// since dropped records never reach the export stage.
func (a *QualityAggregator) Report(jobID string, dropped int64) model.QualityReport {
	report := model.QualityReport{
		JobID:          jobID,
		DroppedRecords: dropped,
		RuleViolations: make(map[string]int64),
		ValidByYear:    make(map[int64]int64),
	}
	if a == nil {
		report.TotalRecords = dropped
		return report
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	report.ValidRecords = a.valid
	report.RejectedRecords = a.rejected
	report.TotalRecords = a.valid + a.rejected + dropped
	for k, v := range a.violations {
		report.RuleViolations[k] = v
	}
	for k, v := range a.byYear {
		report.ValidByYear[k] = v
	}
	if a.ratingCount > 0 {
		report.MeanIMDBRating = a.ratingSum / float64(a.ratingCount)
	}
	return report
}

// ViolationCount is one row of a sorted violation histogram
type ViolationCount struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// SortViolations orders the report's violations by count, most frequent
// first, breaking ties by message.
func SortViolations(report model.QualityReport) []ViolationCount {
	out := make([]ViolationCount, 0, len(report.RuleViolations))
	for msg, n := range report.RuleViolations {
		out = append(out, ViolationCount{Message: msg, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Message < out[j].Message
	})
	return out
}
