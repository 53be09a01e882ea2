package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"movie-dq-pipeline/internal/model"
)

func rejectedWith(msgs ...model.ValidationError) model.RejectedRecord {
	return model.RejectedRecord{Row: model.RawRecord{}, Errors: msgs}
}

func TestQualityAggregator_Report(t *testing.T) {
	a := NewQualityAggregator()
	a.ObserveValid(model.TransformedRecord{ReleasedYear: 2014, IMDBRating: 7.0})
	a.ObserveValid(model.TransformedRecord{ReleasedYear: 2014, IMDBRating: 8.0})
	a.ObserveValid(model.TransformedRecord{ReleasedYear: 2009, IMDBRating: 6.6})

	yearErr := model.ValidationError{Field: model.FieldReleasedYear, Reason: ReasonInvalidYear}
	ratingErr := model.ValidationError{Field: model.FieldIMDBRating, Reason: ReasonRatingOutRange}
	a.ObserveRejected(rejectedWith(yearErr, ratingErr))
	a.ObserveRejected(rejectedWith(yearErr))

	r := a.Report("job", 4)
	assert.Equal(t, "job", r.JobID)
	assert.EqualValues(t, 3, r.ValidRecords)
	assert.EqualValues(t, 2, r.RejectedRecords)
	assert.EqualValues(t, 4, r.DroppedRecords)
	assert.EqualValues(t, 9, r.TotalRecords)
	assert.Equal(t, map[int64]int64{2014: 2, 2009: 1}, r.ValidByYear)
	assert.Equal(t, map[string]int64{
		"released_year is invalid":    2,
		"imdb_rating is out of range": 1,
	}, r.RuleViolations)
	assert.InDelta(t, 7.2, r.MeanIMDBRating, 1e-9)
}

func TestQualityAggregator_NaNExcludedFromMean(t *testing.T) {
	a := NewQualityAggregator()
	a.ObserveValid(model.TransformedRecord{ReleasedYear: 2004, IMDBRating: math.NaN()})
	a.ObserveValid(model.TransformedRecord{ReleasedYear: 2004, IMDBRating: 7.0})

	r := a.Report("job", 0)
	assert.EqualValues(t, 2, r.ValidRecords)
	assert.Equal(t, 7.0, r.MeanIMDBRating)
}

func TestQualityAggregator_Empty(t *testing.T) {
	r := NewQualityAggregator().Report("job", 0)
	assert.Zero(t, r.TotalRecords)
	assert.Zero(t, r.MeanIMDBRating)
	assert.NotNil(t, r.RuleViolations)
	assert.NotNil(t, r.ValidByYear)

	var nilAgg *QualityAggregator
	assert.NotPanics(t, func() {
		nilAgg.ObserveValid(model.TransformedRecord{})
		nilAgg.ObserveRejected(model.RejectedRecord{})
	})
	assert.EqualValues(t, 2, nilAgg.Report("job", 2).TotalRecords)
}

func TestSortViolations(t *testing.T) {
	got := SortViolations(model.QualityReport{RuleViolations: map[string]int64{
		"b": 2,
		"a": 2,
		"c": 5,
		"d": 1,
	}})
	assert.Equal(t, []ViolationCount{
		{Message: "c", Count: 5},
		{Message: "a", Count: 2},
		{Message: "b", Count: 2},
		{Message: "d", Count: 1},
	}, got)

	assert.Empty(t, SortViolations(model.QualityReport{}))
}
