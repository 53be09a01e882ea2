package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectedRecord_JSON(t *testing.T) {
	rec := RejectedRecord{
		Row: RawRecord{FieldSeriesTitle: "Foo", FieldReleasedYear: "20xx"},
		Errors: []ValidationError{
			{Field: FieldReleasedYear, Reason: "is invalid"},
			{Field: FieldPosterLink, Reason: "is missing"},
		},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"row": {"series_title": "Foo", "released_year": "20xx"},
		"errors": ["released_year is invalid", "poster_link is missing"]
	}`, string(data))

	var back RejectedRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestRejectedRecord_EmptyRow(t *testing.T) {
	data, err := json.Marshal(RejectedRecord{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"row": {}, "errors": []}`, string(data))
}

func TestRejectedRecord_MessageWithoutField(t *testing.T) {
	var rec RejectedRecord
	require.NoError(t, json.Unmarshal([]byte(`{"row":{},"errors":["unparseable"]}`), &rec))
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, ValidationError{Reason: "unparseable"}, rec.Errors[0])
	assert.Equal(t, []string{" unparseable"}, rec.Messages())
}

func TestEvaluation_Rejected(t *testing.T) {
	ev := Evaluation{
		Record: RawRecord{FieldGross: "1M"},
		Errors: []ValidationError{{Field: FieldIMDBRating, Reason: "is out of range"}},
	}
	rej := ev.Rejected()
	assert.Equal(t, ev.Record, rej.Row)
	assert.Equal(t, []string{"imdb_rating is out of range"}, rej.Messages())
	assert.EqualError(t, ev.Errors[0], "imdb_rating is out of range")
}

func TestTransformedRecord_JSON(t *testing.T) {
	rec := TransformedRecord{SeriesTitle: StringPtr("Foo"), ReleasedYear: 2014, IMDBRating: 7.5, MetaScore: 80}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Foo", got["series_title"])
	assert.EqualValues(t, 2014, got["released_year"])
	assert.EqualValues(t, 7.5, got["imdb_rating"])
	assert.Nil(t, got["poster_link"])
	assert.Len(t, got, len(FieldNames), "one key per column")

	rec.IMDBRating = math.NaN()
	data, err = json.Marshal(rec)
	require.NoError(t, err, "NaN must not break encoding")
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Nil(t, got["imdb_rating"])
}

func TestTransformedRecord_Values(t *testing.T) {
	rec := TransformedRecord{PosterLink: StringPtr("p"), ReleasedYear: 1999, NoOfVotes: 10, Gross: StringPtr("g")}
	vals := rec.Values()
	require.Len(t, vals, len(FieldNames))
	assert.Equal(t, rec.PosterLink, vals[0])
	assert.Equal(t, int64(1999), vals[2])
	assert.Equal(t, int64(10), vals[14])
	assert.Equal(t, rec.Gross, vals[15])
}

func TestRawRecord(t *testing.T) {
	r := RawRecord{FieldGenre: ""}

	v, ok := r.Get(FieldGenre)
	assert.True(t, ok)
	assert.Empty(t, v)
	_, ok = r.Get(FieldGross)
	assert.False(t, ok)
	assert.Equal(t, "n/a", r.GetOr(FieldGross, "n/a"))
	assert.Equal(t, "", r.GetOr(FieldGenre, "n/a"))

	c := r.Clone()
	c[FieldGenre] = "Drama"
	assert.Empty(t, r[FieldGenre])
}

func TestSource_HeaderLines(t *testing.T) {
	n := func(i int) *int { return &i }
	assert.Equal(t, 1, Source{}.HeaderLines())
	assert.Equal(t, 0, Source{SkipHeaderLines: n(0)}.HeaderLines())
	assert.Equal(t, 3, Source{SkipHeaderLines: n(3)}.HeaderLines())
	assert.Equal(t, 0, Source{SkipHeaderLines: n(-2)}.HeaderLines())
}

func TestConcurrencyConfig_WithDefaults(t *testing.T) {
	def := ConcurrencyConfig{Workers: Workers{Validation: 3, Transform: 2}, ChannelBufferSize: 100, JobTimeout: "5m"}

	assert.Equal(t, def, ConcurrencyConfig{}.WithDefaults(def))

	custom := ConcurrencyConfig{Workers: Workers{Validation: 8}, JobTimeout: "1m"}
	got := custom.WithDefaults(def)
	assert.Equal(t, 8, got.Workers.Validation)
	assert.Equal(t, 2, got.Workers.Transform)
	assert.Equal(t, 100, got.ChannelBufferSize)
	assert.Equal(t, "1m", got.JobTimeout)
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, IsTerminal(s), s)
	}
	for _, s := range []string{StatusPending, StatusRunning, StatusIngesting, StatusValidating, StatusTransforming, StatusExporting} {
		assert.False(t, IsTerminal(s), s)
	}
}
