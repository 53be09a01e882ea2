package model

import (
	"encoding/json"
	"math"
)

// TransformedRecord is a fully typed movie row ready for the valid sink.
// Nil string fields were absent in the source line and are stored as NULL.
type TransformedRecord struct {
	PosterLink   *string `json:"poster_link"`
	SeriesTitle  *string `json:"series_title"`
	ReleasedYear int64   `json:"released_year"`
	Certificate  *string `json:"certificate"`
	Runtime      *string `json:"runtime"`
	Genre        *string `json:"genre"`
	IMDBRating   float64 `json:"imdb_rating"`
	Overview     *string `json:"overview"`
	MetaScore    int64   `json:"meta_score"`
	Director     *string `json:"director"`
	Star1        *string `json:"star1"`
	Star2        *string `json:"star2"`
	Star3        *string `json:"star3"`
	Star4        *string `json:"star4"`
	NoOfVotes    int64   `json:"no_of_votes"`
	Gross        *string `json:"gross"`
}

// Values returns the column values in FieldNames order, suitable for
// positional SQL inserts and COPY rows.
func (t TransformedRecord) Values() []any {
	return []any{
		t.PosterLink,
		t.SeriesTitle,
		t.ReleasedYear,
		t.Certificate,
		t.Runtime,
		t.Genre,
		t.IMDBRating,
		t.Overview,
		t.MetaScore,
		t.Director,
		t.Star1,
		t.Star2,
		t.Star3,
		t.Star4,
		t.NoOfVotes,
		t.Gross,
	}
}

// MarshalJSON writes a NaN rating as null since JSON has no NaN.
func (t TransformedRecord) MarshalJSON() ([]byte, error) {
	type plain TransformedRecord
	out := struct {
		plain
		IMDBRating *float64 `json:"imdb_rating"`
	}{plain: plain(t)}
	if !math.IsNaN(t.IMDBRating) {
		out.IMDBRating = &t.IMDBRating
	}
	return json.Marshal(out)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
