package model

// RawLine is a single text line from the input source
type RawLine = string

// FieldNames is the fixed column order of the movie dataset.
// Changing the order or count breaks every downstream stage.
var FieldNames = []string{
	"poster_link",
	"series_title",
	"released_year",
	"certificate",
	"runtime",
	"genre",
	"imdb_rating",
	"overview",
	"meta_score",
	"director",
	"star1",
	"star2",
	"star3",
	"star4",
	"no_of_votes",
	"gross",
}

// Field name constants used by the quality rules and the transformer
const (
	FieldPosterLink   = "poster_link"
	FieldSeriesTitle  = "series_title"
	FieldReleasedYear = "released_year"
	FieldCertificate  = "certificate"
	FieldRuntime      = "runtime"
	FieldGenre        = "genre"
	FieldIMDBRating   = "imdb_rating"
	FieldOverview     = "overview"
	FieldMetaScore    = "meta_score"
	FieldDirector     = "director"
	FieldStar1        = "star1"
	FieldStar2        = "star2"
	FieldStar3        = "star3"
	FieldStar4        = "star4"
	FieldNoOfVotes    = "no_of_votes"
	FieldGross        = "gross"
)

// RawRecord maps field names to untyped string values.
// A missing key means the field was unset in the source line.
type RawRecord map[string]string

// Get returns the value for name and whether it was set
func (r RawRecord) Get(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

// GetOr returns the value for name, or def when the field is unset
func (r RawRecord) GetOr(name, def string) string {
	if v, ok := r[name]; ok {
		return v
	}
	return def
}

// Clone returns an independent copy of the record.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
