package pipeline

import (
	"strings"

	"movie-dq-pipeline/internal/model"
)

// FieldDelimiter separates values in a raw line
const FieldDelimiter = ","

// ParseLine zips the comma-separated values of line against model.FieldNames.
//
// There is no quoting support: a comma inside a value shifts every later
// field. Short lines leave trailing fields unset, extra values are discarded.
func ParseLine(line model.RawLine) model.RawRecord {
	values := strings.Split(line, FieldDelimiter)

	n := len(model.FieldNames)
	if len(values) < n {
		n = len(values)
	}

	rec := make(model.RawRecord, n)
	for i := 0; i < n; i++ {
		rec[model.FieldNames[i]] = values[i]
	}
	return rec
}
