package model

import "encoding/json"

// ValidationError describes one failed quality rule for a field
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Message renders the human-readable text, e.g. "poster_link is missing".
func (e ValidationError) Message() string {
	return e.Field + " " + e.Reason
}

func (e ValidationError) Error() string {
	return e.Message()
}

// Evaluation is the tagged output of the data quality evaluator.
// Valid is true exactly when Errors is empty.
type Evaluation struct {
	Valid  bool              `json:"valid"`
	Record RawRecord         `json:"record"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Rejected converts an invalid evaluation into the record written to the rejected sink
func (e Evaluation) Rejected() RejectedRecord {
	return RejectedRecord{Row: e.Record, Errors: e.Errors}
}

// RejectedRecord pairs a raw record with the rules it failed
type RejectedRecord struct {
	Row    RawRecord
	Errors []ValidationError
}

// Messages returns the error texts in evaluation order
func (r RejectedRecord) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message()
	}
	return msgs
}

type rejectedRecordJSON struct {
	Row    RawRecord `json:"row"`
	Errors []string  `json:"errors"`
}

// MarshalJSON writes {"row": {...}, "errors": ["..."]}, one object per rejected line.
func (r RejectedRecord) MarshalJSON() ([]byte, error) {
	row := r.Row
	if row == nil {
		row = RawRecord{}
	}
	return json.Marshal(rejectedRecordJSON{Row: row, Errors: r.Messages()})
}

// UnmarshalJSON reads the format produced by MarshalJSON. Error texts are
// split back into field and reason on the first space.
func (r *RejectedRecord) UnmarshalJSON(data []byte) error {
	var raw rejectedRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Row = raw.Row
	r.Errors = make([]ValidationError, 0, len(raw.Errors))
	for _, msg := range raw.Errors {
		r.Errors = append(r.Errors, parseMessage(msg))
	}
	return nil
}

func parseMessage(msg string) ValidationError {
	for i := 0; i < len(msg); i++ {
		if msg[i] == ' ' {
			return ValidationError{Field: msg[:i], Reason: msg[i+1:]}
		}
	}
	return ValidationError{Reason: msg}
}
