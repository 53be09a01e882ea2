package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"movie-dq-pipeline/internal/model"
)

// Reasons attached to validation errors. The rendered message is
// "<field> <reason>".
const (
	ReasonMissing        = "is missing"
	ReasonTitleTooLong   = "length exceeds 69 characters"
	ReasonNotAnInteger   = "is not an integer"
	ReasonInvalidYear    = "is invalid"
	ReasonNotAFloat      = "is not a valid float"
	ReasonRatingOutRange = "is out of range"
)

// QualityRules holds the thresholds used by the evaluator
type QualityRules struct {
	MaxTitleLength int
	AllowedYears   []int64
	MinRating      float64
	MaxRating      float64
}

// DefaultQualityRules are the rules applied to the movie dataset
var DefaultQualityRules = QualityRules{
	MaxTitleLength: 69,
	AllowedYears:   []int64{2014, 2004, 2009},
	MinRating:      6.6,
	MaxRating:      8.0,
}

// Evaluator applies QualityRules to raw records. It holds no per-record
// state and is safe for concurrent use.
type Evaluator struct {
	rules   QualityRules
	allowed map[int64]struct{}
}

// NewEvaluator creates an evaluator for the given rules
func NewEvaluator(rules QualityRules) *Evaluator {
	allowed := make(map[int64]struct{}, len(rules.AllowedYears))
	for _, y := range rules.AllowedYears {
		allowed[y] = struct{}{}
	}
	return &Evaluator{rules: rules, allowed: allowed}
}

var defaultEvaluator = NewEvaluator(DefaultQualityRules)

// Evaluate checks rec against DefaultQualityRules
func Evaluate(rec model.RawRecord) model.Evaluation {
	return defaultEvaluator.Evaluate(rec)
}

// Evaluate runs every rule and accumulates the failures in rule order.
// Numeric format failures are reported as validation errors, never returned.
func (e *Evaluator) Evaluate(rec model.RawRecord) model.Evaluation {
	var errs []model.ValidationError
	fail := func(field, reason string) {
		errs = append(errs, model.ValidationError{Field: field, Reason: reason})
	}

	// Completeness
	if v, _ := rec.Get(model.FieldPosterLink); v == "" {
		fail(model.FieldPosterLink, ReasonMissing)
	}
	if utf8.RuneCountInString(rec.GetOr(model.FieldSeriesTitle, "")) > e.rules.MaxTitleLength {
		fail(model.FieldSeriesTitle, ReasonTitleTooLong)
	}

	// Validity
	year, err := parseInt(rec.GetOr(model.FieldReleasedYear, "0"))
	switch {
	case errors.Is(err, strconv.ErrSyntax):
		fail(model.FieldReleasedYear, ReasonNotAnInteger)
	case err != nil:
		// parsed, but wider than int64: cannot be an allowed year
		fail(model.FieldReleasedYear, ReasonInvalidYear)
	default:
		if _, ok := e.allowed[year]; !ok {
			fail(model.FieldReleasedYear, ReasonInvalidYear)
		}
	}

	rating, err := parseFloat(rec.GetOr(model.FieldIMDBRating, "0"))
	if err != nil {
		fail(model.FieldIMDBRating, ReasonNotAFloat)
	} else if rating < e.rules.MinRating || rating > e.rules.MaxRating {
		fail(model.FieldIMDBRating, ReasonRatingOutRange)
	}

	return model.Evaluation{
		Valid:  len(errs) == 0,
		Record: rec,
		Errors: errs,
	}
}

// parseInt accepts surrounding whitespace, an optional sign and single
// underscores between digits ("2_014"). Returns strconv.ErrRange (wrapped)
// when the value does not fit in int64.
func parseInt(s string) (int64, error) {
	digits, ok := stripDigitSeparators(strings.TrimSpace(s))
	if !ok {
		return 0, syntaxError("ParseInt", s)
	}
	return strconv.ParseInt(digits, 10, 64)
}

// parseFloat accepts surrounding whitespace and underscores between digits.
// Hex literals are refused. Overflow yields ±Inf without error.
func parseFloat(s string) (float64, error) {
	digits, ok := stripDigitSeparators(strings.TrimSpace(s))
	if !ok || isHexLiteral(digits) {
		return 0, syntaxError("ParseFloat", s)
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) {
		return f, nil
	}
	return f, err
}

// stripDigitSeparators drops underscores that sit between two ASCII
// digits. Any other underscore makes the number malformed.
func stripDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' {
			b.WriteByte(c)
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func syntaxError(fn, s string) error {
	return &strconv.NumError{Func: fn, Num: s, Err: strconv.ErrSyntax}
}

// ------------------- Quality Stage -------------------

// ValidateRecords parses and evaluates raw lines with workerCount workers.
// Valid records go to valid, failures to rejected. It blocks until in is
// drained or ctx is done, then closes valid. rejected is shared with the
// transform stage and is left open.
func ValidateRecords(
	ctx context.Context,
	evaluator *Evaluator,
	in <-chan model.RawLine,
	valid chan<- model.RawRecord,
	rejected chan<- model.RejectedRecord,
	tracker *PipelineTracker,
	logger *slog.Logger,
	workerCount int,
) {
	if workerCount <= 0 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)

	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			defer wg.Done()
			var workerValid, workerInvalid int

			for line := range in {
				ev := evaluator.Evaluate(ParseLine(line))
				if ev.Valid {
					select {
					case <-ctx.Done():
						return
					case valid <- ev.Record:
					}
					workerValid++
					tracker.AddValid(1)
					continue
				}

				select {
				case <-ctx.Done():
					return
				case rejected <- ev.Rejected():
				}
				workerInvalid++
				tracker.AddRejected(1)
			}

			logger.Debug("validation worker completed",
				"worker", workerID,
				"valid", workerValid,
				"invalid", workerInvalid,
			)
		}(i)
	}

	wg.Wait()
	close(valid)
}
