package pipeline

import (
	"movie-dq-pipeline/internal/model"
)

// OutcomeKind classifies what happened to one input line
type OutcomeKind int

const (
	OutcomeValid OutcomeKind = iota
	OutcomeRejected
	OutcomeDropped
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValid:
		return "valid"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes render as their name in JSON
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of running one line through every stage.
// Exactly one of Transformed and Rejected is set for valid and rejected
// outcomes; a dropped outcome carries only Err.
type Outcome struct {
	Kind        OutcomeKind              `json:"kind"`
	Record      model.RawRecord          `json:"record"`
	Transformed *model.TransformedRecord `json:"transformed,omitempty"`
	Rejected    *model.RejectedRecord    `json:"rejected,omitempty"`
	Err         error                    `json:"-"`
}

// Processor composes parse, evaluate and transform for single lines
type Processor struct {
	Evaluator *Evaluator
	Diag      Diagnostics

	// RouteTransformFailures turns dropped outcomes into rejected ones
	RouteTransformFailures bool
}

// NewProcessor returns a processor using DefaultQualityRules
func NewProcessor(diag Diagnostics) *Processor {
	return &Processor{Evaluator: defaultEvaluator, Diag: diag}
}

// Process runs line through the default processor
func Process(line model.RawLine, diag Diagnostics) Outcome {
	return NewProcessor(diag).Process(line)
}

// Process parses, evaluates and, for valid records, transforms line.
// It has no side effects beyond reporting to Diag.
func (p *Processor) Process(line model.RawLine) Outcome {
	evaluator := p.Evaluator
	if evaluator == nil {
		evaluator = defaultEvaluator
	}

	ev := evaluator.Evaluate(ParseLine(line))
	if !ev.Valid {
		rejected := ev.Rejected()
		return Outcome{Kind: OutcomeRejected, Record: ev.Record, Rejected: &rejected}
	}

	transformed, err := Transform(ev.Record, p.Diag)
	if err != nil {
		if p.RouteTransformFailures {
			rejected := transformFailure(ev.Record, err)
			return Outcome{Kind: OutcomeRejected, Record: ev.Record, Rejected: &rejected, Err: err}
		}
		return Outcome{Kind: OutcomeDropped, Record: ev.Record, Err: err}
	}
	return Outcome{Kind: OutcomeValid, Record: ev.Record, Transformed: &transformed}
}
