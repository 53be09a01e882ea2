package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"movie-dq-pipeline/internal/model"
)

// Diagnostics receives records the transformer could not coerce.
// Implementations must be safe for concurrent use.
type Diagnostics interface {
	RecordDropped(rec model.RawRecord, err error)
}

// SlogDiagnostics reports dropped records to a structured logger
type SlogDiagnostics struct {
	Logger *slog.Logger
}

// RecordDropped implements Diagnostics
func (d SlogDiagnostics) RecordDropped(rec model.RawRecord, err error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("schema transformation failed", "row", map[string]string(rec), "error", err)
}

// TransformError reports the field that failed type coercion
type TransformError struct {
	Field string
	Value string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("schema transformation failed: %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Transform coerces a record that passed evaluation into its typed form.
// On failure no record is produced; the failure is reported to diag (when
// non-nil) and returned as a *TransformError.
func Transform(rec model.RawRecord, diag Diagnostics) (model.TransformedRecord, error) {
	out, err := transform(rec)
	if err != nil {
		if diag != nil {
			diag.RecordDropped(rec, err)
		}
		return model.TransformedRecord{}, err
	}
	return out, nil
}

func transform(rec model.RawRecord) (model.TransformedRecord, error) {
	year, err := intField(rec, model.FieldReleasedYear)
	if err != nil {
		return model.TransformedRecord{}, err
	}
	rating, err := floatField(rec, model.FieldIMDBRating)
	if err != nil {
		return model.TransformedRecord{}, err
	}
	metaScore, err := intField(rec, model.FieldMetaScore)
	if err != nil {
		return model.TransformedRecord{}, err
	}
	votes, err := intField(rec, model.FieldNoOfVotes)
	if err != nil {
		return model.TransformedRecord{}, err
	}

	return model.TransformedRecord{
		PosterLink:   stringField(rec, model.FieldPosterLink),
		SeriesTitle:  stringField(rec, model.FieldSeriesTitle),
		ReleasedYear: year,
		Certificate:  stringField(rec, model.FieldCertificate),
		Runtime:      stringField(rec, model.FieldRuntime),
		Genre:        stringField(rec, model.FieldGenre),
		IMDBRating:   rating,
		Overview:     stringField(rec, model.FieldOverview),
		MetaScore:    metaScore,
		Director:     stringField(rec, model.FieldDirector),
		Star1:        stringField(rec, model.FieldStar1),
		Star2:        stringField(rec, model.FieldStar2),
		Star3:        stringField(rec, model.FieldStar3),
		Star4:        stringField(rec, model.FieldStar4),
		NoOfVotes:    votes,
		Gross:        stringField(rec, model.FieldGross),
	}, nil
}

// intField parses an integer column. Unset fields default to 0; a present
// but empty value is an error.
func intField(rec model.RawRecord, name string) (int64, error) {
	v, ok := rec.Get(name)
	if !ok {
		return 0, nil
	}
	n, err := parseInt(v)
	if err != nil {
		return 0, &TransformError{Field: name, Value: v, Err: err}
	}
	return n, nil
}

func floatField(rec model.RawRecord, name string) (float64, error) {
	v, ok := rec.Get(name)
	if !ok {
		return 0, nil
	}
	f, err := parseFloat(v)
	if err != nil {
		return 0, &TransformError{Field: name, Value: v, Err: err}
	}
	return f, nil
}

func stringField(rec model.RawRecord, name string) *string {
	v, ok := rec.Get(name)
	if !ok {
		return nil
	}
	return &v
}

// ------------------- Transform Stage -------------------

// TransformRecords converts validated records with workerCount workers.
// Coercion failures are dropped (and reported to diag) unless routeFailures
// is set, in which case they are sent to rejected. It blocks until in is
// drained or ctx is done, then closes out.
func TransformRecords(
	ctx context.Context,
	in <-chan model.RawRecord,
	out chan<- model.TransformedRecord,
	rejected chan<- model.RejectedRecord,
	diag Diagnostics,
	routeFailures bool,
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
			var workerTransformed, workerFailed int

			for rec := range in {
				transformed, err := Transform(rec, diag)
				if err != nil {
					workerFailed++
					if !routeFailures {
						tracker.AddDropped(1)
						continue
					}
					select {
					case <-ctx.Done():
						return
					case rejected <- transformFailure(rec, err):
						tracker.AddRejected(1)
					}
					continue
				}

				select {
				case <-ctx.Done():
					return
				case out <- transformed:
					workerTransformed++
					tracker.AddTransformed(1)
				}
			}

			logger.Debug("transform worker completed",
				"worker", workerID,
				"transformed", workerTransformed,
				"failed", workerFailed,
			)
		}(i)
	}

	wg.Wait()
	close(out)
}

// FieldSchemaTransformation is the pseudo-field used when a coercion failure
// is routed to the rejected sink.
const FieldSchemaTransformation = "schema_transformation"

func transformFailure(rec model.RawRecord, err error) model.RejectedRecord {
	reason := "failed: " + err.Error()
	var te *TransformError
	if errors.As(err, &te) {
		reason = fmt.Sprintf("failed for %s=%q", te.Field, te.Value)
	}
	return model.RejectedRecord{
		Row: rec,
		Errors: []model.ValidationError{{
			Field:  FieldSchemaTransformation,
			Reason: reason,
		}},
	}
}
