// Package beamjob builds the movie quality graph as an Apache Beam pipeline:
// text lines are parsed, evaluated and transformed by one DoFn whose two
// outputs are written as JSON lines.
package beamjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/io/textio"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/log"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/register"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/transforms/filter"

	_ "github.com/apache/beam/sdks/v2/go/pkg/beam/io/filesystem/gcs"
	_ "github.com/apache/beam/sdks/v2/go/pkg/beam/io/filesystem/local"
	_ "github.com/apache/beam/sdks/v2/go/pkg/beam/runners/direct"

	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/internal/objstore"
	"movie-dq-pipeline/internal/pipeline"
	"movie-dq-pipeline/pkg/utils"
)

const (
	// DefaultRunner executes the graph in process
	DefaultRunner = "direct"

	metricsNamespace = "movie_dq"
)

var (
	validCount    = beam.NewCounter(metricsNamespace, "valid")
	rejectedCount = beam.NewCounter(metricsNamespace, "rejected")
	droppedCount  = beam.NewCounter(metricsNamespace, "dropped")
)

func init() {
	register.DoFn4x1[context.Context, string, func(string), func(string), error](&QualityFn{})
	register.Emitter1[string]()
	register.Function1x1(IsHeader)
}

// Options locates the input and outputs of a Beam run
type Options struct {
	// Input is a file glob or gs:// pattern read with textio
	Input string
	// ValidOutput receives transformed records as JSON lines
	ValidOutput string
	// RejectsOutput receives rejected records as JSON lines
	RejectsOutput string
	// Runner defaults to DefaultRunner
	Runner string

	RouteTransformFailures bool
}

// OutputsUnder returns the default output paths below dir, mirroring the
// layout used by the in-process pipeline.
func OutputsUnder(dir string) (valid, rejects string) {
	valid = strings.TrimSuffix(dir, "/") + "/" + model.DefaultTable + ".json"
	rejects = strings.TrimSuffix(dir, "/") + "/" + utils.BadDataDir + "/" + utils.RejectsFileName
	return valid, rejects
}

// Build adds the quality graph to s and returns the valid and rejected
// JSON line collections.
func Build(s beam.Scope, lines beam.PCollection, routeTransformFailures bool) (valid, rejected beam.PCollection) {
	s = s.Scope("MovieQuality")
	rows := filter.Exclude(s, lines, IsHeader)
	return beam.ParDo2(s, &QualityFn{RouteTransformFailures: routeTransformFailures}, rows)
}

// Run builds and executes the pipeline for opts
func Run(ctx context.Context, opts Options) error {
	if opts.Input == "" {
		return errors.New("input is required")
	}
	if opts.ValidOutput == "" || opts.RejectsOutput == "" {
		return errors.New("valid and rejects outputs are required")
	}
	runner := opts.Runner
	if runner == "" {
		runner = DefaultRunner
	}
	for _, out := range []string{opts.ValidOutput, opts.RejectsOutput} {
		if objstore.IsGCS(out) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	p, s := beam.NewPipelineWithRoot()
	lines := textio.Read(s, opts.Input)
	valid, rejected := Build(s, lines, opts.RouteTransformFailures)
	textio.Write(s, opts.ValidOutput, valid)
	textio.Write(s, opts.RejectsOutput, rejected)

	if _, err := beam.Run(ctx, runner, p); err != nil {
		return fmt.Errorf("beam pipeline failed: %w", err)
	}
	return nil
}

// IsHeader reports whether line is the CSV header row. textio has no
// option to skip leading lines, so the header is filtered by content.
func IsHeader(line string) bool {
	values := strings.Split(strings.TrimSpace(line), pipeline.FieldDelimiter)
	if len(values) != len(model.FieldNames) {
		return false
	}
	for i, v := range values {
		if !strings.EqualFold(strings.TrimSpace(v), model.FieldNames[i]) {
			return false
		}
	}
	return true
}

// QualityFn runs one line through parse, evaluate and transform. Valid
// records are emitted to the first output and rejected records to the
// second, both as JSON.
type QualityFn struct {
	RouteTransformFailures bool `json:"route_transform_failures"`
}

// ProcessElement handles a single line
func (f *QualityFn) ProcessElement(ctx context.Context, line string, good, bad func(string)) error {
	p := pipeline.Processor{
		Diag:                   beamDiagnostics{ctx: ctx},
		RouteTransformFailures: f.RouteTransformFailures,
	}
	out := p.Process(line)

	switch out.Kind {
	case pipeline.OutcomeValid:
		b, err := json.Marshal(out.Transformed)
		if err != nil {
			return fmt.Errorf("encode transformed record: %w", err)
		}
		validCount.Inc(ctx, 1)
		good(string(b))
	case pipeline.OutcomeRejected:
		b, err := json.Marshal(out.Rejected)
		if err != nil {
			return fmt.Errorf("encode rejected record: %w", err)
		}
		rejectedCount.Inc(ctx, 1)
		bad(string(b))
	default:
		droppedCount.Inc(ctx, 1)
	}
	return nil
}

// beamDiagnostics sends transform failures to the runner's log
type beamDiagnostics struct {
	ctx context.Context
}

func (d beamDiagnostics) RecordDropped(rec model.RawRecord, err error) {
	log.Errorf(d.ctx, "schema transformation failed: %v: row=%v", err, map[string]string(rec))
}
