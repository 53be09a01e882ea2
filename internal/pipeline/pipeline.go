package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/pkg/utils"
)

// DefaultConcurrency fills unset concurrency options of a job
var DefaultConcurrency = model.ConcurrencyConfig{
	Workers:           model.Workers{Validation: 3, Transform: 2},
	ChannelBufferSize: 100,
	JobTimeout:        "5m",
}

// JobRecorder persists job progress while a pipeline runs
type JobRecorder interface {
	UpdateJobStatus(ctx context.Context, jobID, status string) error
	SaveStageProgress(ctx context.Context, jobID string, sm model.StageMetrics) error
	SaveJobError(ctx context.Context, jobID, stage string, err error) error
}

// RunOptions configures one pipeline run
type RunOptions struct {
	JobID string
	Spec  model.PipelineJobSpec

	// Sources overrides Spec.Sources when set
	Sources  []LineSource
	Valid    ValidSink
	Rejected RejectedSink

	// Optional collaborators; defaults are used when nil
	Recorder  JobRecorder
	Evaluator *Evaluator
	Diag      Diagnostics
	Tracker   *PipelineTracker
	Logger    *slog.Logger
}

// Result is what a finished run reports
type Result struct {
	Status  string                `json:"status"`
	Metrics model.PipelineMetrics `json:"metrics"`
	Report  model.QualityReport   `json:"report"`
}

// ------------------- Pipeline Runner -------------------

// Run executes a job: ingest, validate, transform and export run as
// concurrent stages joined by bounded channels. The returned Result is
// populated even when the run fails.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	jobID := opts.JobID
	spec := opts.Spec

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("job_id", jobID)

	// Worker-level progress only shows up when the job asks for it
	workerLogger := slog.New(slog.DiscardHandler)
	if spec.Logging {
		workerLogger = logger
	}

	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewPipelineTracker(jobID)
	}
	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = defaultEvaluator
	}
	diag := opts.Diag
	if diag == nil {
		diag = SlogDiagnostics{Logger: logger}
	}
	rec := &recorder{r: opts.Recorder, jobID: jobID, tracker: tracker, logger: logger}
	report := NewQualityAggregator()

	finish := func(err error) (*Result, error) {
		status := model.StatusCompleted
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			status = model.StatusCancelled
		default:
			status = model.StatusFailed
		}
		if err != nil {
			if len(tracker.Errors()) == 0 {
				tracker.RecordError("pipeline", err)
			}
			rec.jobError("pipeline", err)
		}
		tracker.Finish(status)
		rec.status(status)

		metrics := tracker.Snapshot()
		logger.Info("pipeline finished",
			"status", status,
			"lines", metrics.LinesRead,
			"valid", metrics.ValidRecords,
			"rejected", metrics.RejectedRecords,
			"dropped", metrics.DroppedRecords,
			"exported", metrics.ExportedRecords,
			"duration", metrics.Duration,
		)
		return &Result{
			Status:  status,
			Metrics: metrics,
			Report:  report.Report(jobID, metrics.DroppedRecords),
		}, err
	}

	conc := spec.Concurrency.WithDefaults(DefaultConcurrency)
	timeout := utils.ParseDuration(conc.JobTimeout)

	sources := opts.Sources
	if len(sources) == 0 {
		for _, src := range spec.Sources {
			ls, err := OpenSource(src)
			if err != nil {
				return finish(err)
			}
			sources = append(sources, ls)
		}
	}
	if len(sources) == 0 {
		return finish(errors.New("at least one source is required"))
	}

	disposition := model.WriteTruncate
	batchSize := DefaultBatchSize
	if spec.Export != nil {
		if spec.Export.WriteDisposition != "" {
			disposition = spec.Export.WriteDisposition
		}
		if spec.Export.BatchSize > 0 {
			batchSize = spec.Export.BatchSize
		}
	}
	if disposition != model.WriteTruncate && disposition != model.WriteAppend {
		return finish(fmt.Errorf("unknown write disposition: %s", disposition))
	}

	logger.Info("starting pipeline",
		"sources", len(sources),
		"validation_workers", conc.Workers.Validation,
		"transform_workers", conc.Workers.Transform,
		"timeout", timeout,
	)
	rec.status(model.StatusRunning)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if opts.Valid != nil {
		if err := opts.Valid.Prepare(ctx, disposition); err != nil {
			return finish(fmt.Errorf("prepare valid sink: %w", err))
		}
	}

	linesCh := make(chan model.RawLine, conc.ChannelBufferSize)
	validCh := make(chan model.RawRecord, conc.ChannelBufferSize)
	rejectedCh := make(chan model.RejectedRecord, conc.ChannelBufferSize)
	transformedCh := make(chan model.TransformedRecord, conc.ChannelBufferSize)

	g, gctx := errgroup.WithContext(ctx)

	// --- INGESTION STAGE ---
	g.Go(func() error {
		rec.status(model.StatusIngesting)
		tracker.StartStage(StageIngestion, len(sources))
		err := StartIngestion(gctx, sources, linesCh, tracker, logger)
		if err != nil {
			close(linesCh)
			tracker.RecordError(StageIngestion, err)
			return err
		}
		rec.endStage(StageIngestion, tracker.linesRead.Load())
		rec.status(model.StatusValidating)
		close(linesCh)
		return nil
	})

	// validation and transformation both write rejectedCh
	var producers sync.WaitGroup
	producers.Add(2)

	// --- VALIDATION STAGE ---
	g.Go(func() error {
		defer producers.Done()
		tracker.StartStage(StageValidation, conc.Workers.Validation)
		ValidateRecords(gctx, evaluator, linesCh, validCh, rejectedCh, tracker, workerLogger, conc.Workers.Validation)
		if gctx.Err() == nil {
			rec.endStage(StageValidation, tracker.valid.Load()+tracker.rejected.Load())
			rec.status(model.StatusTransforming)
		}
		return nil
	})

	// --- TRANSFORMATION STAGE ---
	g.Go(func() error {
		defer producers.Done()
		tracker.StartStage(StageTransformation, conc.Workers.Transform)
		TransformRecords(gctx, validCh, transformedCh, rejectedCh, diag, spec.RouteTransformFailures, tracker, workerLogger, conc.Workers.Transform)
		if gctx.Err() == nil {
			rec.endStage(StageTransformation, tracker.transformed.Load()+tracker.dropped.Load())
			rec.status(model.StatusExporting)
		}
		return nil
	})

	g.Go(func() error {
		producers.Wait()
		close(rejectedCh)
		return nil
	})

	// --- EXPORT STAGE ---
	var exporters sync.WaitGroup
	exporters.Add(2)
	tracker.StartStage(StageExport, 2)

	g.Go(func() error {
		defer exporters.Done()
		err := ExportValid(gctx, transformedCh, opts.Valid, batchSize, DefaultRetryConfigs["export"], report, tracker, logger)
		if err != nil {
			tracker.RecordError(StageExport, err)
		}
		return err
	})
	g.Go(func() error {
		defer exporters.Done()
		err := ExportRejected(gctx, rejectedCh, opts.Rejected, report, tracker, logger)
		if err != nil {
			tracker.RecordError(StageExport, err)
		}
		return err
	})
	g.Go(func() error {
		exporters.Wait()
		if gctx.Err() == nil {
			rec.endStage(StageExport, tracker.exported.Load())
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("job timed out after %s: %w", timeout, err)
	}
	return finish(err)
}

// recorder forwards progress to a JobRecorder. Persistence failures are
// logged and never fail the run.
type recorder struct {
	r       JobRecorder
	jobID   string
	tracker *PipelineTracker
	logger  *slog.Logger

	mu   sync.Mutex
	rank int
}

// statusRank orders statuses so that concurrent stages never move the
// persisted status backwards.
var statusRank = map[string]int{
	model.StatusPending:      0,
	model.StatusRunning:      1,
	model.StatusIngesting:    2,
	model.StatusValidating:   3,
	model.StatusTransforming: 4,
	model.StatusExporting:    5,
	model.StatusCompleted:    6,
	model.StatusFailed:       6,
	model.StatusCancelled:    6,
}

func (rc *recorder) status(status string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	r := statusRank[status]
	if r < rc.rank {
		return
	}
	rc.rank = r

	rc.tracker.SetStatus(status)
	if rc.r == nil {
		return
	}
	if err := rc.r.UpdateJobStatus(context.Background(), rc.jobID, status); err != nil {
		rc.logger.Warn("failed to persist job status", "status", status, "error", err)
	}
}

func (rc *recorder) endStage(stage string, records int64) {
	rc.tracker.EndStage(stage, records)
	if rc.r == nil {
		return
	}
	sm, _ := rc.tracker.Stage(stage)
	if err := rc.r.SaveStageProgress(context.Background(), rc.jobID, sm); err != nil {
		rc.logger.Warn("failed to persist stage progress", "stage", stage, "error", err)
	}
}

func (rc *recorder) jobError(stage string, err error) {
	if rc.r == nil {
		return
	}
	if e := rc.r.SaveJobError(context.Background(), rc.jobID, stage, err); e != nil {
		rc.logger.Warn("failed to persist job error", "error", e)
	}
}
