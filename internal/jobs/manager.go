// Package jobs runs pipeline jobs against the job store: it resolves each
// job's sinks, tracks running jobs so they can be cancelled, and keeps the
// results of finished runs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/internal/pipeline"
	"movie-dq-pipeline/internal/store"
	"movie-dq-pipeline/pkg/utils"
)

var (
	// ErrNotFound is returned for unknown job ids
	ErrNotFound = store.ErrNotFound
	// ErrNotCancellable is returned when cancelling a finished job
	ErrNotCancellable = errors.New("job cannot be cancelled")
	// ErrRunning is returned when retrying a job that has not finished
	ErrRunning = errors.New("job is still running")
	// ErrInvalidSpec wraps job validation failures
	ErrInvalidSpec = errors.New("invalid job")
)

// Options configures a Manager
type Options struct {
	Store   *store.Store
	Outputs *utils.OutputManager

	// Defaults fill fields a submitted job leaves unset
	Defaults model.PipelineJobSpec

	// PostgresURL, when set, is the valid table for jobs that name no DB
	PostgresURL string
	Logger      *slog.Logger
}

// Manager runs jobs synchronously or in the background
type Manager struct {
	store       *store.Store
	outputs     *utils.OutputManager
	defaults    model.PipelineJobSpec
	postgresURL string
	logger      *slog.Logger

	baseCtx context.Context
	stopAll context.CancelFunc

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a manager
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outputs := opts.Outputs
	if outputs == nil {
		outputs = utils.NewOutputManager("outputs")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:       opts.Store,
		outputs:     outputs,
		defaults:    opts.Defaults,
		postgresURL: opts.PostgresURL,
		logger:      logger,
		baseCtx:     ctx,
		stopAll:     cancel,
		running:     make(map[string]context.CancelFunc),
	}
}

// ApplyDefaults fills unset job fields from the manager defaults
func (m *Manager) ApplyDefaults(spec model.PipelineJobSpec) model.PipelineJobSpec {
	spec.Concurrency = spec.Concurrency.WithDefaults(m.defaults.Concurrency)

	export := model.Export{}
	if spec.Export != nil {
		export = *spec.Export
	}
	if def := m.defaults.Export; def != nil {
		if export.WriteDisposition == "" {
			export.WriteDisposition = def.WriteDisposition
		}
		if export.BatchSize <= 0 {
			export.BatchSize = def.BatchSize
		}
	}
	if export.Table == "" {
		export.Table = model.DefaultTable
	}
	if export.WriteDisposition == "" {
		export.WriteDisposition = model.WriteTruncate
	}
	spec.Export = &export

	if m.defaults.RouteTransformFailures {
		spec.RouteTransformFailures = true
	}
	return spec
}

// ValidateSpec checks a job before it is stored
func ValidateSpec(spec model.PipelineJobSpec) error {
	var errs []error
	if len(spec.Sources) == 0 {
		errs = append(errs, errors.New("at least one source is required"))
	}
	for i, src := range spec.Sources {
		if src.URL == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: url is required", i))
		}
		if _, err := pipeline.OpenSource(src); err != nil && src.URL != "" {
			errs = append(errs, fmt.Errorf("sources[%d]: %w", i, err))
		}
	}
	if e := spec.Export; e != nil {
		switch e.WriteDisposition {
		case "", model.WriteTruncate, model.WriteAppend:
		default:
			errs = append(errs, fmt.Errorf("export.writeDisposition must be %q or %q", model.WriteTruncate, model.WriteAppend))
		}
		if e.Table != "" {
			if err := store.ValidateTableName(e.Table); err != nil {
				errs = append(errs, fmt.Errorf("export.table: %w", err))
			}
		}
		if e.BatchSize < 0 {
			errs = append(errs, errors.New("export.batchSize must be non-negative"))
		}
	}
	w := spec.Concurrency.Workers
	if w.Validation < 0 || w.Transform < 0 {
		errs = append(errs, errors.New("worker counts must be non-negative"))
	}
	return errors.Join(errs...)
}

// Submit validates and stores a job, then runs it in the background
func (m *Manager) Submit(ctx context.Context, spec model.PipelineJobSpec) (string, error) {
	if err := ValidateSpec(spec); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	jobID := uuid.New().String()
	if err := m.store.SaveJob(ctx, jobID, spec); err != nil {
		return "", fmt.Errorf("save job: %w", err)
	}
	m.start(jobID, spec)
	return jobID, nil
}

// RunSync validates, stores and runs a job in the calling goroutine. The job
// can be cancelled through ctx only.
func (m *Manager) RunSync(ctx context.Context, spec model.PipelineJobSpec) (string, *pipeline.Result, error) {
	if err := ValidateSpec(spec); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	jobID := uuid.New().String()
	if err := m.store.SaveJob(ctx, jobID, spec); err != nil {
		return "", nil, fmt.Errorf("save job: %w", err)
	}
	result, err := m.Run(ctx, jobID, spec)
	return jobID, result, err
}

// Retry re-runs a finished job with its stored spec
func (m *Manager) Retry(ctx context.Context, jobID string) error {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if m.IsRunning(jobID) {
		return ErrRunning
	}
	if err := m.store.UpdateJobStatus(ctx, jobID, model.StatusPending); err != nil {
		return err
	}
	if !m.start(jobID, job.Spec) {
		return ErrRunning
	}
	return nil
}

// Cancel stops a running job. A job left pending by an earlier process is
// marked cancelled directly.
func (m *Manager) Cancel(ctx context.Context, jobID string) error {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	cancel, running := m.running[jobID]
	m.mu.Unlock()
	if running {
		cancel()
		return nil
	}
	if model.IsTerminal(job.Status) {
		return fmt.Errorf("%w: job is already %s", ErrNotCancellable, job.Status)
	}
	return m.store.UpdateJobStatus(ctx, jobID, model.StatusCancelled)
}

// IsRunning reports whether the job runs in this process
func (m *Manager) IsRunning(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[jobID]
	return ok
}

// Shutdown cancels every running job and waits for them to record their
// final status, or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopAll()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every background job has finished
func (m *Manager) Wait() { m.wg.Wait() }

// start runs the job in the background unless it is already running
func (m *Manager) start(jobID string, spec model.PipelineJobSpec) bool {
	m.mu.Lock()
	if _, ok := m.running[jobID]; ok {
		m.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.running[jobID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.running, jobID)
			m.mu.Unlock()
			cancel()
		}()

		if _, err := m.Run(ctx, jobID, spec); err != nil {
			m.logger.Error("pipeline job failed", "job_id", jobID, "error", err)
		}
	}()
	return true
}

// Run executes jobID synchronously and stores its result. The job must
// already be saved.
func (m *Manager) Run(ctx context.Context, jobID string, spec model.PipelineJobSpec) (*pipeline.Result, error) {
	spec = m.ApplyDefaults(spec)
	logger := m.logger.With("job_id", jobID)

	valid, err := m.openValidTable(ctx, spec.Export)
	if err != nil {
		return m.failEarly(logger, jobID, fmt.Errorf("open valid table: %w", err))
	}
	defer valid.Close()

	if spec.Export.RejectsPath == "" {
		if _, err := m.outputs.CreateJobOutputDir(jobID); err != nil {
			return m.failEarly(logger, jobID, err)
		}
	}
	rejectsPath := m.outputs.ResolveRejectsPath(jobID, spec.Export.RejectsPath)
	rejected, err := pipeline.NewJSONLinesSink(ctx, rejectsPath)
	if err != nil {
		return m.failEarly(logger, jobID, err)
	}
	logger.Info("job outputs resolved", "rejects", rejectsPath, "table", valid.Table())

	result, runErr := pipeline.Run(ctx, pipeline.RunOptions{
		JobID:    jobID,
		Spec:     spec,
		Valid:    valid,
		Rejected: rejected,
		Recorder: m.store,
		Logger:   m.logger,
	})
	if err := rejected.Close(); err != nil {
		logger.Error("failed to close rejects file", "path", rejectsPath, "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("close rejects file: %w", err)
			m.markFailed(logger, jobID, pipeline.StageExport, runErr)
			result.Status = model.StatusFailed
			result.Metrics.Status = model.StatusFailed
		}
	}

	if err := m.store.SaveResult(context.Background(), jobID, result.Metrics, result.Report); err != nil {
		logger.Error("failed to save job result", "error", err)
	}
	return result, runErr
}

func (m *Manager) failEarly(logger *slog.Logger, jobID string, err error) (*pipeline.Result, error) {
	m.markFailed(logger, jobID, "setup", err)
	return nil, err
}

// markFailed records err against stage and fails the job. Store errors are
// logged only, the job error is already being returned.
func (m *Manager) markFailed(logger *slog.Logger, jobID, stage string, err error) {
	ctx := context.Background()
	if serr := m.store.SaveJobError(ctx, jobID, stage, err); serr != nil {
		logger.Warn("failed to save job error", "stage", stage, "error", serr)
	}
	if serr := m.store.UpdateJobStatus(ctx, jobID, model.StatusFailed); serr != nil {
		logger.Warn("failed to update job status", "status", model.StatusFailed, "error", serr)
	}
}
