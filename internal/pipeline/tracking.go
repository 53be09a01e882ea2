package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"movie-dq-pipeline/internal/model"
)

// Stage names used for tracking and persisted progress
const (
	StageIngestion      = "ingestion"
	StageValidation     = "validation"
	StageTransformation = "transformation"
	StageExport         = "export"
)

// PipelineTracker collects counters and stage timings for one job.
// Counter methods are safe to call from any worker; a nil tracker is a no-op.
type PipelineTracker struct {
	JobID string

	linesRead   atomic.Int64
	valid       atomic.Int64
	rejected    atomic.Int64
	transformed atomic.Int64
	dropped     atomic.Int64
	exported    atomic.Int64
	sinkErrors  atomic.Int64

	mu        sync.RWMutex
	status    string
	startTime time.Time
	endTime   *time.Time
	stages    map[string]model.StageMetrics
	errors    []model.ErrorDetail
}

// NewPipelineTracker creates a tracker for jobID
func NewPipelineTracker(jobID string) *PipelineTracker {
	return &PipelineTracker{
		JobID:     jobID,
		status:    model.StatusPending,
		startTime: time.Now(),
		stages:    make(map[string]model.StageMetrics),
	}
}

func (pt *PipelineTracker) AddLinesRead(n int64) {
	if pt != nil {
		pt.linesRead.Add(n)
	}
}

func (pt *PipelineTracker) AddValid(n int64) {
	if pt != nil {
		pt.valid.Add(n)
	}
}

func (pt *PipelineTracker) AddRejected(n int64) {
	if pt != nil {
		pt.rejected.Add(n)
	}
}

func (pt *PipelineTracker) AddTransformed(n int64) {
	if pt != nil {
		pt.transformed.Add(n)
	}
}

func (pt *PipelineTracker) AddDropped(n int64) {
	if pt != nil {
		pt.dropped.Add(n)
	}
}

func (pt *PipelineTracker) AddExported(n int64) {
	if pt != nil {
		pt.exported.Add(n)
	}
}

func (pt *PipelineTracker) AddSinkError() {
	if pt != nil {
		pt.sinkErrors.Add(1)
	}
}

// SetStatus records the current job status
func (pt *PipelineTracker) SetStatus(status string) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	pt.status = status
	pt.mu.Unlock()
}

// StartStage marks the beginning of a stage
func (pt *PipelineTracker) StartStage(stage string, workerCount int) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.stages[stage] = model.StageMetrics{
		StageName:   stage,
		StartTime:   time.Now(),
		WorkerCount: workerCount,
		Status:      "running",
	}
}

// EndStage marks a stage as completed with the number of records it handled
func (pt *PipelineTracker) EndStage(stage string, recordsProcessed int64) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()

	now := time.Now()
	sm := pt.stages[stage]
	if sm.StartTime.IsZero() {
		sm.StageName = stage
		sm.StartTime = now
	}
	sm.EndTime = &now
	sm.Duration = now.Sub(sm.StartTime)
	sm.RecordsProcessed = recordsProcessed
	sm.Status = "completed"
	pt.stages[stage] = sm
}

// Stage returns the metrics of one stage
func (pt *PipelineTracker) Stage(stage string) (model.StageMetrics, bool) {
	if pt == nil {
		return model.StageMetrics{}, false
	}
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	sm, ok := pt.stages[stage]
	return sm, ok
}

// RecordError keeps a job-level error for the metrics snapshot
func (pt *PipelineTracker) RecordError(stage string, err error) {
	if pt == nil || err == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.errors = append(pt.errors, model.ErrorDetail{
		Stage:     stage,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}

// Errors returns a copy of the recorded job-level errors
func (pt *PipelineTracker) Errors() []model.ErrorDetail {
	if pt == nil {
		return nil
	}
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return append([]model.ErrorDetail(nil), pt.errors...)
}

// Finish stamps the end time and final status
func (pt *PipelineTracker) Finish(status string) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	now := time.Now()
	pt.endTime = &now
	pt.status = status
}

// Snapshot returns the current metrics
func (pt *PipelineTracker) Snapshot() model.PipelineMetrics {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	end := time.Now()
	if pt.endTime != nil {
		end = *pt.endTime
	}
	duration := end.Sub(pt.startTime)

	stages := make(map[string]model.StageMetrics, len(pt.stages))
	for k, v := range pt.stages {
		stages[k] = v
	}

	m := model.PipelineMetrics{
		JobID:              pt.JobID,
		Status:             pt.status,
		StartTime:          pt.startTime,
		EndTime:            pt.endTime,
		Duration:           duration,
		LinesRead:          pt.linesRead.Load(),
		ValidRecords:       pt.valid.Load(),
		RejectedRecords:    pt.rejected.Load(),
		TransformedRecords: pt.transformed.Load(),
		DroppedRecords:     pt.dropped.Load(),
		ExportedRecords:    pt.exported.Load(),
		SinkErrors:         pt.sinkErrors.Load(),
		StageMetrics:       stages,
	}
	if secs := duration.Seconds(); secs > 0 {
		m.ThroughputRPS = float64(m.LinesRead) / secs
	}
	return m
}
