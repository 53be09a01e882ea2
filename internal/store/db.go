// Package store persists pipeline jobs, their progress and results, and
// provides the relational tables transformed records are written to.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"movie-dq-pipeline/internal/model"
)

// ErrNotFound is returned when a job does not exist
var ErrNotFound = errors.New("job not found")

// Store is the sqlite-backed job store
type Store struct {
	db *sql.DB
}

// Job is a persisted pipeline job
type Job struct {
	ID        string                `json:"id"`
	Spec      model.PipelineJobSpec `json:"spec"`
	Status    string                `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// JobSummary is the list view of a job
type JobSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		spec TEXT,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS job_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT,
		stage TEXT,
		error_message TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS stage_progress (
		job_id TEXT,
		stage TEXT,
		status TEXT,
		started_at DATETIME,
		ended_at DATETIME,
		records_processed INTEGER,
		worker_count INTEGER,
		PRIMARY KEY (job_id, stage)
	);`,
	`CREATE TABLE IF NOT EXISTS job_results (
		job_id TEXT PRIMARY KEY,
		metrics TEXT,
		report TEXT,
		updated_at DATETIME
	);`,
}

// Open connects to the sqlite database at dbPath and creates the job
// tables if they do not exist.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// DB exposes the connection so valid tables can share the database file
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

// SaveJob stores a new pipeline job
func (s *Store) SaveJob(ctx context.Context, jobID string, spec model.PipelineJobSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `INSERT INTO jobs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, string(specJSON), model.StatusPending, now, now)
	return err
}

// GetJob fetches full job spec and status
func (s *Store) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var specJSON string
	job := &Job{ID: jobID}

	err := s.db.QueryRowContext(ctx, `SELECT spec, status, created_at, updated_at FROM jobs WHERE id = ?`, jobID).
		Scan(&specJSON, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(specJSON), &job.Spec); err != nil {
		return nil, fmt.Errorf("decode job spec: %w", err)
	}
	return job, nil
}

// ListJobs returns all jobs, newest first
func (s *Store) ListJobs(ctx context.Context) ([]JobSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, status, created_at, updated_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []JobSummary{}
	for rows.Next() {
		var j JobSummary
		if err := rows.Scan(&j.ID, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus updates job status
func (s *Store) UpdateJobStatus(ctx context.Context, jobID, status string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, status, now, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveJobError records an error for a job
func (s *Store) SaveJobError(ctx context.Context, jobID, stage string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := s.db.ExecContext(ctx, `INSERT INTO job_errors (job_id, stage, error_message, created_at) VALUES (?, ?, ?, ?)`,
		jobID, stage, err.Error(), now)
	return e
}

// GetJobErrors returns the errors recorded for a job, oldest first
func (s *Store) GetJobErrors(ctx context.Context, jobID string) ([]model.ErrorDetail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, error_message, created_at FROM job_errors WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errs := []model.ErrorDetail{}
	for rows.Next() {
		var e model.ErrorDetail
		if err := rows.Scan(&e.Stage, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// SaveStageProgress upserts the progress of one stage
func (s *Store) SaveStageProgress(ctx context.Context, jobID string, sm model.StageMetrics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_progress (job_id, stage, status, started_at, ended_at, records_processed, worker_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, stage) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			records_processed = excluded.records_processed,
			worker_count = excluded.worker_count`,
		jobID, sm.StageName, sm.Status, sm.StartTime, sm.EndTime, sm.RecordsProcessed, sm.WorkerCount)
	return err
}

// GetStageProgress returns the persisted stages of a job
func (s *Store) GetStageProgress(ctx context.Context, jobID string) ([]model.StageMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, status, started_at, ended_at, records_processed, worker_count
		FROM stage_progress WHERE job_id = ? ORDER BY started_at`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := []model.StageMetrics{}
	for rows.Next() {
		var (
			sm    model.StageMetrics
			ended sql.NullTime
		)
		if err := rows.Scan(&sm.StageName, &sm.Status, &sm.StartTime, &ended, &sm.RecordsProcessed, &sm.WorkerCount); err != nil {
			return nil, err
		}
		if ended.Valid {
			end := ended.Time
			sm.EndTime = &end
			sm.Duration = end.Sub(sm.StartTime)
		}
		stages = append(stages, sm)
	}
	return stages, rows.Err()
}

// SaveResult stores the final metrics and quality report of a run
func (s *Store) SaveResult(ctx context.Context, jobID string, metrics model.PipelineMetrics, report model.QualityReport) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_results (job_id, metrics, report, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			metrics = excluded.metrics,
			report = excluded.report,
			updated_at = excluded.updated_at`,
		jobID, string(metricsJSON), string(reportJSON), time.Now().UTC())
	return err
}

// GetMetrics returns the stored metrics of a finished run
func (s *Store) GetMetrics(ctx context.Context, jobID string) (*model.PipelineMetrics, error) {
	var m model.PipelineMetrics
	if err := s.getResult(ctx, jobID, "metrics", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetReport returns the stored quality report of a finished run
func (s *Store) GetReport(ctx context.Context, jobID string) (*model.QualityReport, error) {
	var r model.QualityReport
	if err := s.getResult(ctx, jobID, "report", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) getResult(ctx context.Context, jobID, column string, v any) error {
	var raw string
	// column is one of two fixed names
	err := s.db.QueryRowContext(ctx, `SELECT `+column+` FROM job_results WHERE job_id = ?`, jobID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}
