package model

import "time"

// PipelineMetrics represents overall pipeline performance metrics
type PipelineMetrics struct {
	JobID              string                  `json:"job_id"`
	Status             string                  `json:"status"`
	StartTime          time.Time               `json:"start_time"`
	EndTime            *time.Time              `json:"end_time,omitempty"`
	Duration           time.Duration           `json:"duration"`
	LinesRead          int64                   `json:"lines_read"`
	ValidRecords       int64                   `json:"valid_records"`
	RejectedRecords    int64                   `json:"rejected_records"`
	TransformedRecords int64                   `json:"transformed_records"`
	DroppedRecords     int64                   `json:"dropped_records"`
	ExportedRecords    int64                   `json:"exported_records"`
	SinkErrors         int64                   `json:"sink_errors"`
	ThroughputRPS      float64                 `json:"throughput_rps"`
	StageMetrics       map[string]StageMetrics `json:"stage_metrics"`
}

// StageMetrics represents metrics for a specific pipeline stage
type StageMetrics struct {
	StageName        string        `json:"stage_name"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          *time.Time    `json:"end_time,omitempty"`
	Duration         time.Duration `json:"duration"`
	RecordsProcessed int64         `json:"records_processed"`
	WorkerCount      int           `json:"worker_count"`
	Status           string        `json:"status"` // running, completed
}

// ErrorDetail represents a job-level error with context
type ErrorDetail struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// QualityReport summarises the data quality of one job run
type QualityReport struct {
	JobID           string           `json:"job_id"`
	TotalRecords    int64            `json:"total_records"`
	ValidRecords    int64            `json:"valid_records"`
	RejectedRecords int64            `json:"rejected_records"`
	DroppedRecords  int64            `json:"dropped_records"`
	RuleViolations  map[string]int64 `json:"rule_violations"`
	ValidByYear     map[int64]int64  `json:"valid_by_year"`
	MeanIMDBRating  float64          `json:"mean_imdb_rating"`
}
