package model

// Source represents an input dataset for the pipeline
type Source struct {
	Type            string `json:"type" yaml:"type"` // csv (default); gs:// and http(s):// URLs are detected from URL
	URL             string `json:"url" yaml:"url"`
	SkipHeaderLines *int   `json:"skipHeaderLines,omitempty" yaml:"skipHeaderLines,omitempty"` // default 1
}

// HeaderLines returns the number of leading lines to skip
func (s Source) HeaderLines() int {
	if s.SkipHeaderLines == nil {
		return 1
	}
	if *s.SkipHeaderLines < 0 {
		return 0
	}
	return *s.SkipHeaderLines
}

// Export defines where valid and rejected records are written
type Export struct {
	DB               string `json:"db" yaml:"db"`                             // sqlite path or postgres:// URL; empty uses the server store
	Table            string `json:"table" yaml:"table"`                       // default transformed_movie_data
	WriteDisposition string `json:"writeDisposition" yaml:"writeDisposition"` // truncate | append
	RejectsPath      string `json:"rejectsPath" yaml:"rejectsPath"`           // local path or gs:// object
	BatchSize        int    `json:"batchSize" yaml:"batchSize"`
}

// Write dispositions for the valid table
const (
	WriteTruncate = "truncate"
	WriteAppend   = "append"
)

// DefaultTable is the table that receives transformed records
const DefaultTable = "transformed_movie_data"

// PipelineJobSpec defines the entire pipeline configuration
type PipelineJobSpec struct {
	Sources     []Source          `json:"sources" yaml:"sources"`
	Export      *Export           `json:"export,omitempty" yaml:"export,omitempty"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency"`

	// RouteTransformFailures sends records that pass validation but fail
	// type coercion to the rejected sink instead of dropping them.
	RouteTransformFailures bool `json:"routeTransformFailures" yaml:"routeTransformFailures"`
	Logging                bool `json:"logging" yaml:"logging"` // enable per-record debug logs
}

// Job statuses persisted by the store
const (
	StatusPending      = "pending"
	StatusRunning      = "running"
	StatusIngesting    = "ingesting"
	StatusValidating   = "validating"
	StatusTransforming = "transforming"
	StatusExporting    = "exporting"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
	StatusCancelled    = "cancelled"
)

// IsTerminal reports whether a job in this status can no longer change
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
