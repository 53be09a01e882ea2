package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default locations of a job's rejected records, relative to its output dir
const (
	BadDataDir      = "bad_data"
	RejectsFileName = "errors.json"
)

// OutputManager handles output file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// JobOutputDir returns the directory holding a job's outputs
func (om *OutputManager) JobOutputDir(jobID string) string {
	return filepath.Join(om.BaseOutputDir, jobID)
}

// CreateJobOutputDir creates the directory for a job's outputs
func (om *OutputManager) CreateJobOutputDir(jobID string) (string, error) {
	jobDir := om.JobOutputDir(jobID)

	err := os.MkdirAll(jobDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create job output directory: %w", err)
	}

	return jobDir, nil
}

// RejectsPath returns where a job writes rejected records:
// <base>/<job-id>/bad_data/errors.json
func (om *OutputManager) RejectsPath(jobID string) string {
	return filepath.Join(om.JobOutputDir(jobID), BadDataDir, RejectsFileName)
}

// ResolveRejectsPath picks the configured path when set, otherwise the job
// default. gs:// paths are returned as-is; local paths may use {job_id}.
func (om *OutputManager) ResolveRejectsPath(jobID, configured string) string {
	if configured == "" {
		return om.RejectsPath(jobID)
	}
	return strings.ReplaceAll(configured, "{job_id}", jobID)
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0755)
}
