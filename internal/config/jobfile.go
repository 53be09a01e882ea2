package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"movie-dq-pipeline/internal/model"
)

// LoadJobFile reads a job definition. Files ending in .json are decoded as
// JSON; everything else is treated as YAML.
func LoadJobFile(path string) (model.PipelineJobSpec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return model.PipelineJobSpec{}, fmt.Errorf("read job file: %w", err)
	}
	return ParseJob(content, filepath.Ext(path))
}

// ParseJob decodes a job definition; ext selects the format
func ParseJob(content []byte, ext string) (model.PipelineJobSpec, error) {
	var spec model.PipelineJobSpec
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(content, &spec); err != nil {
			return spec, fmt.Errorf("parse job JSON: %w", err)
		}
		return spec, nil
	}
	if err := yaml.Unmarshal(content, &spec); err != nil {
		return spec, fmt.Errorf("parse job YAML: %w", err)
	}
	return spec, nil
}
