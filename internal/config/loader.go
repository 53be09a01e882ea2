package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"movie-dq-pipeline/internal/model"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Storage.SQLitePath == "" {
		errs = append(errs, "SQLITE_PATH is required")
	}
	if c.Storage.PostgresURL != "" && !strings.HasPrefix(c.Storage.PostgresURL, "postgres") {
		errs = append(errs, "DATABASE_URL must be a postgres:// URL")
	}

	if c.Pipeline.ValidationWorkers <= 0 {
		errs = append(errs, "PIPELINE_VALIDATION_WORKERS must be positive")
	}
	if c.Pipeline.TransformWorkers <= 0 {
		errs = append(errs, "PIPELINE_TRANSFORM_WORKERS must be positive")
	}
	if c.Pipeline.ChannelBufferSize < 0 {
		errs = append(errs, "PIPELINE_CHANNEL_BUFFER must be non-negative")
	}
	if c.Pipeline.BatchSize <= 0 {
		errs = append(errs, "PIPELINE_BATCH_SIZE must be positive")
	}
	if d, err := time.ParseDuration(c.Pipeline.JobTimeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Sprintf("PIPELINE_JOB_TIMEOUT (%q) must be a positive duration", c.Pipeline.JobTimeout))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// JobDefaults returns the job settings applied where a submitted job
// leaves them unset.
func (c *Config) JobDefaults() model.PipelineJobSpec {
	return model.PipelineJobSpec{
		Export: &model.Export{
			WriteDisposition: model.WriteTruncate,
			BatchSize:        c.Pipeline.BatchSize,
		},
		Concurrency: model.ConcurrencyConfig{
			Workers: model.Workers{
				Validation: c.Pipeline.ValidationWorkers,
				Transform:  c.Pipeline.TransformWorkers,
			},
			ChannelBufferSize: c.Pipeline.ChannelBufferSize,
			JobTimeout:        c.Pipeline.JobTimeout,
		},
		RouteTransformFailures: c.Pipeline.RouteTransformFailures,
	}
}

// String returns a safe string representation of the config for logging.
// The Postgres URL is masked.
func (c *Config) String() string {
	pg := ""
	if c.Storage.PostgresURL != "" {
		pg = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Storage: {SQLitePath: %q, PostgresURL: %q, OutputDir: %q}, ",
		c.Storage.SQLitePath, pg, c.Storage.OutputDir))
	b.WriteString(fmt.Sprintf("Pipeline: {Workers: %d/%d, Buffer: %d, Batch: %d, Timeout: %s}, ",
		c.Pipeline.ValidationWorkers, c.Pipeline.TransformWorkers, c.Pipeline.ChannelBufferSize,
		c.Pipeline.BatchSize, c.Pipeline.JobTimeout))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
