// Package config loads application settings from environment variables and
// pipeline job definitions from YAML or JSON files.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including running jobs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// StorageConfig holds where jobs and outputs are kept.
type StorageConfig struct {
	// SQLitePath is the job store, also the default valid table location
	SQLitePath string `env:"SQLITE_PATH" envAlt:"DB_PATH" default:"pipeline.db"`

	// PostgresURL, when set, makes Postgres the default valid table
	PostgresURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// OutputDir holds per-job outputs such as bad_data/errors.json
	OutputDir string `env:"OUTPUT_DIR" default:"outputs"`
}

// PipelineConfig holds defaults applied to jobs that leave them unset.
type PipelineConfig struct {
	ValidationWorkers int    `env:"PIPELINE_VALIDATION_WORKERS" default:"3"`
	TransformWorkers  int    `env:"PIPELINE_TRANSFORM_WORKERS" default:"2"`
	ChannelBufferSize int    `env:"PIPELINE_CHANNEL_BUFFER" default:"100"`
	BatchSize         int    `env:"PIPELINE_BATCH_SIZE" default:"500"`
	JobTimeout        string `env:"PIPELINE_JOB_TIMEOUT" default:"5m"`

	// RouteTransformFailures sends coercion failures to the rejects file
	// instead of dropping them (default: false)
	RouteTransformFailures bool `env:"PIPELINE_ROUTE_TRANSFORM_FAILURES" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
