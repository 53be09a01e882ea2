package model

// Workers defines number of workers per stage
type Workers struct {
	Validation int `json:"validation" yaml:"validation"`
	Transform  int `json:"transform" yaml:"transform"`
}

// ConcurrencyConfig defines extra concurrency and job options
type ConcurrencyConfig struct {
	Workers           Workers `json:"workers" yaml:"workers"`
	ChannelBufferSize int     `json:"channelBufferSize" yaml:"channelBufferSize"`
	JobTimeout        string  `json:"jobTimeout" yaml:"jobTimeout"` // e.g., "5m"
}

// WithDefaults fills unset values with the given defaults
func (c ConcurrencyConfig) WithDefaults(def ConcurrencyConfig) ConcurrencyConfig {
	if c.Workers.Validation <= 0 {
		c.Workers.Validation = def.Workers.Validation
	}
	if c.Workers.Transform <= 0 {
		c.Workers.Transform = def.Workers.Transform
	}
	if c.ChannelBufferSize <= 0 {
		c.ChannelBufferSize = def.ChannelBufferSize
	}
	if c.JobTimeout == "" {
		c.JobTimeout = def.JobTimeout
	}
	return c
}
