package utils

import (
	"strconv"
	"time"
)

// DefaultJobTimeout applies when a job names no timeout or an invalid one
const DefaultJobTimeout = 5 * time.Minute

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string) time.Duration {
	if d == "" {
		return DefaultJobTimeout
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return DefaultJobTimeout
	}
	return duration
}

// ParseLimit reads a positive row limit from a query value, falling back
// to def and capping at max.
func ParseLimit(s string, def, max int) int {
	limit := def
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		limit = n
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
