package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "scheduler.max_parallel")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config and returns all validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateRunner()...)
	errors = append(errors, c.validateWatch()...)
	errors = append(errors, c.validateLogging()...)
	return errors
}

func (c *Config) validateScheduler() []ValidationError {
	var errors []ValidationError

	if c.Scheduler.MaxParallel < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.max_parallel",
			Value:   c.Scheduler.MaxParallel,
			Message: "must be at least 1",
		})
	}
	if c.Scheduler.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.max_retries",
			Value:   c.Scheduler.MaxRetries,
			Message: "must not be negative",
		})
	}
	if c.Scheduler.PhaseThreshold <= 0 || c.Scheduler.PhaseThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.phase_threshold",
			Value:   c.Scheduler.PhaseThreshold,
			Message: "must be in (0, 1]",
		})
	}
	if c.Scheduler.StuckTimeoutMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.stuck_timeout_minutes",
			Value:   c.Scheduler.StuckTimeoutMinutes,
			Message: "must not be negative (0 uses the default)",
		})
	}

	return errors
}

func (c *Config) validateRunner() []ValidationError {
	var errors []ValidationError

	if c.Runner.PollIntervalMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "runner.poll_interval_ms",
			Value:   c.Runner.PollIntervalMs,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	if c.Watch.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must not be negative (0 disables rotation)",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must not be negative",
		})
	}

	return errors
}
