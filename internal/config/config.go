// Package config loads and validates stagehand configuration via viper.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete stagehand configuration.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	State     StateConfig     `mapstructure:"state"`
}

// SchedulerConfig controls batch assembly and readiness evaluation.
type SchedulerConfig struct {
	// MaxParallel is the largest batch the scheduler will propose.
	MaxParallel int `mapstructure:"max_parallel"`
	// MaxRetries caps how many times a failed task may be retried.
	MaxRetries int `mapstructure:"max_retries"`
	// PhaseThreshold is the satisfied fraction of every earlier phase
	// required before a later phase may start, in (0, 1].
	PhaseThreshold float64 `mapstructure:"phase_threshold"`
	// StuckTimeoutMinutes is how long a task may stay in_progress before
	// the sweep reports it as stuck.
	StuckTimeoutMinutes int `mapstructure:"stuck_timeout_minutes"`
}

// RunnerConfig controls the built-in batch executor.
type RunnerConfig struct {
	// Command is the shell command run per task. The task ID is appended
	// as the final argument.
	Command string `mapstructure:"command"`
	// PollIntervalMs is the pause between scheduling rounds when no task
	// finished, in milliseconds.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// WatchConfig controls the live status view.
type WatchConfig struct {
	// DebounceMs coalesces file change events arriving within this many
	// milliseconds into one refresh.
	DebounceMs int `mapstructure:"debounce_ms"`
}

// LoggingConfig controls debug logging behavior.
type LoggingConfig struct {
	// Enabled controls whether the log file is written.
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log file size in megabytes before rotation.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `mapstructure:"max_backups"`
}

// StateConfig controls where stagehand keeps its files.
type StateConfig struct {
	// Dir is the state directory. Relative paths resolve against the
	// working directory; ~ expands to the home directory.
	Dir string `mapstructure:"dir"`
	// PlanFile is the default plan file path.
	PlanFile string `mapstructure:"plan_file"`
}

// StuckTimeout returns the stuck timeout as a time.Duration.
func (c *SchedulerConfig) StuckTimeout() time.Duration {
	return time.Duration(c.StuckTimeoutMinutes) * time.Minute
}

// PollInterval returns the poll interval as a time.Duration.
func (c *RunnerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Debounce returns the watch debounce as a time.Duration.
func (c *WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// ResolveDir returns the resolved state directory. An empty Dir falls
// back to ".stagehand" under baseDir.
func (c *StateConfig) ResolveDir(baseDir string) string {
	if c.Dir == "" {
		return filepath.Join(baseDir, ".stagehand")
	}

	path := c.Dir
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// Default returns a Config with the standard values.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxParallel:         4,
			MaxRetries:          2,
			PhaseThreshold:      0.8,
			StuckTimeoutMinutes: 30,
		},
		Runner: RunnerConfig{
			Command:        "",
			PollIntervalMs: 2000,
		},
		Watch: WatchConfig{
			DebounceMs: 250,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		State: StateConfig{
			Dir:      "",
			PlanFile: "stagehand-plan.json",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("scheduler.max_parallel", defaults.Scheduler.MaxParallel)
	viper.SetDefault("scheduler.max_retries", defaults.Scheduler.MaxRetries)
	viper.SetDefault("scheduler.phase_threshold", defaults.Scheduler.PhaseThreshold)
	viper.SetDefault("scheduler.stuck_timeout_minutes", defaults.Scheduler.StuckTimeoutMinutes)

	viper.SetDefault("runner.command", defaults.Runner.Command)
	viper.SetDefault("runner.poll_interval_ms", defaults.Runner.PollIntervalMs)

	viper.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("state.dir", defaults.State.Dir)
	viper.SetDefault("state.plan_file", defaults.State.PlanFile)
}

// Load reads the configuration from viper and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stagehand")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stagehand"
	}
	return filepath.Join(home, ".config", "stagehand")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
