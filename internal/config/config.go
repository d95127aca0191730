// Package config loads the theater runtime configuration from a JSONC file.
package config

// Config is the root configuration for the theater runtime.
type Config struct {
	Log    LogConfig    `json:"log"`
	Events EventsConfig `json:"events"`
	Stage  StageConfig  `json:"stage"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level string `json:"level"` // "debug" | "info" | "warn" | "error"
}

// EventsConfig configures the runtime event bus.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// StageConfig configures the interrupt budgets, in milliseconds.
type StageConfig struct {
	ImmediateBudgetMs int `json:"immediate_budget_ms"`
	FastBudgetMs      int `json:"fast_budget_ms"`
	NormalBudgetMs    int `json:"normal_budget_ms"`
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
	if cfg.Stage.ImmediateBudgetMs == 0 {
		cfg.Stage.ImmediateBudgetMs = 4
	}
	if cfg.Stage.FastBudgetMs == 0 {
		cfg.Stage.FastBudgetMs = 6
	}
	if cfg.Stage.NormalBudgetMs == 0 {
		cfg.Stage.NormalBudgetMs = 10
	}
}
