// Package config implements the Config & Pattern Store's configuration
// half (C1): loading `enterprise-config.json` with defaults < user config <
// project config < environment < flag precedence, and exposing the typed
// Config the rest of the process reads from.
package config

import "fmt"

// SecurityConfig is `security.*` (§6.6).
type SecurityConfig struct {
	AllowedWriteRoots             []string `mapstructure:"allowedWriteRoots" json:"allowedWriteRoots"`
	EnforceWorkingDirectory       bool     `mapstructure:"enforceWorkingDirectory" json:"enforceWorkingDirectory"`
	AdditionalSafe                []string `mapstructure:"additionalSafe" json:"additionalSafe"`
	AdditionalBlocked             []string `mapstructure:"additionalBlocked" json:"additionalBlocked"`
	SuppressPatterns              []string `mapstructure:"suppressPatterns" json:"suppressPatterns"`
	RequireConfirmationForUnknown bool     `mapstructure:"requireConfirmationForUnknown" json:"requireConfirmationForUnknown"`
	OperatorAuthToken             string   `mapstructure:"operatorAuthToken" json:"operatorAuthToken,omitempty"`
}

// LimitsConfig is `limits.*` (§6.6).
type LimitsConfig struct {
	MaxOutputKB        int64 `mapstructure:"maxOutputKB" json:"maxOutputKB"`
	MaxLines           int64 `mapstructure:"maxLines" json:"maxLines"`
	ChunkKB            int64 `mapstructure:"chunkKB" json:"chunkKB"`
	DefaultTimeoutMs   int64 `mapstructure:"defaultTimeoutMs" json:"defaultTimeoutMs"`
	MaxTimeoutSeconds  int64 `mapstructure:"maxTimeoutSeconds" json:"maxTimeoutSeconds"`
	HardKillOnOverflow bool  `mapstructure:"hardKillOnOverflow" json:"hardKillOnOverflow"`
}

// RateLimitConfig is `rateLimit.*` (§6.6).
type RateLimitConfig struct {
	Enabled     bool  `mapstructure:"enabled" json:"enabled"`
	IntervalMs  int64 `mapstructure:"intervalMs" json:"intervalMs"`
	MaxRequests int64 `mapstructure:"maxRequests" json:"maxRequests"`
	Burst       int64 `mapstructure:"burst" json:"burst"`
}

// LoggingConfig is `logging.*` (§6.6).
type LoggingConfig struct {
	StructuredAudit    bool   `mapstructure:"structuredAudit" json:"structuredAudit"`
	TruncateIndicator  string `mapstructure:"truncateIndicator" json:"truncateIndicator"`
	MaxLogMessageChars int    `mapstructure:"maxLogMessageChars" json:"maxLogMessageChars"`
}

// HTTPConfig configures the optional metrics/dashboard surface
// (internal/httpapi — an external collaborator per spec §1, given a home
// here since SPEC_FULL wires it for real).
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr"`
}

// Config is the full merged configuration (§6.6).
type Config struct {
	Security  SecurityConfig  `mapstructure:"security" json:"security"`
	Limits    LimitsConfig    `mapstructure:"limits" json:"limits"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" json:"rateLimit"`
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http" json:"http"`
}

// DefaultConfig returns the built-in defaults, before any file/env/flag
// overrides are merged.
func DefaultConfig() Config {
	return Config{
		Security: SecurityConfig{
			AllowedWriteRoots:             []string{"${TEMP}"},
			EnforceWorkingDirectory:       true,
			RequireConfirmationForUnknown: true,
		},
		Limits: LimitsConfig{
			MaxOutputKB:        512,
			MaxLines:           20_000,
			ChunkKB:            64,
			DefaultTimeoutMs:   30_000,
			MaxTimeoutSeconds:  180,
			HardKillOnOverflow: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			IntervalMs:  60_000,
			MaxRequests: 60,
			Burst:       10,
		},
		Logging: LoggingConfig{
			StructuredAudit:    true,
			TruncateIndicator:  "...[truncated]",
			MaxLogMessageChars: 4000,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8787",
		},
	}
}

// Validate enforces the invariants the rest of the system assumes hold
// (mirrors the teacher's `Validate(cfg)` accumulating-errors pattern).
func Validate(cfg Config) error {
	var errs []string

	if cfg.Limits.MaxOutputKB <= 0 {
		errs = append(errs, "limits.maxOutputKB must be > 0")
	}
	if cfg.Limits.MaxLines <= 0 {
		errs = append(errs, "limits.maxLines must be > 0")
	}
	if cfg.Limits.ChunkKB <= 0 {
		errs = append(errs, "limits.chunkKB must be > 0")
	}
	if cfg.Limits.DefaultTimeoutMs <= 0 {
		errs = append(errs, "limits.defaultTimeoutMs must be > 0")
	}
	if cfg.Limits.MaxTimeoutSeconds <= 0 {
		errs = append(errs, "limits.maxTimeoutSeconds must be > 0")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.IntervalMs <= 0 {
			errs = append(errs, "rateLimit.intervalMs must be > 0 when enabled")
		}
		if cfg.RateLimit.MaxRequests <= 0 {
			errs = append(errs, "rateLimit.maxRequests must be > 0 when enabled")
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, "rateLimit.burst must be > 0 when enabled")
		}
	}
	if cfg.Logging.MaxLogMessageChars <= 0 {
		errs = append(errs, "logging.maxLogMessageChars must be > 0")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %v", errs)
}
