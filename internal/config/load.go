package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadOptions controls where Load looks for config beyond the built-in
// defaults, mirroring the teacher's LoadOptions{ProjectDir,
// ProjectConfigPath, FlagOverrides} shape.
type LoadOptions struct {
	// ProjectDir, if set, is searched for a `.slb-mcp-gateway/enterprise-config.json`.
	ProjectDir string
	// ProjectConfigPath, if set, overrides the derived project config path.
	ProjectConfigPath string
	// ConfigPathOverride, if set (e.g. from SLB_MCP_CONFIG or a --config
	// flag), is read in place of the user-level config path.
	ConfigPathOverride string
	// FlagOverrides holds dotted-key values from CLI flags, applied after
	// everything else (highest precedence).
	FlagOverrides map[string]any
}

// Load merges defaults < user config < project config < environment
// (SLB_MCP_*) < flags, in that order, and validates the result.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	v.SetEnvPrefix("SLB_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	userPath, projectPath := ConfigPaths(opts.ProjectDir)
	if opts.ConfigPathOverride != "" {
		userPath = opts.ConfigPathOverride
	}
	if opts.ProjectConfigPath != "" {
		projectPath = opts.ProjectConfigPath
	}

	if err := mergeConfigFile(v, userPath); err != nil {
		return Config{}, fmt.Errorf("loading user config: %w", err)
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return Config{}, fmt.Errorf("loading project config: %w", err)
	}

	for key, value := range opts.FlagOverrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeConfigFile merges path into v if it exists; a missing file is not an
// error since both user and project config are optional layers.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return v.MergeConfig(f)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("security.allowedWriteRoots", d.Security.AllowedWriteRoots)
	v.SetDefault("security.enforceWorkingDirectory", d.Security.EnforceWorkingDirectory)
	v.SetDefault("security.additionalSafe", d.Security.AdditionalSafe)
	v.SetDefault("security.additionalBlocked", d.Security.AdditionalBlocked)
	v.SetDefault("security.suppressPatterns", d.Security.SuppressPatterns)
	v.SetDefault("security.requireConfirmationForUnknown", d.Security.RequireConfirmationForUnknown)
	v.SetDefault("security.operatorAuthToken", d.Security.OperatorAuthToken)

	v.SetDefault("limits.maxOutputKB", d.Limits.MaxOutputKB)
	v.SetDefault("limits.maxLines", d.Limits.MaxLines)
	v.SetDefault("limits.chunkKB", d.Limits.ChunkKB)
	v.SetDefault("limits.defaultTimeoutMs", d.Limits.DefaultTimeoutMs)
	v.SetDefault("limits.maxTimeoutSeconds", d.Limits.MaxTimeoutSeconds)
	v.SetDefault("limits.hardKillOnOverflow", d.Limits.HardKillOnOverflow)

	v.SetDefault("rateLimit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rateLimit.intervalMs", d.RateLimit.IntervalMs)
	v.SetDefault("rateLimit.maxRequests", d.RateLimit.MaxRequests)
	v.SetDefault("rateLimit.burst", d.RateLimit.Burst)

	v.SetDefault("logging.structuredAudit", d.Logging.StructuredAudit)
	v.SetDefault("logging.truncateIndicator", d.Logging.TruncateIndicator)
	v.SetDefault("logging.maxLogMessageChars", d.Logging.MaxLogMessageChars)

	v.SetDefault("http.enabled", d.HTTP.Enabled)
	v.SetDefault("http.addr", d.HTTP.Addr)
}
