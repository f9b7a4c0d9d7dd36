// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
)

// Config represents the top-level configuration.
// Maps to the `batadv:` root key in YAML.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Decoder DecoderConfig `mapstructure:"decoder"`
	Sinks   SinksConfig   `mapstructure:"sinks"`
}

// ─── Decoder ───

// DecoderConfig configures the capture runner and its decoders.
type DecoderConfig struct {
	EtherType  uint16           `mapstructure:"ethertype"`   // Integer or "0x" string, default 0x4305
	Workers    int              `mapstructure:"workers"`     // Default 1 (capture order preserved)
	BufferSize int              `mapstructure:"buffer_size"` // Per-worker frame queue
	Ethernet   bool             `mapstructure:"ethernet"`    // Decode inner Ethernet frames, default true
	Reassembly ReassemblyConfig `mapstructure:"reassembly"`
}

// ReassemblyConfig bounds the per-worker fragment assembly tables.
type ReassemblyConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAssemblies     int           `mapstructure:"max_assemblies"`
	MaxParts          int           `mapstructure:"max_parts"`
	MaxReassembleSize int           `mapstructure:"max_reassemble_size"`
	MaxFragsPerSource int           `mapstructure:"max_frags_per_source"` // 0 = no rate limit
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// Options converts the section to decoder settings.
func (r ReassemblyConfig) Options() decoder.ReassemblyConfig {
	return decoder.ReassemblyConfig{
		MaxAssemblies:     r.MaxAssemblies,
		MaxParts:          r.MaxParts,
		MaxReassembleSize: r.MaxReassembleSize,
		Timeout:           r.Timeout,
		MaxFragsPerSource: r.MaxFragsPerSource,
		RateLimitWindow:   r.RateLimitWindow,
		CleanupInterval:   r.CleanupInterval,
	}
}

// ─── Sinks ───

// SinksConfig selects the consumers of decoded frames and tapped headers.
type SinksConfig struct {
	Console     ConsoleSinkConfig     `mapstructure:"console"`
	Kafka       KafkaSinkConfig       `mapstructure:"kafka"`
	Originators OriginatorsSinkConfig `mapstructure:"originators"`
	Stats       StatsSinkConfig       `mapstructure:"stats"`
}

// ConsoleSinkConfig writes decoded frames to stdout.
type ConsoleSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Format  string `mapstructure:"format"` // text / json / yaml
}

// KafkaSinkConfig publishes tapped headers. Everything except `enabled`
// is handed to the sink as a free-form option map.
type KafkaSinkConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Options map[string]any `mapstructure:",remain"`
}

// OriginatorsSinkConfig keeps the originator table.
type OriginatorsSinkConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// StatsSinkConfig counts tapped headers per protocol version.
type StatsSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string           `mapstructure:"level"`  // debug / info / warn / error
	Format string           `mapstructure:"format"` // json / text
	File   FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`  // MB
	MaxAgeDays int  `mapstructure:"max_age_days"` // Days
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `batadv: ...`.
type configRoot struct {
	Batadv Config `mapstructure:"batadv"`
}

// Load loads configuration from file. An empty path yields the defaults
// plus environment overrides.
// The YAML file uses `batadv:` as root key; env vars use the BATADV_ prefix (e.g., BATADV_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `batadv.` key prefix maps to `BATADV_` in env vars via the key
	// replacer (e.g., key "batadv.log.level" → env "BATADV_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Batadv

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "batadv." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("batadv.log.level", "info")
	v.SetDefault("batadv.log.format", "text")
	v.SetDefault("batadv.log.file.enabled", false)
	v.SetDefault("batadv.log.file.path", "/var/log/batadv/batadv.log")
	v.SetDefault("batadv.log.file.rotation.max_size_mb", 100)
	v.SetDefault("batadv.log.file.rotation.max_age_days", 30)
	v.SetDefault("batadv.log.file.rotation.max_backups", 5)
	v.SetDefault("batadv.log.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("batadv.metrics.enabled", false)
	v.SetDefault("batadv.metrics.listen", ":9091")
	v.SetDefault("batadv.metrics.path", "/metrics")

	// Decoder defaults
	v.SetDefault("batadv.decoder.ethertype", 0x4305)
	v.SetDefault("batadv.decoder.workers", 1)
	v.SetDefault("batadv.decoder.buffer_size", 256)
	v.SetDefault("batadv.decoder.ethernet", true)
	v.SetDefault("batadv.decoder.reassembly.timeout", "30s")
	v.SetDefault("batadv.decoder.reassembly.max_assemblies", 1024)
	v.SetDefault("batadv.decoder.reassembly.max_parts", 16)
	v.SetDefault("batadv.decoder.reassembly.max_reassemble_size", 65535)
	v.SetDefault("batadv.decoder.reassembly.max_frags_per_source", 0)
	v.SetDefault("batadv.decoder.reassembly.rate_limit_window", "10s")
	v.SetDefault("batadv.decoder.reassembly.cleanup_interval", "10s")

	// Sink defaults
	v.SetDefault("batadv.sinks.console.enabled", true)
	v.SetDefault("batadv.sinks.console.format", "text")
	v.SetDefault("batadv.sinks.kafka.enabled", false)
	v.SetDefault("batadv.sinks.originators.enabled", false)
	v.SetDefault("batadv.sinks.originators.ttl", "5m")
	v.SetDefault("batadv.sinks.stats.enabled", false)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// ── Decoder ──
	// Values below 0x0600 are 802.3 length fields, not ethertypes.
	if cfg.Decoder.EtherType < 0x0600 {
		return fmt.Errorf("%w: invalid decoder.ethertype: 0x%04x (must be at least 0x0600)", core.ErrConfigInvalid, cfg.Decoder.EtherType)
	}
	if cfg.Decoder.Workers < 1 {
		return fmt.Errorf("%w: invalid decoder.workers: %d (must be at least 1)", core.ErrConfigInvalid, cfg.Decoder.Workers)
	}
	if cfg.Decoder.BufferSize <= 0 {
		cfg.Decoder.BufferSize = 256
	}
	r := cfg.Decoder.Reassembly
	if r.Timeout < 0 || r.RateLimitWindow < 0 || r.CleanupInterval < 0 {
		return fmt.Errorf("%w: decoder.reassembly durations must not be negative", core.ErrConfigInvalid)
	}
	if r.MaxAssemblies < 0 || r.MaxParts < 0 || r.MaxReassembleSize < 0 || r.MaxFragsPerSource < 0 {
		return fmt.Errorf("%w: decoder.reassembly limits must not be negative", core.ErrConfigInvalid)
	}

	// ── Sinks ──
	switch cfg.Sinks.Console.Format {
	case "":
		cfg.Sinks.Console.Format = "text"
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: invalid sinks.console.format: %s (must be text/json/yaml)", core.ErrConfigInvalid, cfg.Sinks.Console.Format)
	}
	if cfg.Sinks.Kafka.Enabled && len(cfg.Sinks.Kafka.Options) == 0 {
		return fmt.Errorf("%w: sinks.kafka requires brokers and topic when sinks.kafka.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Sinks.Originators.TTL <= 0 {
		cfg.Sinks.Originators.TTL = 5 * time.Minute
	}

	return nil
}
