package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"firestige.xyz/batadv/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batadv.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
batadv:
  log:
    level: "debug"
    format: "json"
  metrics:
    enabled: true
    listen: "127.0.0.1:9100"
  decoder:
    ethertype: "0x88b5"
    workers: 4
    reassembly:
      timeout: "5s"
      max_frags_per_source: 200
  sinks:
    console:
      format: "yaml"
    kafka:
      enabled: true
      brokers:
        - "localhost:9092"
      topic: "batadv-taps"
      encoding: "proto"
    originators:
      enabled: true
      ttl: "90s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected log format json, got %s", cfg.Log.Format)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "127.0.0.1:9100" {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Expected default metrics path, got %s", cfg.Metrics.Path)
	}
	if cfg.Decoder.EtherType != 0x88b5 {
		t.Errorf("Expected ethertype 0x88b5, got 0x%04x", cfg.Decoder.EtherType)
	}
	if cfg.Decoder.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Decoder.Workers)
	}
	if !cfg.Decoder.Ethernet {
		t.Error("Expected inner Ethernet decoding to default on")
	}
	if cfg.Decoder.Reassembly.Timeout != 5*time.Second {
		t.Errorf("Expected reassembly timeout 5s, got %v", cfg.Decoder.Reassembly.Timeout)
	}
	if cfg.Decoder.Reassembly.MaxAssemblies != 1024 {
		t.Errorf("Expected default max_assemblies 1024, got %d", cfg.Decoder.Reassembly.MaxAssemblies)
	}
	if got := cfg.Decoder.Reassembly.Options().MaxFragsPerSource; got != 200 {
		t.Errorf("Expected max_frags_per_source 200, got %d", got)
	}
	if !cfg.Sinks.Console.Enabled || cfg.Sinks.Console.Format != "yaml" {
		t.Errorf("Unexpected console config: %+v", cfg.Sinks.Console)
	}
	if !cfg.Sinks.Kafka.Enabled {
		t.Error("Expected kafka sink enabled")
	}
	if cfg.Sinks.Kafka.Options["topic"] != "batadv-taps" {
		t.Errorf("Expected kafka topic option, got %v", cfg.Sinks.Kafka.Options)
	}
	if _, ok := cfg.Sinks.Kafka.Options["enabled"]; ok {
		t.Error("enabled must not leak into the kafka option map")
	}
	if cfg.Sinks.Originators.TTL != 90*time.Second {
		t.Errorf("Expected originator ttl 90s, got %v", cfg.Sinks.Originators.TTL)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.Decoder.EtherType != 0x4305 {
		t.Errorf("Expected default ethertype 0x4305, got 0x%04x", cfg.Decoder.EtherType)
	}
	if cfg.Decoder.Workers != 1 {
		t.Errorf("Expected 1 worker, got %d", cfg.Decoder.Workers)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.Sinks.Kafka.Enabled || cfg.Sinks.Originators.Enabled {
		t.Error("Expected optional sinks disabled by default")
	}
	if cfg.Sinks.Originators.TTL != 5*time.Minute {
		t.Errorf("Expected originator ttl 5m, got %v", cfg.Sinks.Originators.TTL)
	}
}

func TestLoadIntegerEtherType(t *testing.T) {
	path := writeConfig(t, `
batadv:
  decoder:
    ethertype: 0x4305
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Decoder.EtherType != 0x4305 {
		t.Errorf("Expected ethertype 0x4305, got 0x%04x", cfg.Decoder.EtherType)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
batadv:
  log:
    level: "info"
`)
	t.Setenv("BATADV_LOG_LEVEL", "warn")
	t.Setenv("BATADV_DECODER_WORKERS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected env override warn, got %s", cfg.Log.Level)
	}
	if cfg.Decoder.Workers != 3 {
		t.Errorf("Expected env override 3 workers, got %d", cfg.Decoder.Workers)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "batadv:\n  log:\n    level: \"loud\"\n"},
		{"log format", "batadv:\n  log:\n    format: \"xml\"\n"},
		{"ethertype is a length", "batadv:\n  decoder:\n    ethertype: 100\n"},
		{"workers", "batadv:\n  decoder:\n    workers: 0\n"},
		{"console format", "batadv:\n  sinks:\n    console:\n      format: \"html\"\n"},
		{"kafka without options", "batadv:\n  sinks:\n    kafka:\n      enabled: true\n"},
		{"negative reassembly", "batadv:\n  decoder:\n    reassembly:\n      max_assemblies: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Fatalf("Expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}
