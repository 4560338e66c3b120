package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minisr.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
	if cfg.Protocol.WindowSize != 6 || cfg.Protocol.SeqSpace != 12 {
		t.Errorf("unexpected protocol defaults: %+v", cfg.Protocol)
	}
}

func TestLoad(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		path := writeConfigFile(t, `
protocol:
  window_size: 4
  seq_space: 8
  timeout_ms: 2000
channel:
  messages: 50
  loss_prob: 0.2
  seed: 99
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Protocol.WindowSize != 4 {
			t.Errorf("window_size = %d, want 4", cfg.Protocol.WindowSize)
		}
		if got := cfg.ProtocolConfig().Timeout; got != 2*time.Second {
			t.Errorf("timeout = %v, want 2s", got)
		}
		if sim := cfg.SimulationConfig(); sim.Messages != 50 || sim.Seed != 99 {
			t.Errorf("unexpected simulation config: %+v", sim)
		}
		// unset fields keep their defaults
		if cfg.Node.Transport != "udp" {
			t.Errorf("transport = %q, want udp default", cfg.Node.Transport)
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load("/nonexistent/minisr.yaml"); err == nil {
			t.Error("Load() succeeded on a missing file")
		}
	})
	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, ":\n  - not yaml")
		if _, err := Load(path); err == nil {
			t.Error("Load() succeeded on malformed yaml")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "sequence space too small",
			mutate:  func(c *Config) { c.Protocol.SeqSpace = 11 },
			wantErr: "seq_space",
		},
		{
			name:    "negative window",
			mutate:  func(c *Config) { c.Protocol.WindowSize = -1 },
			wantErr: "window_size",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Protocol.TimeoutMs = 0 },
			wantErr: "timeout_ms",
		},
		{
			name:    "loss probability out of range",
			mutate:  func(c *Config) { c.Channel.LossProbability = 1.0 },
			wantErr: "loss_prob",
		},
		{
			name:    "corrupt probability out of range",
			mutate:  func(c *Config) { c.Channel.CorruptProbability = -0.1 },
			wantErr: "corrupt_prob",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Node.Transport = "carrier-pigeon" },
			wantErr: "transport",
		},
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Node.Listen = "not-an-address" },
			wantErr: "listen",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
