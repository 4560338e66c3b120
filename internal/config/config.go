// Package config loads and validates the yaml configuration shared by the
// simulator and the live node.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minisr/minisr/internal/selectiverepeat"
	"github.com/minisr/minisr/internal/simulation"
)

// Config is the top-level configuration document.
type Config struct {
	Protocol ProtocolConfig `yaml:"protocol"`
	Channel  ChannelConfig  `yaml:"channel"`
	Node     NodeConfig     `yaml:"node"`
}

// ProtocolConfig carries the parameters shared by both state machines.
type ProtocolConfig struct {
	WindowSize int `yaml:"window_size"`
	SeqSpace   int `yaml:"seq_space"`
	TimeoutMs  int `yaml:"timeout_ms"`
}

// ChannelConfig carries the emulated channel and workload parameters.
type ChannelConfig struct {
	Messages           int     `yaml:"messages"`
	MessageIntervalMs  int     `yaml:"message_interval_ms"`
	LossProbability    float64 `yaml:"loss_prob"`
	CorruptProbability float64 `yaml:"corrupt_prob"`
	MeanDelayMs        int     `yaml:"mean_delay_ms"`
	Seed               int64   `yaml:"seed"`
}

// NodeConfig carries the live node parameters.
type NodeConfig struct {
	// Listen is the address a receiving node binds.
	Listen string `yaml:"listen"`

	// Remote is the address a sending node dials.
	Remote string `yaml:"remote"`

	// Transport selects the packet framing: "udp" or "ws".
	Transport string `yaml:"transport"`

	// WSPath is the HTTP path used by the ws transport.
	WSPath string `yaml:"ws_path"`

	// MetricsListen, when set, serves prometheus metrics at this address.
	MetricsListen string `yaml:"metrics_listen"`
}

// Default returns the configuration matching the protocol defaults.
func Default() *Config {
	return &Config{
		Protocol: ProtocolConfig{
			WindowSize: selectiverepeat.DefaultWindowSize,
			SeqSpace:   selectiverepeat.DefaultSeqSpace,
			TimeoutMs:  int(selectiverepeat.DefaultTimeout / time.Millisecond),
		},
		Channel: ChannelConfig{
			Messages:          simulation.DefaultMessages,
			MessageIntervalMs: int(simulation.DefaultMessageInterval / time.Millisecond),
			MeanDelayMs:       int(simulation.DefaultMeanDelay / time.Millisecond),
		},
		Node: NodeConfig{
			Transport: "udp",
			WSPath:    "/minisr",
		},
	}
}

// Load reads and validates a yaml configuration file, applying defaults to
// unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that violate the protocol invariants.
func (c *Config) Validate() error {
	if c.Protocol.WindowSize <= 0 {
		return fmt.Errorf("config: window_size must be positive, got %d", c.Protocol.WindowSize)
	}
	if c.Protocol.SeqSpace < 2*c.Protocol.WindowSize {
		return fmt.Errorf("config: seq_space %d smaller than twice window_size %d",
			c.Protocol.SeqSpace, c.Protocol.WindowSize)
	}
	if c.Protocol.TimeoutMs <= 0 {
		return fmt.Errorf("config: timeout_ms must be positive, got %d", c.Protocol.TimeoutMs)
	}
	for name, p := range map[string]float64{
		"loss_prob":    c.Channel.LossProbability,
		"corrupt_prob": c.Channel.CorruptProbability,
	} {
		if p < 0 || p >= 1 {
			return fmt.Errorf("config: %s must be in [0, 1), got %v", name, p)
		}
	}
	switch c.Node.Transport {
	case "udp", "ws":
	default:
		return fmt.Errorf("config: unknown transport %q", c.Node.Transport)
	}
	if c.Node.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Node.Listen); err != nil {
			return fmt.Errorf("config: invalid listen address %q: %w", c.Node.Listen, err)
		}
	}
	if c.Node.Remote != "" && c.Node.Transport == "udp" {
		if _, _, err := net.SplitHostPort(c.Node.Remote); err != nil {
			return fmt.Errorf("config: invalid remote address %q: %w", c.Node.Remote, err)
		}
	}
	return nil
}

// ProtocolConfig converts to the core's configuration type.
func (c *Config) ProtocolConfig() selectiverepeat.Config {
	return selectiverepeat.Config{
		WindowSize: c.Protocol.WindowSize,
		SeqSpace:   c.Protocol.SeqSpace,
		Timeout:    time.Duration(c.Protocol.TimeoutMs) * time.Millisecond,
	}
}

// SimulationConfig converts to the simulator's configuration type.
func (c *Config) SimulationConfig() simulation.Config {
	return simulation.Config{
		Protocol:           c.ProtocolConfig(),
		Messages:           c.Channel.Messages,
		MessageInterval:    time.Duration(c.Channel.MessageIntervalMs) * time.Millisecond,
		LossProbability:    c.Channel.LossProbability,
		CorruptProbability: c.Channel.CorruptProbability,
		MeanDelay:          time.Duration(c.Channel.MeanDelayMs) * time.Millisecond,
		Seed:               c.Channel.Seed,
	}
}
