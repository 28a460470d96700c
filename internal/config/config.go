// Package config holds the compile-time configuration of spec.md §6,
// reimagined as a loadable Go struct rather than firmware #defines: sane
// defaults matching the spec's minimums, optionally overridden by a YAML
// file (grounded on the teacher's own config.go, a configuration-file
// reader, here using gopkg.in/yaml.v3 in place of the teacher's bespoke
// line parser) and then by command-line flags in cmd/dtrnode.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors spec.md §6's "Compile-time configuration" list.
type Config struct {
	MaxNetworkSize int `yaml:"max_network_size"`
	MaxPayload     int `yaml:"max_payload"`

	SpamPeriodCTS     time.Duration `yaml:"spam_period_cts"`
	SpamPeriodRTS     time.Duration `yaml:"spam_period_rts"`
	SpamPeriodDataAck time.Duration `yaml:"spam_period_data_ack"`

	ProtocolTimeout  time.Duration `yaml:"protocol_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// HandshakeBroadcastPeriod is how often the handshake timer (spec.md
	// §4.D) rebroadcasts the candidate topology during discovery. This is
	// distinct from HandshakeTimeout, the silence deadline that ends
	// discovery.
	HandshakeBroadcastPeriod time.Duration `yaml:"handshake_broadcast_period"`

	// TXReceivedWaitTime bounds how long the engine waits on a TX-DATA
	// peek/get before re-checking RX-SRV, per spec.md §5.
	TXReceivedWaitTime time.Duration `yaml:"tx_received_wait_time"`

	StaticPredefinedTopology bool `yaml:"static_predefined_topology"`
	Debug                    bool `yaml:"debug_dtr_protocol"`

	TXDataQueueCapacity int `yaml:"tx_data_queue_capacity"`
	RXSrvQueueCapacity  int `yaml:"rx_srv_queue_capacity"`
	RXDataQueueCapacity int `yaml:"rx_data_queue_capacity"`
}

// Default returns the spec's suggested minimums.
func Default() Config {
	return Config{
		MaxNetworkSize: 8,
		MaxPayload:     64,

		SpamPeriodCTS:     2500 * time.Millisecond,
		SpamPeriodRTS:     2500 * time.Millisecond,
		SpamPeriodDataAck: 2500 * time.Millisecond,

		ProtocolTimeout:  4000 * time.Millisecond,
		HandshakeTimeout: 4000 * time.Millisecond,

		HandshakeBroadcastPeriod: 1000 * time.Millisecond,

		TXReceivedWaitTime: 5 * time.Millisecond,

		StaticPredefinedTopology: false,
		Debug:                    false,

		TXDataQueueCapacity: 10,
		RXSrvQueueCapacity:  20,
		RXDataQueueCapacity: 10,
	}
}

// Load reads a YAML file and overlays it on Default(), so a config file may
// omit any field it doesn't want to change.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the invariants spec.md §3 requires of the compile-time
// constants.
func (c Config) Validate() error {
	if c.MaxNetworkSize < 1 || c.MaxNetworkSize >= 255 {
		return fmt.Errorf("config: max_network_size %d must be in [1, 254]", c.MaxNetworkSize)
	}
	if c.MaxPayload < 60 {
		return fmt.Errorf("config: max_payload %d below spec minimum 60", c.MaxPayload)
	}

	return nil
}
