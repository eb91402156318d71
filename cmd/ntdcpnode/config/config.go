// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the YAML document describing one ntdcpnode's
// address, physical interfaces and listening ports.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig is the top-level document for one node.
type NodeConfig struct {
	Node     NodeInfo        `yaml:"node"`
	Physical []PhysicalEntry `yaml:"physical"`
	Listen   []ListenEntry   `yaml:"listen"`
	Schedule ScheduleInfo    `yaml:"schedule"`
	Metrics  MetricsInfo     `yaml:"metrics"`
	Logging  LoggingInfo     `yaml:"logging"`
}

// NodeInfo identifies the node.
type NodeInfo struct {
	Address uint64 `yaml:"address"`
}

// PhysicalEntry describes one physical interface to attach.
type PhysicalEntry struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // net.Dial/net.Listen network, e.g. "tcp" (default) or "unix"

	// Dial/Listen are mutually exclusive: Dial connects out, Listen
	// accepts the single peer this node expects on this interface.
	Dial   string `yaml:"dial,omitempty"`
	Listen string `yaml:"listen,omitempty"`

	// HalfDuplex timing, only meaningful when Kind models a serial/radio
	// link rather than a stream transport.
	HalfDuplex bool          `yaml:"half_duplex"`
	TxTime     time.Duration `yaml:"tx_time"`
	TxToRxTime time.Duration `yaml:"tx_to_rx_time"`
}

// ListenEntry describes one acceptor or datagram receiver port this node
// exposes.
type ListenEntry struct {
	Port uint16 `yaml:"port"`
	Kind string `yaml:"kind"` // "acceptor" or "datagram"
}

// ScheduleInfo is the cron expression driving the periodic Serve tick.
type ScheduleInfo struct {
	Cron string `yaml:"cron"` // e.g. "@every 50ms"
}

// MetricsInfo configures the Prometheus scrape endpoint.
type MetricsInfo struct {
	Listen string `yaml:"listen"` // e.g. ":9090"; empty disables it
	Path   string `yaml:"path"`   // default "/metrics"
}

// LoggingInfo configures the node's structured logger.
type LoggingInfo struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// Load reads and parses the node configuration at path.
func Load(path string) (*NodeConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg NodeConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "@every 50ms"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return &cfg, nil
}
