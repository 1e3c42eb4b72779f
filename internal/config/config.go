// Package config loads the single YAML document that drives a line
// controller's boot: which EtherCAT interface to bind, the target cycle
// period, real-time thread/IRQ pinning, and the serial ports to scan for
// non-fieldbus sensors. Adapted from the teacher's services/config
// package, which decoded an embedded per-device JSON config and
// published it retained onto the bus; the decode-then-publish shape is
// kept, generalized from "look up an embedded blob by device ID" to
// "read a YAML file from disk", and from an embedded-JSON bus publish to
// a retained /main room event.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SerialPort describes one sensor wired over RS-232/RS-485 rather than
// EtherCAT.
type SerialPort struct {
	DeviceID string        `yaml:"device_id"`
	Kind     string        `yaml:"kind"` // "modbus-rtu" or "ascii"
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	SlaveID  byte          `yaml:"slave_id,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RealTime controls the optional SCHED_FIFO/mlockall/IRQ-pinning boot
// step; a zero-value RealTime leaves the process on the default
// scheduler, which is the correct choice for development machines.
type RealTime struct {
	Enabled      bool   `yaml:"enabled"`
	LockMemory   bool   `yaml:"lock_memory"`
	PinInterface string `yaml:"pin_interface,omitempty"`
	PinCPUList   string `yaml:"pin_cpu_list,omitempty"`
}

// Config is the full boot-time environment document (spec.md §6
// "Environment").
type Config struct {
	Interface     string        `yaml:"interface"`
	Autodiscover  bool          `yaml:"autodiscover"`
	CyclePeriod   time.Duration `yaml:"cycle_period"`
	RealTime      RealTime      `yaml:"real_time"`
	SerialPorts   []SerialPort  `yaml:"serial_ports"`
	MetricsQueueN int           `yaml:"events_queue_len,omitempty"`
}

// defaultCyclePeriod matches spec.md's baseline EtherCAT cycle target.
const defaultCyclePeriod = time.Millisecond

// Load reads and parses the YAML config at path, filling in defaults for
// anything left unset.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document already in memory, applying the same
// defaults as Load. Split out from Load so tests and embedders that
// already have the bytes (e.g. from a packaged default) don't need a
// real file on disk.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}

	if !cfg.Autodiscover && cfg.Interface == "" {
		return nil, fmt.Errorf("config: either interface or autodiscover must be set")
	}
	if cfg.CyclePeriod <= 0 {
		cfg.CyclePeriod = defaultCyclePeriod
	}
	if cfg.MetricsQueueN <= 0 {
		cfg.MetricsQueueN = 16
	}
	for i, p := range cfg.SerialPorts {
		if p.Timeout <= 0 {
			cfg.SerialPorts[i].Timeout = time.Second
		}
	}

	return &cfg, nil
}
