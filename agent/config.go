// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/netdata/netdata/go/statsd/agent/backend"
	"github.com/netdata/netdata/go/statsd/agent/mgmt"
	"github.com/netdata/netdata/go/statsd/pkg/cli"
	"github.com/netdata/netdata/go/statsd/pkg/confopt"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		IngestAddress:         ":8125",
		ManagementAddress:     ":8126",
		FlushInterval:         confopt.Duration(time.Second * 10),
		MaxPacketSize:         256,
		Percentiles:           []float64{90},
		ManagementMaxConns:    64,
		ManagementIdleTimeout: confopt.Duration(mgmt.DefaultIdleTimeout),
	}
}

// Config is the daemon configuration file.
type Config struct {
	IngestAddress         string           `yaml:"ingest_address"`
	ManagementAddress     string           `yaml:"management_address"`
	TelemetryAddress      string           `yaml:"telemetry_address"`
	FlushInterval         confopt.Duration `yaml:"flush_interval"`
	MaxPacketSize         int              `yaml:"max_packet_size"`
	Percentiles           []float64        `yaml:"percentiles"`
	ManagementMaxConns    int              `yaml:"management_max_conns"`
	ManagementIdleTimeout confopt.Duration `yaml:"management_idle_timeout"`

	// GraphiteAddress and Prefix configure a single graphite backend
	// without a backends section.
	GraphiteAddress string           `yaml:"graphite_address"`
	Prefix          string           `yaml:"prefix"`
	Backends        []backend.Config `yaml:"backends"`
}

func (c Config) String() string {
	return fmt.Sprintf("ingest '%s', management '%s', flush_interval '%s', max_packet_size '%d', backends '%d'",
		c.IngestAddress, c.ManagementAddress, c.FlushInterval, c.MaxPacketSize, len(c.BackendConfigs()))
}

// LoadConfig reads path over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("parse '%s': %w", path, err)
	}
	return cfg, nil
}

// ApplyOptions overrides config values with the command line options that were set.
func (c *Config) ApplyOptions(opt *cli.Option) {
	if opt == nil {
		return
	}
	if opt.IngestAddress != "" {
		c.IngestAddress = opt.IngestAddress
	}
	if opt.ManagementAddress != "" {
		c.ManagementAddress = opt.ManagementAddress
	}
	if opt.TelemetryAddress != "" {
		c.TelemetryAddress = opt.TelemetryAddress
	}
	if opt.FlushInterval > 0 {
		c.FlushInterval = opt.FlushInterval
	}
	if opt.MaxPacketSize > 0 {
		c.MaxPacketSize = opt.MaxPacketSize
	}
	if opt.GraphiteAddress != "" {
		c.GraphiteAddress = opt.GraphiteAddress
	}
	if opt.Prefix != "" {
		c.Prefix = opt.Prefix
	}
}

// BackendConfigs returns the configured backends, the legacy graphite
// options first.
func (c Config) BackendConfigs() []backend.Config {
	var cfgs []backend.Config
	if c.GraphiteAddress != "" {
		cfgs = append(cfgs, backend.Config{
			Type:    "graphite",
			Address: c.GraphiteAddress,
			Prefix:  c.Prefix,
		})
	}
	return append(cfgs, c.Backends...)
}

func (c Config) Validate() error {
	var errs []error

	if c.IngestAddress == "" {
		errs = append(errs, errors.New("'ingest_address' not set"))
	}
	if c.ManagementAddress == "" {
		errs = append(errs, errors.New("'management_address' not set"))
	}
	if c.FlushInterval.Duration() <= 0 {
		errs = append(errs, fmt.Errorf("'flush_interval' must be positive, got '%s'", c.FlushInterval))
	}
	if c.MaxPacketSize <= 0 {
		errs = append(errs, fmt.Errorf("'max_packet_size' must be positive, got '%d'", c.MaxPacketSize))
	}
	if c.ManagementIdleTimeout.Duration() < 0 {
		errs = append(errs, fmt.Errorf("'management_idle_timeout' must not be negative, got '%s'", c.ManagementIdleTimeout))
	}
	if c.ManagementMaxConns < 0 {
		errs = append(errs, fmt.Errorf("'management_max_conns' must not be negative, got '%d'", c.ManagementMaxConns))
	}
	for _, p := range c.Percentiles {
		if !(p > 0 && p <= 100) {
			errs = append(errs, fmt.Errorf("percentile '%g' is out of range (0, 100]", p))
		}
	}

	seen := make(map[string]bool)
	for _, bc := range c.BackendConfigs() {
		name := bc.InstanceName()
		if name == "" {
			errs = append(errs, errors.New("backend 'type' not set"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate backend name '%s'", name))
		}
		seen[name] = true
	}

	return errors.Join(errs...)
}
