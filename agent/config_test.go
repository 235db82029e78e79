// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdata/netdata/go/statsd/agent/backend"
	"github.com/netdata/netdata/go/statsd/pkg/cli"
	"github.com/netdata/netdata/go/statsd/pkg/confopt"
)

func TestLoadConfig(t *testing.T) {
	tests := map[string]struct {
		content string
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		"empty file keeps defaults": {
			content: "",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		"full": {
			content: `
ingest_address: 127.0.0.1:9125
management_address: 127.0.0.1:9126
telemetry_address: 127.0.0.1:9102
flush_interval: 10000ms
max_packet_size: 1432
percentiles: [90, 99.9]
management_max_conns: 8
graphite_address: tcp://carbon:2003
prefix: stats
backends:
  - type: console
    name: stdout
`,
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "127.0.0.1:9125", cfg.IngestAddress)
				assert.Equal(t, "127.0.0.1:9126", cfg.ManagementAddress)
				assert.Equal(t, "127.0.0.1:9102", cfg.TelemetryAddress)
				assert.Equal(t, time.Second*10, cfg.FlushInterval.Duration())
				assert.Equal(t, 1432, cfg.MaxPacketSize)
				assert.Equal(t, []float64{90, 99.9}, cfg.Percentiles)
				assert.Equal(t, 8, cfg.ManagementMaxConns)
				assert.Equal(t, []backend.Config{
					{Type: "graphite", Address: "tcp://carbon:2003", Prefix: "stats"},
					{Type: "console", Name: "stdout"},
				}, cfg.BackendConfigs())
			},
		},
		"invalid yaml": {
			content: "flush_interval: [",
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "statsd.yaml")
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0644))

			cfg, err := LoadConfig(path)

			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			test.check(t, cfg)
		})
	}
}

func TestLoadConfig_NoPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		modify  func(cfg *Config)
		wantErr bool
	}{
		"defaults":              {modify: func(cfg *Config) {}},
		"zero flush interval":   {modify: func(cfg *Config) { cfg.FlushInterval = 0 }, wantErr: true},
		"zero max packet size":  {modify: func(cfg *Config) { cfg.MaxPacketSize = 0 }, wantErr: true},
		"no ingest address":     {modify: func(cfg *Config) { cfg.IngestAddress = "" }, wantErr: true},
		"no management address": {modify: func(cfg *Config) { cfg.ManagementAddress = "" }, wantErr: true},
		"negative conn limit":   {modify: func(cfg *Config) { cfg.ManagementMaxConns = -1 }, wantErr: true},
		"negative idle timeout": {modify: func(cfg *Config) { cfg.ManagementIdleTimeout = -1 }, wantErr: true},
		"percentile zero":       {modify: func(cfg *Config) { cfg.Percentiles = []float64{0} }, wantErr: true},
		"percentile above 100":  {modify: func(cfg *Config) { cfg.Percentiles = []float64{101} }, wantErr: true},
		"backend without type":  {modify: func(cfg *Config) { cfg.Backends = []backend.Config{{}} }, wantErr: true},
		"duplicate backends": {
			modify: func(cfg *Config) {
				cfg.GraphiteAddress = "carbon:2003"
				cfg.Backends = []backend.Config{{Type: "graphite", Address: "other:2003"}}
			},
			wantErr: true,
		},
		"two named graphite backends": {
			modify: func(cfg *Config) {
				cfg.Backends = []backend.Config{
					{Type: "graphite", Name: "a", Address: "a:2003"},
					{Type: "graphite", Name: "b", Address: "b:2003"},
				}
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(&cfg)

			if test.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestConfig_ApplyOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOptions(&cli.Option{
		ManagementAddress: ":9126",
		FlushInterval:     confopt.Duration(time.Second * 2),
		GraphiteAddress:   "carbon:2003",
		Prefix:            "app",
	})

	assert.Equal(t, ":8125", cfg.IngestAddress)
	assert.Equal(t, ":9126", cfg.ManagementAddress)
	assert.Equal(t, time.Second*2, cfg.FlushInterval.Duration())
	assert.Equal(t, 256, cfg.MaxPacketSize)
	assert.Equal(t, "carbon:2003", cfg.GraphiteAddress)
	assert.Equal(t, "app", cfg.Prefix)

	assert.NotPanics(t, func() { cfg.ApplyOptions(nil) })
}

func TestLoadConfig_Stock(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "config", "statsd.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}
