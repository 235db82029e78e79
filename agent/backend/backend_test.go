// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdata/netdata/go/statsd/agent/buckets"
)

type nopBackend struct{ name string }

func (n nopBackend) Name() string                   { return n.name }
func (n nopBackend) Export(*buckets.Snapshot) error { return nil }

func TestRegistry_Register(t *testing.T) {
	reg := make(Registry)

	assert.NotPanics(t, func() { reg.Register("nop", Creator{}) })

	_, ok := reg.Lookup("nop")
	require.True(t, ok)

	assert.Panics(t, func() { reg.Register("nop", Creator{}) })
}

func TestRegistry_New(t *testing.T) {
	reg := Registry{
		"nop": {Create: func(cfg Config) (Backend, error) { return nopBackend{name: cfg.InstanceName()}, nil }},
		"broken": {},
	}

	tests := map[string]struct {
		cfg      Config
		wantName string
		wantErr  bool
	}{
		"known type":          {cfg: Config{Type: "nop"}, wantName: "nop"},
		"known type named":    {cfg: Config{Type: "nop", Name: "primary"}, wantName: "primary"},
		"unknown type":        {cfg: Config{Type: "opentsdb"}, wantErr: true},
		"missing constructor": {cfg: Config{Type: "broken"}, wantErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := reg.New(test.cfg)

			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantName, b.Name())
		})
	}
}

func TestRegistry_Types(t *testing.T) {
	reg := Registry{"graphite": {}, "console": {}}
	assert.Equal(t, []string{"console", "graphite"}, reg.Types())
}

func TestExporters(t *testing.T) {
	exps := Exporters([]Backend{nopBackend{name: "a"}, nopBackend{name: "b"}})
	require.Len(t, exps, 2)
	assert.Equal(t, "b", exps[1].Name())
}
