// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestDuration_MarshalYAML(t *testing.T) {
	tests := map[string]struct {
		d    Duration
		want string
	}{
		"10 seconds":  {d: Duration(time.Second * 10), want: "10"},
		"1.5 seconds": {d: Duration(time.Second + time.Millisecond*500), want: "1.5"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			bs, err := yaml.Marshal(&test.d)
			require.NoError(t, err)

			assert.Equal(t, test.want, strings.TrimSpace(string(bs)))
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		"milliseconds": {input: "flush_interval: 10000ms", want: time.Second * 10},
		"go duration":  {input: "flush_interval: 1m", want: time.Minute},
		"int seconds":  {input: "flush_interval: 5", want: time.Second * 5},
		"float":        {input: "flush_interval: 0.5", want: time.Millisecond * 500},
		"garbage":      {input: "flush_interval: often", wantErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var cfg struct {
				FlushInterval Duration `yaml:"flush_interval"`
			}
			err := yaml.Unmarshal([]byte(test.input), &cfg)

			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, cfg.FlushInterval.Duration())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, time.Millisecond*250, d.Duration())

	bs, err := json.Marshal(Duration(time.Second * 2))
	require.NoError(t, err)
	assert.Equal(t, "2", string(bs))
}

func TestDuration_UnmarshalFlag(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalFlag("10000ms"))
	assert.Equal(t, time.Second*10, d.Duration())

	assert.Error(t, d.UnmarshalFlag("soon"))
}
