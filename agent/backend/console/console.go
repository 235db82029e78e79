// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/netdata/netdata/go/statsd/agent/backend"
	"github.com/netdata/netdata/go/statsd/agent/backend/graphite"
	"github.com/netdata/netdata/go/statsd/agent/buckets"
)

func init() {
	backend.Register("console", backend.Creator{
		Create: func(cfg backend.Config) (backend.Backend, error) { return New(cfg, os.Stdout), nil },
	})
}

// Console writes every snapshot to a writer in the graphite plaintext
// format. Useful to see what a flush would send.
type Console struct {
	name    string
	encoder graphite.Encoder

	mu  sync.Mutex
	out io.Writer
}

func New(cfg backend.Config, out io.Writer) *Console {
	return &Console{
		name:    cfg.InstanceName(),
		encoder: graphite.Encoder{Prefix: cfg.Prefix},
		out:     out,
	}
}

func (c *Console) Name() string { return c.name }

func (c *Console) Export(snap *buckets.Snapshot) error {
	var buf bytes.Buffer
	c.encoder.Encode(&buf, snap)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.out.Write(buf.Bytes())
	return err
}
