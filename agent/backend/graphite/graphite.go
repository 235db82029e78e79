// SPDX-License-Identifier: GPL-3.0-or-later

package graphite

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/netdata/netdata/go/statsd/agent/backend"
	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/logger"
	"github.com/netdata/netdata/go/statsd/pkg/socket"
)

func init() {
	backend.Register("graphite", backend.Creator{
		Create: func(cfg backend.Config) (backend.Backend, error) { return New(cfg) },
	})
}

const defaultTimeout = time.Second * 2

// Graphite sends snapshots to a carbon plaintext listener,
// one connection per flush.
type Graphite struct {
	*logger.Logger

	name    string
	encoder Encoder
	sock    socket.Config
	clock   clock.Clock

	lastFlush       time.Time
	lastFlushLength time.Duration
}

// New returns a Graphite backend. The address defaults to tcp.
func New(cfg backend.Config) (*Graphite, error) {
	if cfg.Address == "" {
		return nil, errors.New("graphite: address not set")
	}

	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Graphite{
		Logger: logger.New().With(
			slog.String("component", "backend"),
			slog.String("backend", cfg.InstanceName()),
		),
		name:    cfg.InstanceName(),
		encoder: Encoder{Prefix: cfg.Prefix},
		sock: socket.Config{
			Address:        cfg.Address,
			ConnectTimeout: timeout,
			WriteTimeout:   timeout,
		},
		clock: clock.New(),
	}, nil
}

func (g *Graphite) Name() string { return g.name }

// Export encodes the snapshot and writes it over a fresh connection.
// Connection and write failures are logged and returned, the data is dropped.
func (g *Graphite) Export(snap *buckets.Snapshot) error {
	start := g.clock.Now()

	var buf bytes.Buffer
	g.encoder.Encode(&buf, snap)
	g.encoder.EncodeFlushStats(&buf, snap.Timestamp, g.lastFlush, g.lastFlushLength)

	err := socket.ConnectAndWrite(g.sock, buf.Bytes())

	end := g.clock.Now()
	g.lastFlush = end
	g.lastFlushLength = end.Sub(start)

	if err != nil {
		g.Warningf("failed to send %d bytes to '%s': %v", buf.Len(), g.sock.Address, err)
		return fmt.Errorf("graphite: %w", err)
	}

	g.Debugf("sent %d bytes to '%s' in %s", buf.Len(), g.sock.Address, g.lastFlushLength)
	return nil
}

// Encoder writes snapshots in the carbon plaintext protocol:
// "<path> <value> <unix timestamp>\n".
type Encoder struct {
	// Prefix is joined to every path with a dot.
	Prefix string
}

func (e Encoder) Encode(buf *bytes.Buffer, snap *buckets.Snapshot) {
	ts := snap.Timestamp.Unix()

	for _, name := range snap.CounterNames() {
		e.line(buf, "counters."+name, buckets.FormatValue(snap.Counters[name]), ts)
	}
	for _, name := range snap.GaugeNames() {
		e.line(buf, "gauges."+name, buckets.FormatValue(snap.Gauges[name]), ts)
	}
	for _, name := range snap.TimerNames() {
		sum := snap.Timers[name]
		path := "timers." + name
		e.line(buf, path+".count", fmt.Sprint(sum.Count), ts)
		e.line(buf, path+".sum", buckets.FormatValue(sum.Sum), ts)
		e.line(buf, path+".mean", buckets.FormatValue(sum.Mean), ts)
		e.line(buf, path+".lower", buckets.FormatValue(sum.Min), ts)
		e.line(buf, path+".upper", buckets.FormatValue(sum.Max), ts)
		for _, p := range sum.Percentiles {
			e.line(buf, path+"."+p.Name(), buckets.FormatValue(p.Value), ts)
		}
	}
}

// EncodeFlushStats writes the exporter's own stats: when the previous flush
// finished (unix seconds) and how long it took (milliseconds).
func (e Encoder) EncodeFlushStats(buf *bytes.Buffer, now, lastFlush time.Time, lastLength time.Duration) {
	ts := now.Unix()

	var last int64
	if !lastFlush.IsZero() {
		last = lastFlush.Unix()
	}
	e.line(buf, "graphiteStats.last_flush", fmt.Sprint(last), ts)
	e.line(buf, "graphiteStats.flush_time", fmt.Sprint(lastLength.Milliseconds()), ts)
}

func (e Encoder) line(buf *bytes.Buffer, path, value string, ts int64) {
	if e.Prefix != "" {
		buf.WriteString(strings.TrimSuffix(e.Prefix, "."))
		buf.WriteByte('.')
	}
	fmt.Fprintf(buf, "%s %s %d\n", path, value, ts)
}
