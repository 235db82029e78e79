// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/agent/metric"
	"github.com/netdata/netdata/go/statsd/logger"
)

const namespace = "statsd"

// Telemetry holds the daemon's own metrics.
type Telemetry struct {
	*logger.Logger

	// Clock times exports.
	Clock    clock.Clock
	Registry *prometheus.Registry

	PacketsReceived  prometheus.Counter
	OversizedPackets prometheus.Counter
	BadMessages      prometheus.Counter
	MetricsProcessed *prometheus.CounterVec
	Flushes          prometheus.Counter
	ExportFailures   *prometheus.CounterVec
	ExportDuration   *prometheus.HistogramVec
	MgmtConnections  prometheus.Gauge
	MgmtCommands     prometheus.Counter
}

func New() *Telemetry {
	t := &Telemetry{
		Logger: logger.New().With(
			slog.String("component", "telemetry"),
		),
		Clock:    clock.New(),
		Registry: prometheus.NewRegistry(),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Datagrams received on the ingest socket.",
		}),
		OversizedPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oversized_packets_total",
			Help:      "Datagrams that filled the receive buffer and may be truncated.",
		}),
		BadMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bad_messages_total",
			Help:      "Datagrams that failed to decode or parse.",
		}),
		MetricsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_processed_total",
			Help:      "Metric samples aggregated, by type.",
		}, []string{"type"}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Flush cycles run.",
		}),
		ExportFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_failures_total",
			Help:      "Snapshots a backend failed to deliver.",
		}, []string{"backend"}),
		ExportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time spent exporting one snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"backend"}),
		MgmtConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "management_connections",
			Help:      "Open management connections.",
		}),
		MgmtCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "management_commands_total",
			Help:      "Management commands executed.",
		}),
	}

	t.Registry.MustRegister(
		t.PacketsReceived,
		t.OversizedPackets,
		t.BadMessages,
		t.MetricsProcessed,
		t.Flushes,
		t.ExportFailures,
		t.ExportDuration,
		t.MgmtConnections,
		t.MgmtCommands,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return t
}

// ObserveMetric counts one aggregated sample.
func (t *Telemetry) ObserveMetric(m metric.Metric) {
	t.MetricsProcessed.WithLabelValues(m.Kind.String()).Inc()
}

// Instrument wraps exp so every export is timed and failures are counted.
func (t *Telemetry) Instrument(exp buckets.Exporter) buckets.Exporter {
	return &instrumented{Exporter: exp, t: t}
}

type instrumented struct {
	buckets.Exporter
	t *Telemetry
}

func (i *instrumented) Export(snap *buckets.Snapshot) error {
	start := i.t.Clock.Now()
	err := i.Exporter.Export(snap)
	i.t.ExportDuration.WithLabelValues(i.Name()).Observe(i.t.Clock.Since(start).Seconds())
	if err != nil {
		i.t.ExportFailures.WithLabelValues(i.Name()).Inc()
	}
	return err
}

// Handler serves the registry in the Prometheus exposition format.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on ln until ctx is done.
func (t *Telemetry) Serve(ctx context.Context, ln net.Listener) {
	t.Infof("serving self metrics on '%s'", ln.Addr())

	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: time.Second * 5}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("self metrics server: %v", err)
	}
}
