// SPDX-License-Identifier: GPL-3.0-or-later

package buckets

import (
	"maps"
	"slices"
	"time"

	"github.com/netdata/netdata/go/statsd/agent/metric"
)

// DefaultPercentiles are used when no percentiles are configured.
var DefaultPercentiles = []float64{90}

// Buckets is the aggregated metric state between flushes.
//
// Buckets does no locking: every method must be called by the owner of
// exclusive access, see Store.
type Buckets struct {
	Counters map[string]float64
	Gauges   map[string]float64
	Timers   map[string][]float64

	// BadMessages counts datagrams that failed to decode or parse.
	// It is never reset.
	BadMessages uint64

	StartTime       time.Time
	LastMessageSeen time.Time
	Healthy         bool

	percentiles []float64
	flushes     map[string]*FlushStatus
}

// FlushStatus is the outcome of the most recent flush of one backend.
type FlushStatus struct {
	LastFlush     time.Time
	FlushLength   time.Duration
	LastException time.Time
}

// New returns empty Buckets. Timer summaries are computed for the given percentiles.
func New(start time.Time, percentiles []float64) *Buckets {
	b := &Buckets{
		Counters:  make(map[string]float64),
		Gauges:    make(map[string]float64),
		Timers:    make(map[string][]float64),
		StartTime: start,
		Healthy:   true,
		flushes:   make(map[string]*FlushStatus),
	}
	b.SetPercentiles(percentiles)
	return b
}

// AddMetric aggregates m into its bucket.
func (b *Buckets) AddMetric(m metric.Metric) {
	switch m.Kind {
	case metric.Counter:
		b.Counters[m.Name] += m.Scaled()
	case metric.Gauge:
		b.Gauges[m.Name] = m.Value
	case metric.Timer:
		b.Timers[m.Name] = append(b.Timers[m.Name], m.Value)
	}
}

// RecordBadMessage counts one datagram that could not be parsed.
func (b *Buckets) RecordBadMessage() {
	b.BadMessages++
}

// Seen records the arrival time of the latest valid message.
func (b *Buckets) Seen(now time.Time) {
	b.LastMessageSeen = now
}

// TakeSnapshot returns the flush snapshot as of now and resets counters and timers.
// Gauges and BadMessages are kept.
func (b *Buckets) TakeSnapshot(now time.Time) *Snapshot {
	snap := &Snapshot{
		Timestamp:   now,
		Counters:    maps.Clone(b.Counters),
		Gauges:      maps.Clone(b.Gauges),
		Timers:      make(map[string]TimerSummary, len(b.Timers)),
		Percentiles: slices.Clone(b.percentiles),
	}
	for name, values := range b.Timers {
		snap.Timers[name] = Summarize(values, b.percentiles)
	}

	clear(b.Counters)
	clear(b.Timers)

	return snap
}

// RegisterBackend makes the backend visible in FlushStatus before its first flush.
func (b *Buckets) RegisterBackend(name string) {
	if _, ok := b.flushes[name]; !ok {
		b.flushes[name] = &FlushStatus{}
	}
}

// RecordFlush stores the timing of a finished export to the named backend.
func (b *Buckets) RecordFlush(backend string, start time.Time, length time.Duration, failed bool) {
	st, ok := b.flushes[backend]
	if !ok {
		st = &FlushStatus{}
		b.flushes[backend] = st
	}
	st.LastFlush = start.Add(length)
	st.FlushLength = length
	if failed {
		st.LastException = st.LastFlush
	}
}

// FlushStatus returns the last flush status of the named backend.
func (b *Buckets) FlushStatus(backend string) (FlushStatus, bool) {
	st, ok := b.flushes[backend]
	if !ok {
		return FlushStatus{}, false
	}
	return *st, true
}

// Backends returns the names of registered backends, sorted.
func (b *Buckets) Backends() []string {
	return slices.Sorted(maps.Keys(b.flushes))
}

// SetPercentiles replaces the timer percentiles used from the next flush on.
// An empty list selects DefaultPercentiles.
func (b *Buckets) SetPercentiles(percentiles []float64) {
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	b.percentiles = slices.Clone(percentiles)
}

// Percentiles returns the configured timer percentiles.
func (b *Buckets) Percentiles() []float64 {
	return slices.Clone(b.percentiles)
}
