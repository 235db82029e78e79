// SPDX-License-Identifier: GPL-3.0-or-later

package buckets

import (
	"maps"
	"slices"
	"strconv"
	"time"
)

// Snapshot is an immutable point-in-time view of the buckets handed to
// export backends. Backends must not modify it.
type Snapshot struct {
	Timestamp   time.Time
	Counters    map[string]float64
	Gauges      map[string]float64
	Timers      map[string]TimerSummary
	Percentiles []float64
}

func (s *Snapshot) CounterNames() []string { return slices.Sorted(maps.Keys(s.Counters)) }
func (s *Snapshot) GaugeNames() []string   { return slices.Sorted(maps.Keys(s.Gauges)) }
func (s *Snapshot) TimerNames() []string   { return slices.Sorted(maps.Keys(s.Timers)) }

// FormatValue renders v the way it goes on the wire: shortest decimal
// representation, no exponent, so 2.0 is "2".
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
