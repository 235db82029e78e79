// SPDX-License-Identifier: GPL-3.0-or-later

package buckets

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Exporter is the part of an export backend the store needs to flush.
// Export must not block forever and reports failure only through its
// return value, which is used for bookkeeping and never retried.
type Exporter interface {
	Name() string
	Export(snap *Snapshot) error
}

// Store guards Buckets with a single mutex. Every read or write of the
// buckets goes through Access, so only one accessor runs at a time.
type Store struct {
	mu      sync.Mutex
	buckets *Buckets
	clock   clock.Clock
}

// NewStore returns a Store owning fresh Buckets.
func NewStore(clk clock.Clock, percentiles []float64) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		buckets: New(clk.Now(), percentiles),
		clock:   clk,
	}
}

// Access runs fn with exclusive access to the buckets.
// fn must not retain b after it returns.
func (s *Store) Access(fn func(b *Buckets)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.buckets)
}

// Now returns the store clock time.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Snapshot takes the flush snapshot stamped with at and resets counters and
// timers in one exclusive access. A flush is Snapshot followed by Export.
func (s *Store) Snapshot(at time.Time, exporters []Exporter) *Snapshot {
	var snap *Snapshot
	s.Access(func(b *Buckets) {
		snap = b.TakeSnapshot(at)
		for _, e := range exporters {
			b.RegisterBackend(e.Name())
		}
	})
	return snap
}

// Export hands snap to every exporter one after another and records each
// flush timing.
//
// The lock is held only to record timings, never during export, so a slow
// backend delays the next export but not ingestion or management commands.
// Counters and timers were already reset by Snapshot: a failed export loses
// the interval.
func (s *Store) Export(snap *Snapshot, exporters []Exporter) {
	for _, e := range exporters {
		began := s.clock.Now()
		err := e.Export(snap)
		length := s.clock.Since(began)

		s.Access(func(b *Buckets) {
			b.RecordFlush(e.Name(), began, length, err != nil)
		})
	}
}
