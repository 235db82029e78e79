// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"context"

	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/agent/metric"
)

// dispatch is the single consumer of events. Ingest and flush snapshots are
// applied to the store in arrival order; exports and management connections
// are handed to their own goroutines so the loop never waits on the network.
func (s *Server) dispatch(ctx context.Context, events <-chan Event, snapshots chan<- *buckets.Snapshot) {
	defer s.drain(events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev := ev.(type) {
			case FlushTick:
				s.handleFlush(ctx, ev, snapshots)
			case IngestDatagram:
				s.handleDatagram(ev)
			case ConnectionAccepted:
				s.handleConnection(ctx, ev)
			default:
				s.Errorf("dispatcher: unexpected event %T", ev)
			}
		}
	}
}

func (s *Server) handleFlush(ctx context.Context, ev FlushTick, snapshots chan<- *buckets.Snapshot) {
	snap := s.store.Snapshot(ev.Time, s.exporters)
	s.telemetry.Flushes.Inc()

	select {
	case snapshots <- snap:
	default:
		s.Warning("flush: previous export is still running, waiting for it")
		select {
		case snapshots <- snap:
		case <-ctx.Done():
		}
	}
}

func (s *Server) handleDatagram(ev IngestDatagram) {
	if ev.Truncated {
		s.telemetry.OversizedPackets.Inc()
	}

	m, err := metric.ParseDatagram(ev.Data)

	s.store.Access(func(b *buckets.Buckets) {
		if err != nil {
			b.RecordBadMessage()
			return
		}
		b.AddMetric(m)
		b.Seen(s.store.Now())
	})

	if err != nil {
		s.telemetry.BadMessages.Inc()
		if ev.Truncated {
			s.Debugf("ingest: dropping truncated datagram: %v", err)
		} else {
			s.Debugf("ingest: dropping datagram: %v", err)
		}
		return
	}
	s.telemetry.ObserveMetric(m)
}

func (s *Server) handleConnection(ctx context.Context, ev ConnectionAccepted) {
	s.telemetry.MgmtConnections.Inc()

	s.handlers.Go(func() {
		defer s.telemetry.MgmtConnections.Dec()
		s.mgmt.Serve(ctx, ev.Conn)
	})
}

// runExporter exports snapshots one at a time, in flush order.
func (s *Server) runExporter(ctx context.Context, snapshots <-chan *buckets.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-snapshots:
			s.store.Export(snap, s.exporters)
		}
	}
}

// drain closes management connections that were accepted but never dispatched.
func (s *Server) drain(events <-chan Event) {
	for {
		select {
		case ev := <-events:
			if c, ok := ev.(ConnectionAccepted); ok {
				_ = c.Conn.Close()
			}
		default:
			return
		}
	}
}
