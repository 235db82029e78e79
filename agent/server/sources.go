// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/netdata/netdata/go/statsd/pkg/ticker"
)

// send delivers ev unless ctx is done first.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) runFlushSource(ctx context.Context, clk clock.Clock, events chan<- Event) {
	tk := ticker.New(clk, s.FlushInterval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if !send(ctx, events, FlushTick{Time: clk.Now()}) {
				return
			}
		}
	}
}

// runIngestSource reads datagrams into a buffer of MaxPacketSize bytes.
// A datagram that fills the buffer is flagged: the kernel drops whatever did
// not fit, so it may be truncated.
func (s *Server) runIngestSource(ctx context.Context, conn net.PacketConn, events chan<- Event) {
	buf := make([]byte, s.MaxPacketSize)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.Warningf("ingest: read: %v", err)
			continue
		}

		s.telemetry.PacketsReceived.Inc()

		truncated := n >= len(buf)
		if truncated {
			s.Warningf("ingest: max packet size (%d bytes) reached, datagram from '%s' may be truncated", len(buf), addr)
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		if !send(ctx, events, IngestDatagram{Data: data, Truncated: truncated}) {
			return
		}
	}
}

func (s *Server) runAcceptSource(ctx context.Context, ln net.Listener, events chan<- Event) {
	var delay time.Duration

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			// e.g. EMFILE: back off instead of spinning
			delay = min(max(delay*2, time.Millisecond*5), time.Second)
			s.Warningf("management: accept: %v; retrying in %s", err, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		if !send(ctx, events, ConnectionAccepted{Conn: conn}) {
			_ = conn.Close()
			return
		}
	}
}
