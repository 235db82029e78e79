// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"net"
	"time"
)

// Event is a unit of work produced by one of the sources and consumed once by
// the dispatcher. Implementations: FlushTick, IngestDatagram, ConnectionAccepted.
type Event interface {
	event()
}

// FlushTick asks the dispatcher to flush the buckets. Time stamps the snapshot.
type FlushTick struct {
	Time time.Time
}

// IngestDatagram carries the payload of one received datagram.
// Truncated is set when the datagram filled the receive buffer.
type IngestDatagram struct {
	Data      []byte
	Truncated bool
}

// ConnectionAccepted carries a new management connection.
type ConnectionAccepted struct {
	Conn net.Conn
}

func (FlushTick) event()          {}
func (IngestDatagram) event()     {}
func (ConnectionAccepted) event() {}
