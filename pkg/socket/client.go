// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"bufio"
	"errors"
	"net"
	"time"
)

// ConnectAndWrite opens a fresh connection, writes the whole payload and closes it.
func ConnectAndWrite(cfg Config, payload []byte) error {
	sock := New(cfg)

	if err := sock.Connect(); err != nil {
		return err
	}

	err := sock.Write(payload)
	if cerr := sock.Disconnect(); err == nil {
		err = cerr
	}

	return err
}

// New returns a socket client for a TCP, UDP or unix address.
// Both IPv4 and IPv6 addresses are supported.
func New(cfg Config) *Socket {
	return &Socket{Config: cfg}
}

// Socket is a write only socket client.
type Socket struct {
	Config
	conn net.Conn
}

// Connect connects to the Socket address on the named network.
// If the address is a domain name it will also perform the DNS resolution.
// Address like :2003 will attempt to connect to the localhost.
func (s *Socket) Connect() error {
	network, address := ParseAddress(s.Address)

	conn, err := net.DialTimeout(network, address, timeout(s.ConnectTimeout))
	if err != nil {
		return err
	}

	s.conn = conn

	return nil
}

// Disconnect closes the connection.
func (s *Socket) Disconnect() (err error) {
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	return err
}

// Write writes the payload to the connection within the write timeout.
func (s *Socket) Write(payload []byte) error {
	if s.conn == nil {
		return errors.New("attempt to write on nil connection")
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(timeout(s.WriteTimeout))); err != nil {
		return err
	}

	w := bufio.NewWriter(s.conn)
	if _, err := w.Write(payload); err != nil {
		return err
	}

	return w.Flush()
}

func timeout(d time.Duration) time.Duration {
	if d == 0 {
		return time.Second
	}
	return d
}
