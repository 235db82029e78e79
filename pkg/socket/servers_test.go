// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"errors"
	"io"
	"net"
	"sync"
)

// tcpServer records everything each connection writes until it closes.
type tcpServer struct {
	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	received []string
}

func newTCPServer() (*tcpServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	srv := &tcpServer{listener: ln}
	srv.wg.Add(1)
	go func() { defer srv.wg.Done(); srv.serve() }()
	return srv, nil
}

func (t *tcpServer) addr() string {
	return "tcp://" + t.listener.Addr().String()
}

func (t *tcpServer) serve() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handle(conn)
		}()
	}
}

func (t *tcpServer) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	bs, _ := io.ReadAll(conn)
	t.mu.Lock()
	t.received = append(t.received, string(bs))
	t.mu.Unlock()
}

func (t *tcpServer) payloads() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.received...)
}

func (t *tcpServer) Close() error {
	err := t.listener.Close()
	t.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
