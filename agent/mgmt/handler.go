// SPDX-License-Identifier: GPL-3.0-or-later

package mgmt

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/logger"
)

const (
	maxCommandLength = 4096

	DefaultIdleTimeout  = time.Minute * 5
	DefaultWriteTimeout = time.Second * 10
)

// Handler serves one management connection: it reads a newline terminated
// command, executes it with exclusive access to the store and writes the
// response, until the client disconnects, sends quit, or an I/O error occurs.
type Handler struct {
	*logger.Logger

	Store *buckets.Store
	// IdleTimeout closes connections that send nothing for this long. Zero disables it.
	IdleTimeout time.Duration
	// WriteTimeout closes connections that do not read a response in time. Zero disables it.
	WriteTimeout time.Duration
	// OnCommand, if set, is called after each executed command.
	OnCommand func()
}

func NewHandler(store *buckets.Store) *Handler {
	return &Handler{
		Logger: logger.New().With(
			slog.String("component", "management"),
		),
		Store:        store,
		IdleTimeout:  DefaultIdleTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Serve runs the read/execute/write loop on conn and closes it on return.
// Cancelling ctx closes the connection.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	h.Debugf("connection from '%s' opened", remote)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
		h.Debugf("connection from '%s' closed", remote)
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 512), maxCommandLength)
	w := bufio.NewWriter(conn)

	for {
		if h.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.IdleTimeout))
		}

		if !sc.Scan() {
			if err := sc.Err(); err != nil && !isClosedConn(err) {
				h.Debugf("read from '%s': %v", remote, err)
			}
			return
		}

		var res Result
		line := sc.Text()
		h.Store.Access(func(b *buckets.Buckets) {
			res = Execute(b, h.Store.Now(), line)
		})
		if h.OnCommand != nil {
			h.OnCommand()
		}

		if res.Response != "" {
			if h.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
			}
			if _, err := w.WriteString(res.Response); err != nil {
				h.Debugf("write to '%s': %v", remote, err)
				return
			}
			if err := w.Flush(); err != nil {
				h.Debugf("write to '%s': %v", remote, err)
				return
			}
		}

		if res.Close {
			return
		}
	}
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
