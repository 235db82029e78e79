// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"
	"golang.org/x/net/netutil"

	"github.com/netdata/netdata/go/statsd/agent/backend"
	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/agent/mgmt"
	"github.com/netdata/netdata/go/statsd/agent/telemetry"
	"github.com/netdata/netdata/go/statsd/logger"
)

const (
	defaultQueueSize          = 1024
	defaultMaxManagementConns = 64
)

// Config is the network and timing configuration of the Server.
type Config struct {
	IngestAddress      string
	ManagementAddress  string
	FlushInterval      time.Duration
	MaxPacketSize      int
	MaxManagementConns int
	// ManagementIdle overrides mgmt.DefaultIdleTimeout when positive.
	ManagementIdle time.Duration
	QueueSize          int
}

// Server owns the event sources, the dispatcher and the export loop.
type Server struct {
	*logger.Logger
	Config

	Clock clock.Clock

	store     *buckets.Store
	exporters []buckets.Exporter
	telemetry *telemetry.Telemetry
	mgmt      *mgmt.Handler
	handlers  conc.WaitGroup

	ingestConn net.PacketConn
	mgmtLn     net.Listener
}

// New returns a Server flushing store to backends. tel must not be nil.
func New(cfg Config, store *buckets.Store, backends []backend.Backend, tel *telemetry.Telemetry) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.MaxManagementConns <= 0 {
		cfg.MaxManagementConns = defaultMaxManagementConns
	}

	exporters := make([]buckets.Exporter, 0, len(backends))
	for _, exp := range backend.Exporters(backends) {
		exporters = append(exporters, tel.Instrument(exp))
	}

	h := mgmt.NewHandler(store)
	if cfg.ManagementIdle > 0 {
		h.IdleTimeout = cfg.ManagementIdle
	}
	h.OnCommand = tel.MgmtCommands.Inc

	return &Server{
		Logger: logger.New().With(
			slog.String("component", "server"),
		),
		Config:    cfg,
		Clock:     clock.New(),
		store:     store,
		exporters: exporters,
		telemetry: tel,
		mgmt:      h,
	}
}

// Listen binds the ingest socket and the management listener.
func (s *Server) Listen() error {
	if s.FlushInterval <= 0 {
		return errors.New("flush interval must be positive")
	}
	if s.MaxPacketSize <= 0 {
		return errors.New("max packet size must be positive")
	}

	pc, err := net.ListenPacket("udp", s.IngestAddress)
	if err != nil {
		return fmt.Errorf("listen ingest '%s': %w", s.IngestAddress, err)
	}

	ln, err := net.Listen("tcp", s.ManagementAddress)
	if err != nil {
		_ = pc.Close()
		return fmt.Errorf("listen management '%s': %w", s.ManagementAddress, err)
	}

	s.ingestConn = pc
	s.mgmtLn = netutil.LimitListener(ln, s.MaxManagementConns)

	return nil
}

// IngestAddr returns the bound ingest address. Valid after Listen.
func (s *Server) IngestAddr() net.Addr { return s.ingestConn.LocalAddr() }

// ManagementAddr returns the bound management address. Valid after Listen.
func (s *Server) ManagementAddr() net.Addr { return s.mgmtLn.Addr() }

// Run serves until ctx is done. Listen must be called first.
func (s *Server) Run(ctx context.Context) error {
	if s.ingestConn == nil || s.mgmtLn == nil {
		return errors.New("server is not listening")
	}

	s.Infof("instance is started: ingest '%s', management '%s', flush every %s",
		s.IngestAddr(), s.ManagementAddr(), s.FlushInterval)
	defer func() { s.Info("instance is stopped") }()

	events := make(chan Event, s.QueueSize)
	snapshots := make(chan *buckets.Snapshot, 1)

	var wg conc.WaitGroup

	wg.Go(func() { s.runFlushSource(ctx, s.Clock, events) })
	wg.Go(func() { s.runIngestSource(ctx, s.ingestConn, events) })
	wg.Go(func() { s.runAcceptSource(ctx, s.mgmtLn, events) })
	wg.Go(func() { s.runExporter(ctx, snapshots) })
	wg.Go(func() { s.dispatch(ctx, events, snapshots) })

	<-ctx.Done()

	err := s.close()
	wg.Wait()
	s.handlers.Wait()

	return err
}

func (s *Server) close() error {
	return multierr.Combine(
		s.ingestConn.Close(),
		s.mgmtLn.Close(),
	)
}
