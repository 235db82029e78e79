// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/netdata/netdata/go/statsd/agent/backend"
	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/agent/server"
	"github.com/netdata/netdata/go/statsd/agent/telemetry"
	"github.com/netdata/netdata/go/statsd/logger"

	_ "github.com/netdata/netdata/go/statsd/agent/backend/console"
	_ "github.com/netdata/netdata/go/statsd/agent/backend/graphite"
)

// Agent wires the bucket store, backends, telemetry and server together.
type Agent struct {
	*logger.Logger

	Config   Config
	Backends backend.Registry

	// Reload, if set, is called on SIGHUP and on ConfigPath changes to get
	// the new configuration.
	Reload func() (Config, error)
	// ConfigPath, if set, is watched for changes.
	ConfigPath string

	store     *buckets.Store
	telemetry *telemetry.Telemetry
}

// New creates a new Agent. The bucket store lives as long as the Agent, so
// gauges and bad message counts survive SIGHUP restarts.
func New(cfg Config) *Agent {
	return &Agent{
		Logger: logger.New().With(
			slog.String("component", "agent"),
		),
		Config:    cfg,
		Backends:  backend.DefaultRegistry,
		store:     buckets.NewStore(nil, cfg.Percentiles),
		telemetry: telemetry.New(),
	}
}

// Run starts the Agent and blocks until SIGINT or SIGTERM.
func (a *Agent) Run() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	changed := make(chan struct{}, 1)
	if a.ConfigPath != "" {
		watchCtx, stop := context.WithCancel(context.Background())
		defer stop()
		go a.watchConfig(watchCtx, a.ConfigPath, changed)
	}

	for {
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)

		go func() { errCh <- a.run(ctx) }()

	wait:
		for {
			select {
			case err := <-errCh:
				cancel()
				a.Errorf("instance failed: %v", err)
				os.Exit(1)
			case sig := <-ch:
				cancel()
				a.waitStopped(errCh)

				if sig != syscall.SIGHUP {
					a.Infof("received %s signal (%d). Terminating...", sig, sig)
					return
				}
				a.Infof("received %s signal (%d). Restarting running instance", sig, sig)
				if cfg, ok := a.reload(); ok {
					a.Config = cfg
				}
				break wait
			case <-changed:
				cfg, ok := a.reload()
				if !ok || configHash(cfg) == configHash(a.Config) {
					continue
				}
				a.Infof("config file '%s' changed. Restarting running instance", a.ConfigPath)
				cancel()
				a.waitStopped(errCh)
				a.Config = cfg
				break wait
			}
		}
	}
}

func (a *Agent) waitStopped(errCh <-chan error) {
	timeout := time.Second * 10
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			a.Warningf("instance stopped with error: %v", err)
		}
	case <-t.C:
		a.Errorf("stopping the instance timed out after %s. Exiting...", timeout)
		os.Exit(0)
	}
}

// reload returns the new config. ok is false if there is no valid one.
func (a *Agent) reload() (cfg Config, ok bool) {
	if a.Reload == nil {
		return cfg, false
	}
	cfg, err := a.Reload()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		a.Errorf("reload config: %v, keeping the current one", err)
		return cfg, false
	}
	return cfg, true
}

func (a *Agent) run(ctx context.Context) error {
	a.Infof("using config: %s", a.Config)

	backends, err := a.createBackends()
	if err != nil {
		return err
	}
	if len(backends) == 0 {
		a.Warning("no backends configured, flushed data is discarded")
	}

	a.store.Access(func(b *buckets.Buckets) {
		prev := b.Percentiles()
		b.SetPercentiles(a.Config.Percentiles)
		if cur := b.Percentiles(); !slices.Equal(prev, cur) {
			a.Infof("timer percentiles changed from %v to %v", prev, cur)
		}
	})

	srv := server.New(server.Config{
		IngestAddress:      a.Config.IngestAddress,
		ManagementAddress:  a.Config.ManagementAddress,
		FlushInterval:      a.Config.FlushInterval.Duration(),
		MaxPacketSize:      a.Config.MaxPacketSize,
		MaxManagementConns: a.Config.ManagementMaxConns,
		ManagementIdle:     a.Config.ManagementIdleTimeout.Duration(),
	}, a.store, backends, a.telemetry)

	if err := srv.Listen(); err != nil {
		return err
	}

	var wg conc.WaitGroup
	defer wg.Wait()

	if addr := a.Config.TelemetryAddress; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			a.Errorf("self metrics disabled: listen '%s': %v", addr, err)
		} else {
			wg.Go(func() { a.telemetry.Serve(ctx, ln) })
		}
	}

	return srv.Run(ctx)
}

func (a *Agent) createBackends() ([]backend.Backend, error) {
	var backends []backend.Backend
	for _, cfg := range a.Config.BackendConfigs() {
		b, err := a.Backends.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("backend '%s': %w", cfg.InstanceName(), err)
		}
		a.Infof("backend '%s' (%s) enabled", b.Name(), cfg.Type)
		backends = append(backends, b)
	}
	return backends, nil
}
