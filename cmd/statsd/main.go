// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/netdata/netdata/go/statsd/agent"
	"github.com/netdata/netdata/go/statsd/logger"
	"github.com/netdata/netdata/go/statsd/pkg/buildinfo"
	"github.com/netdata/netdata/go/statsd/pkg/cli"
)

func main() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(s string, args ...interface{}) {}))

	opts := parseCLI()

	if opts.Version {
		fmt.Printf("statsd, version: %s\n", buildinfo.Version)
		return
	}

	if opts.LogLevel != "" {
		logger.Level.SetByName(opts.LogLevel)
	}
	if opts.Debug {
		logger.Level.Set(slog.LevelDebug)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}

	a := agent.New(cfg)
	a.Reload = func() (agent.Config, error) { return loadConfig(opts) }
	a.ConfigPath = opts.ConfigFile

	a.Infof("statsd: %s", buildinfo.Info())
	if opts.ConfigFile != "" {
		a.Infof("config file: %s", opts.ConfigFile)
	}

	a.Run()
}

func loadConfig(opts *cli.Option) (agent.Config, error) {
	cfg, err := agent.LoadConfig(opts.ConfigFile)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyOptions(opts)
	return cfg, cfg.Validate()
}

func parseCLI() *cli.Option {
	opt, err := cli.Parse(os.Args[1:])
	if err != nil {
		if cli.IsHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	return opt
}
