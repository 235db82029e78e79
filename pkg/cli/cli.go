// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"github.com/jessevdk/go-flags"

	"github.com/netdata/netdata/go/statsd/pkg/confopt"
)

// Option defines command line options.
// Zero values mean "not set" and leave the config file values untouched.
type Option struct {
	ConfigFile        string           `short:"c" long:"config" description:"configuration file to read"`
	IngestAddress     string           `long:"ingest-address" description:"UDP address to receive metrics on (default :8125)"`
	ManagementAddress string           `long:"management-address" description:"TCP address of the management interface (default :8126)"`
	TelemetryAddress  string           `long:"telemetry-address" description:"HTTP address to expose daemon self metrics on"`
	FlushInterval     confopt.Duration `short:"f" long:"flush-interval" description:"flush interval (default 10s)"`
	MaxPacketSize     int              `long:"max-packet-size" description:"max accepted datagram size in bytes (default 256)"`
	GraphiteAddress   string           `short:"g" long:"graphite" description:"graphite plaintext address, e.g. tcp://127.0.0.1:2003"`
	Prefix            string           `short:"p" long:"prefix" description:"metric name prefix for the graphite backend"`
	LogLevel          string           `long:"log-level" description:"log level (error, warning, info, debug)"`
	Debug             bool             `short:"d" long:"debug" description:"debug mode"`
	Version           bool             `short:"v" long:"version" description:"display the version and exit"`
}

// Parse returns parsed command-line flags in Option struct
func Parse(args []string) (*Option, error) {
	opt := &Option{}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "statsd"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return opt, nil
}

func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}
