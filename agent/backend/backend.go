// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"fmt"
	"slices"

	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/pkg/confopt"
)

// Backend consumes flush snapshots and ships them somewhere.
//
// Export is best effort: it must return within a bounded time and must not
// panic on transport failures. The returned error is only used for
// bookkeeping, the snapshot is never retried.
type Backend interface {
	buckets.Exporter
}

// Config is the configuration of one backend instance.
type Config struct {
	Type    string           `yaml:"type"`
	Name    string           `yaml:"name"`
	Address string           `yaml:"address"`
	Prefix  string           `yaml:"prefix"`
	Timeout confopt.Duration `yaml:"timeout"`
}

// InstanceName returns Name, or Type when Name is empty.
func (c Config) InstanceName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Type
}

type (
	// Creator builds a Backend from its configuration.
	Creator struct {
		Create func(cfg Config) (Backend, error)
	}
	// Registry is a collection of Creators keyed by backend type.
	Registry map[string]Creator
)

// DefaultRegistry holds the backends compiled into the binary.
var DefaultRegistry = Registry{}

// Register registers a backend type in the DefaultRegistry.
func Register(typ string, creator Creator) {
	DefaultRegistry.Register(typ, creator)
}

// Register registers a backend type.
func (r Registry) Register(typ string, creator Creator) {
	if _, ok := r[typ]; ok {
		panic(fmt.Sprintf("%s is already in registry", typ))
	}
	r[typ] = creator
}

func (r Registry) Lookup(typ string) (Creator, bool) {
	c, ok := r[typ]
	return c, ok
}

// Types returns the registered backend types, sorted.
func (r Registry) Types() []string {
	var types []string
	for typ := range r {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}

// New creates a backend of the configured type.
func (r Registry) New(cfg Config) (Backend, error) {
	creator, ok := r.Lookup(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unknown backend type '%s' (known: %v)", cfg.Type, r.Types())
	}
	if creator.Create == nil {
		return nil, fmt.Errorf("backend type '%s' has no constructor", cfg.Type)
	}
	return creator.Create(cfg)
}

// Exporters converts backends to the form the bucket store flushes to.
func Exporters(bs []Backend) []buckets.Exporter {
	out := make([]buckets.Exporter, 0, len(bs))
	for _, b := range bs {
		out = append(out, b)
	}
	return out
}
