// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gohugoio/hashstructure"
)

// watchConfig notifies changed when path is written, created or renamed into place.
// Bursts of events are coalesced.
func (a *Agent) watchConfig(ctx context.Context, path string, changed chan<- struct{}) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		a.Warningf("config watch disabled: %v", err)
		return
	}
	defer func() { _ = w.Close() }()

	// editors replace the file, so the directory is watched
	name := filepath.Clean(path)
	if err := w.Add(filepath.Dir(name)); err != nil {
		a.Warningf("config watch disabled: %v", err)
		return
	}
	a.Debugf("watching config file '%s'", name)

	const settle = time.Millisecond * 200
	debounce := time.NewTimer(settle)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			a.Warningf("config watch: %v", err)
		case <-debounce.C:
			select {
			case changed <- struct{}{}:
			default:
			}
		}
	}
}

func configHash(cfg Config) uint64 {
	h, _ := hashstructure.Hash(cfg, nil)
	return h
}
