// SPDX-License-Identifier: GPL-3.0-or-later

package ticker

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Ticker delivers the tick sequence number on C every interval.
// Ticks that the receiver is not ready for are dropped, same as time.Ticker.
type Ticker struct {
	C        <-chan int
	done     chan struct{}
	interval time.Duration
	clock    clock.Clock
}

// New returns a Ticker driven by clk.
func New(clk clock.Clock, interval time.Duration) *Ticker {
	t := &Ticker{
		interval: interval,
		done:     make(chan struct{}),
		clock:    clk,
	}
	t.start()
	return t
}

func (t *Ticker) start() {
	ch := make(chan int)
	t.C = ch
	go func() {
		tk := t.clock.Ticker(t.interval)
		defer tk.Stop()

		var n int
		for {
			select {
			case <-t.done:
				return
			case <-tk.C:
				n++
				select {
				case ch <- n:
				default:
				}
			}
		}
	}()
}

// Stop stops the ticker.
func (t *Ticker) Stop() {
	close(t.done)
}
