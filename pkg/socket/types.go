// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import "time"

// Config holds the network address (tcp://, udp:// or unix:// prefixed,
// tcp when no scheme is given) and timeouts for a Socket.
type Config struct {
	Address        string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}
