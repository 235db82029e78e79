// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import "strings"

// ParseAddress splits a scheme prefixed address into network and address.
func ParseAddress(address string) (network, addr string) {
	switch {
	case strings.HasPrefix(address, "/"), strings.HasPrefix(address, "unix://"):
		return "unix", strings.TrimPrefix(address, "unix://")
	case strings.HasPrefix(address, "udp://"):
		return "udp", strings.TrimPrefix(address, "udp://")
	default:
		return "tcp", strings.TrimPrefix(address, "tcp://")
	}
}
