// SPDX-License-Identifier: GPL-3.0-or-later

package mgmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/netdata/netdata/go/statsd/agent/buckets"
)

const endMarker = "END\n\n"

const helpText = `Commands: stats, counters, gauges, timers, delcounters, delgauges, deltimers, health, quit

`

// Result is the outcome of one management command.
type Result struct {
	Response string
	// Close asks the connection handler to close the connection
	// after writing Response.
	Close bool
}

// Execute runs one management command against b. It must be called with
// exclusive access to b. now is used for uptime and message age.
func Execute(b *buckets.Buckets, now time.Time, line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{Response: "ERROR\n"}
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		return Result{Response: helpText}
	case "stats":
		return Result{Response: stats(b, now)}
	case "counters":
		return Result{Response: dumpValues(b.Counters)}
	case "gauges":
		return Result{Response: dumpValues(b.Gauges)}
	case "timers":
		return Result{Response: dumpTimers(b.Timers)}
	case "delcounters":
		return Result{Response: deleteKeys(b.Counters, args)}
	case "delgauges":
		return Result{Response: deleteKeys(b.Gauges, args)}
	case "deltimers":
		return Result{Response: deleteKeys(b.Timers, args)}
	case "health":
		return Result{Response: health(b, args)}
	case "quit":
		return Result{Close: true}
	default:
		return Result{Response: "ERROR\n"}
	}
}

func stats(b *buckets.Buckets, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "uptime: %d\n", secondsSince(now, b.StartTime))
	fmt.Fprintf(&sb, "messages.last_msg_seen: %d\n", secondsSince(now, b.LastMessageSeen))
	fmt.Fprintf(&sb, "bad_messages: %d\n", b.BadMessages)

	for _, name := range b.Backends() {
		st, _ := b.FlushStatus(name)
		fmt.Fprintf(&sb, "%s.last_flush: %d\n", name, unixOrZero(st.LastFlush))
		fmt.Fprintf(&sb, "%s.flush_time: %d\n", name, st.FlushLength.Milliseconds())
		fmt.Fprintf(&sb, "%s.last_exception: %d\n", name, unixOrZero(st.LastException))
	}

	sb.WriteString(endMarker)
	return sb.String()
}

func dumpValues(m map[string]float64) string {
	var sb strings.Builder
	for _, name := range sortedKeys(m) {
		fmt.Fprintf(&sb, "%s: %s\n", name, buckets.FormatValue(m[name]))
	}
	sb.WriteString(endMarker)
	return sb.String()
}

func dumpTimers(m map[string][]float64) string {
	var sb strings.Builder
	for _, name := range sortedKeys(m) {
		values := make([]string, 0, len(m[name]))
		for _, v := range m[name] {
			values = append(values, buckets.FormatValue(v))
		}
		fmt.Fprintf(&sb, "%s: [%s]\n", name, strings.Join(values, ", "))
	}
	sb.WriteString(endMarker)
	return sb.String()
}

func deleteKeys[V any](m map[string]V, names []string) string {
	var sb strings.Builder
	for _, name := range names {
		if _, ok := m[name]; !ok {
			fmt.Fprintf(&sb, "metric %s not found\n", name)
			continue
		}
		delete(m, name)
		fmt.Fprintf(&sb, "deleted: %s\n", name)
	}
	sb.WriteString(endMarker)
	return sb.String()
}

func health(b *buckets.Buckets, args []string) string {
	if len(args) == 0 {
		if b.Healthy {
			return "health: up\n"
		}
		return "health: down\n"
	}

	switch strings.ToLower(args[0]) {
	case "up":
		b.Healthy = true
	case "down":
		b.Healthy = false
	default:
		return "ERROR\n"
	}
	return "ok\n"
}

func secondsSince(now, t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return int64(now.Sub(t) / time.Second)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
