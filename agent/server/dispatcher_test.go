// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdata/netdata/go/statsd/agent/buckets"
	"github.com/netdata/netdata/go/statsd/agent/mgmt"
	"github.com/netdata/netdata/go/statsd/agent/telemetry"
)

var tickTime = time.Unix(1700000000, 0)

func newTestDispatcher(t *testing.T) (*Server, chan Event, chan *buckets.Snapshot, func()) {
	t.Helper()

	tel := telemetry.New()
	tel.Mute()
	srv := New(Config{FlushInterval: time.Second, MaxPacketSize: 256}, buckets.NewStore(clock.NewMock(), nil), nil, tel)
	srv.Mute()
	srv.mgmt.Mute()

	events := make(chan Event)
	snapshots := make(chan *buckets.Snapshot, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); srv.dispatch(ctx, events, snapshots) }()

	return srv, events, snapshots, func() {
		cancel()
		<-done
		srv.handlers.Wait()
	}
}

func TestDispatch_ConcurrentProducersNoLostUpdates(t *testing.T) {
	const producers, perProducer = 8, 500

	srv, events, _, stop := newTestDispatcher(t)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				events <- IngestDatagram{Data: []byte("hits:1|c")}
			}
		}()
	}
	wg.Wait()

	// unbuffered channel: one more event guarantees the previous ones were handled
	events <- IngestDatagram{Data: []byte("sync:1|g")}

	require.Eventually(t, func() bool {
		var ok bool
		srv.store.Access(func(b *buckets.Buckets) { _, ok = b.Gauges["sync"] })
		return ok
	}, time.Second, time.Millisecond*5)

	srv.store.Access(func(b *buckets.Buckets) {
		assert.Equal(t, float64(producers*perProducer), b.Counters["hits"])
	})
}

func TestDispatch_BadMessages(t *testing.T) {
	srv, events, _, stop := newTestDispatcher(t)
	defer stop()

	events <- IngestDatagram{Data: []byte("not-a-metric")}
	events <- IngestDatagram{Data: []byte{0xff, 0xfe}}
	events <- IngestDatagram{Data: []byte("foo:1|c")}
	events <- FlushTick{Time: tickTime}

	require.Eventually(t, func() bool {
		var n uint64
		srv.store.Access(func(b *buckets.Buckets) { n = b.BadMessages })
		return n == 2
	}, time.Second, time.Millisecond*5)
}

func TestDispatch_TruncatedDatagram(t *testing.T) {
	srv, events, _, stop := newTestDispatcher(t)
	defer stop()

	events <- IngestDatagram{Data: []byte("foo:1|"), Truncated: true}
	events <- IngestDatagram{Data: []byte("bar:1|c"), Truncated: true}
	// unbuffered channel: one more event guarantees the previous ones were handled
	events <- IngestDatagram{Data: []byte("sync:1|g")}

	require.Eventually(t, func() bool {
		var ok bool
		srv.store.Access(func(b *buckets.Buckets) { _, ok = b.Gauges["sync"] })
		return ok
	}, time.Second, time.Millisecond*5)

	assert.Equal(t, 2.0, testutil.ToFloat64(srv.telemetry.OversizedPackets))
	srv.store.Access(func(b *buckets.Buckets) {
		assert.EqualValues(t, 1, b.BadMessages)
		assert.Equal(t, 1.0, b.Counters["bar"])
	})
}

func TestDispatch_FlushTick(t *testing.T) {
	srv, events, snapshots, stop := newTestDispatcher(t)
	defer stop()

	events <- IngestDatagram{Data: []byte("foo:1|c")}
	events <- IngestDatagram{Data: []byte("foo:1|c")}
	events <- IngestDatagram{Data: []byte("t:4|ms")}
	events <- FlushTick{Time: tickTime}

	select {
	case snap := <-snapshots:
		assert.Equal(t, tickTime, snap.Timestamp)
		assert.Equal(t, 2.0, snap.Counters["foo"])
		assert.Equal(t, 1, snap.Timers["t"].Count)
	case <-time.After(time.Second):
		require.FailNow(t, "no snapshot after flush tick")
	}

	srv.store.Access(func(b *buckets.Buckets) {
		assert.Empty(t, b.Counters)
		assert.Empty(t, b.Timers)
	})
}

func TestDispatch_ConnectionAccepted(t *testing.T) {
	_, events, _, stop := newTestDispatcher(t)

	client, server := net.Pipe()
	events <- ConnectionAccepted{Conn: server}

	_, err := client.Write([]byte("health\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "health: up\n", string(buf[:n]))

	// stopping cancels the handler context, which closes the connection
	stop()
	_, err = client.Read(buf)
	assert.Error(t, err)
}

func TestNew_ManagementIdle(t *testing.T) {
	tests := map[string]struct {
		idle time.Duration
		want time.Duration
	}{
		"zero keeps default": {idle: 0, want: mgmt.DefaultIdleTimeout},
		"positive overrides": {idle: time.Second * 30, want: time.Second * 30},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			srv := New(Config{ManagementIdle: test.idle}, buckets.NewStore(clock.NewMock(), nil), nil, telemetry.New())

			assert.Equal(t, test.want, srv.mgmt.IdleTimeout)
		})
	}
}
