// Package transport implements the three logical XTABLES sockets (push,
// req, sub) as independently reconnecting TCP streams framed by
// internal/framing and carrying internal/wire payloads.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Kobeeeef/XTABLES/internal/framing"
	"github.com/Kobeeeef/XTABLES/internal/monitor"
	"github.com/Kobeeeef/XTABLES/pkg/clients"
	"github.com/Kobeeeef/XTABLES/pkg/logging"
)

// ReconnectInterval is the flat retry interval §4.D mandates for every
// endpoint's dial loop (no exponential backoff).
const ReconnectInterval = time.Second

// conn bundles a live connection with its frame reader, replaced wholesale
// on every reconnect so a partial frame from a prior connection can never
// be mistaken for the start of a new one.
type conn struct {
	nc     net.Conn
	reader *framing.Reader
}

// dialer is the shared reconnect-supervisor logic used by the push and
// sub endpoints (persistent, long-lived connections). The req endpoint
// has its own lighter-weight connect-on-demand logic (see req.go) since
// it tears down and rebuilds on every failure rather than running a
// background supervisor.
type dialer struct {
	name    string
	addr    func() string
	monitor *monitor.Monitor
	logger  logging.Logger

	mu      sync.RWMutex
	current *conn
}

func newDialer(name string, addr func() string, mon *monitor.Monitor, logger logging.Logger) *dialer {
	if mon != nil {
		mon.Attach(name)
	}
	return &dialer{name: name, addr: addr, monitor: mon, logger: logger}
}

// get returns the active connection, or nil if not yet connected.
func (d *dialer) get() *conn {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// closeCurrent closes the active connection, if any. Used to unblock a
// supervisor goroutine parked in a blocking read so it can observe its
// context's cancellation and return, rather than leaking past shutdown.
func (d *dialer) closeCurrent() error {
	d.mu.RLock()
	c := d.current
	d.mu.RUnlock()
	if c == nil {
		return nil
	}
	return c.nc.Close()
}

func (d *dialer) setStatus(s monitor.Status) {
	if d.monitor != nil {
		d.monitor.Set(d.name, s)
	}
}

// connectOnce dials the endpoint's address a single time.
func (d *dialer) connectOnce(ctx context.Context) (*conn, error) {
	address := d.addr()
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var nd net.Dialer
	nc, err := nd.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s (%s): %w", d.name, address, err)
	}
	return &conn{nc: nc, reader: framing.NewReader(nc)}, nil
}

// run is the reconnect supervisor loop: connect, call onConnected with the
// live connection, and on any returned error (or if onConnected returns at
// all, meaning the connection died) close it and retry at a flat interval
// until ctx is cancelled.
func (d *dialer) run(ctx context.Context, onConnected func(ctx context.Context, c *conn)) {
	first := true
	for {
		if ctx.Err() != nil {
			d.setStatus(monitor.StatusMonitorStopped)
			return
		}
		if !first {
			d.setStatus(monitor.StatusConnectRetried)
		}
		first = false

		c, err := clients.Retry(ctx, clients.FlatRetryConfig{Interval: ReconnectInterval}, func() (*conn, error) {
			d.setStatus(monitor.StatusConnectDelayed)
			return d.connectOnce(ctx)
		})
		if err != nil {
			// ctx was cancelled mid-retry.
			d.setStatus(monitor.StatusMonitorStopped)
			return
		}

		d.mu.Lock()
		d.current = c
		d.mu.Unlock()
		d.setStatus(monitor.StatusConnected)

		onConnected(ctx, c)

		d.mu.Lock()
		if d.current == c {
			d.current = nil
		}
		d.mu.Unlock()
		_ = c.nc.Close()
		d.setStatus(monitor.StatusDisconnected)
	}
}
