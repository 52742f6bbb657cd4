package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kobeeeef/XTABLES/internal/monitor"
	"github.com/Kobeeeef/XTABLES/pkg/logging"
)

// Push is the outgoing-only, fire-and-forget endpoint used for PUT,
// PUBLISH, and telemetry replies.
type Push struct {
	d *dialer

	writeMu sync.Mutex
}

// NewPush builds a Push endpoint. Call Run in its own goroutine (e.g.
// registered with an errgroup) to start the reconnect supervisor; addr
// is re-read on every (re)connect, so it may change across calls (e.g.
// after endpoint re-resolution).
func NewPush(name string, addr func() string, mon *monitor.Monitor, logger logging.Logger) *Push {
	return &Push{d: newDialer(name, addr, mon, logger)}
}

// Run blocks, running the reconnect supervisor until ctx is cancelled or
// Close unblocks a parked probe read, whichever happens first.
func (p *Push) Run(ctx context.Context) error {
	p.d.run(ctx, func(connCtx context.Context, c *conn) {
		// Push has nothing to read; just block until the connection dies,
		// detected by a one-byte probe read that returns on EOF/error.
		buf := make([]byte, 1)
		for {
			if connCtx.Err() != nil {
				return
			}
			if _, err := c.nc.Read(buf); err != nil {
				return
			}
			// The push socket is not expected to receive application data;
			// any byte read is ignored.
		}
	})
	return nil
}

// Close closes the currently open connection, if any, waking a probe
// read blocked in Run so it can observe ctx cancellation and return.
func (p *Push) Close() error {
	return p.d.closeCurrent()
}

// Send writes one frame on the push socket. Returns an error if not
// currently connected; callers treat this as "enqueue failed" per §4.H.
func (p *Push) Send(payload []byte) error {
	c := p.d.get()
	if c == nil {
		return fmt.Errorf("transport: push endpoint not connected")
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return writeFrame(c, payload)
}
