package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kobeeeef/XTABLES/internal/monitor"
	"github.com/Kobeeeef/XTABLES/pkg/logging"
)

// ReceiveTimeout is the fixed 3s bound §4.D places on a Req reply.
const ReceiveTimeout = 3 * time.Second

// ErrTransportReset is returned to every caller whose request was in
// flight when the Req endpoint was torn down and rebuilt (timeout or
// socket error), per §4.D/§7.
var ErrTransportReset = errors.New("transport: req connection was reset")

// Req is the strictly-alternating request/reply endpoint used for GET,
// PING, DELETE, DEBUG, GET_TABLES. Only one call may be in flight at a
// time; Call itself serializes via an internal mutex, matching §5's
// requirement that the Facade treat Req send+receive as one atomic unit.
type Req struct {
	d *dialer

	mu      sync.Mutex
	current *conn
}

// NewReq builds a Req endpoint. Unlike Push/Sub it has no background
// reconnect supervisor: connection is established lazily on the first
// Call and rebuilt on demand after any failure.
func NewReq(name string, addr func() string, mon *monitor.Monitor, logger logging.Logger) *Req {
	return &Req{d: newDialer(name, addr, mon, logger)}
}

// Call sends payload and waits for exactly one reply frame, bounded by
// ReceiveTimeout (or ctx's deadline, whichever is sooner). On any
// failure the underlying connection is discarded so the next Call
// reconnects from a clean state; the failing call itself returns the
// error rather than retrying internally (retries, if wanted, are the
// caller's responsibility — §4.D's reconnection rule applies to the
// connection, not to replaying a lost request).
func (r *Req) Call(ctx context.Context, payload []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	if err := writeFrame(c, payload); err != nil {
		r.reset(c)
		return nil, ErrTransportReset
	}

	deadline := time.Now().Add(ReceiveTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.nc.SetReadDeadline(deadline); err != nil {
		r.reset(c)
		return nil, ErrTransportReset
	}

	frame, err := c.reader.ReadFrame()
	if err != nil {
		r.reset(c)
		return nil, ErrTransportReset
	}
	return frame, nil
}

func (r *Req) ensureConnected(ctx context.Context) (*conn, error) {
	if r.current != nil {
		return r.current, nil
	}
	r.d.setStatus(monitor.StatusConnectDelayed)
	c, err := r.d.connectOnce(ctx)
	if err != nil {
		r.d.setStatus(monitor.StatusDisconnected)
		return nil, err
	}
	r.current = c
	r.d.setStatus(monitor.StatusConnected)
	return c, nil
}

// reset tears down the current connection if it is still c (a stale
// reset from an already-superseded connection is a no-op), moving the
// endpoint back to its pre-connect ("IDLE'") state for the next Call.
func (r *Req) reset(c *conn) {
	if r.current != c {
		return
	}
	_ = c.nc.Close()
	r.current = nil
	r.d.setStatus(monitor.StatusDisconnected)
}

// Connected reports whether the endpoint currently holds a live
// connection, for diagnostics.
func (r *Req) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Close closes the currently open connection, if any. It takes the same
// mutex that Call holds for its whole send and receive, so a Call blocked
// on a read is not cut short: Close waits until that Call returns (at the
// latest when its read deadline expires) and then closes the connection.
func (r *Req) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	err := r.current.nc.Close()
	r.current = nil
	r.d.setStatus(monitor.StatusMonitorStopped)
	return err
}
