package transport

import (
	"context"
	"sync"

	"github.com/Kobeeeef/XTABLES/internal/monitor"
	"github.com/Kobeeeef/XTABLES/internal/wire"
	"github.com/Kobeeeef/XTABLES/pkg/logging"
)

// Sub is the incoming-only endpoint carrying UPDATE_EVENT and solicited
// INFORMATION/REGISTRY frames. Prefix filtering (§4.D) happens here,
// client-side, before a frame is handed to onFrame.
type Sub struct {
	d      *dialer
	logger logging.Logger

	mu       sync.RWMutex
	prefixes map[string][]byte // subscription key -> encoded prefix

	onFrame func(raw []byte)
}

// NewSub builds a Sub endpoint. Call Run in its own goroutine (e.g.
// registered with an errgroup) to start the reconnect supervisor.
// onFrame is called for every frame whose encoded body matches a
// currently-registered prefix. Prefixes are keyed on the update's key
// only; solicitations arrive with an empty key and are admitted by the
// wildcard ("") prefix, which the Client installs before Run starts.
func NewSub(name string, addr func() string, mon *monitor.Monitor, logger logging.Logger, onFrame func(raw []byte)) *Sub {
	return &Sub{
		d:        newDialer(name, addr, mon, logger),
		logger:   logger,
		prefixes: make(map[string][]byte),
		onFrame:  onFrame,
	}
}

// Run blocks, running the reconnect supervisor until ctx is cancelled or
// Close unblocks a parked frame read, whichever happens first.
func (s *Sub) Run(ctx context.Context) error {
	s.d.run(ctx, func(connCtx context.Context, c *conn) {
		for {
			if connCtx.Err() != nil {
				return
			}
			frame, err := c.reader.ReadFrame()
			if err != nil {
				return
			}
			if s.matches(frame) {
				s.onFrame(frame)
			}
		}
	})
	return nil
}

// Close closes the currently open connection, if any, waking a frame
// read blocked in Run so it can observe ctx cancellation and return.
func (s *Sub) Close() error {
	return s.d.closeCurrent()
}

// Subscribe installs a prefix filter for key (use "" for the wildcard).
// Idempotent for the same key.
func (s *Sub) Subscribe(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes[key] = wire.EncodeUpdatePrefix(key)
}

// Unsubscribe removes a previously installed prefix filter.
func (s *Sub) Unsubscribe(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefixes, key)
}

func (s *Sub) matches(frame []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, prefix := range s.prefixes {
		if wire.HasPrefix(frame, prefix) {
			return true
		}
	}
	return false
}
