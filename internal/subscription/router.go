// Package subscription implements the Intake/Dispatch pipeline that
// turns frames arriving on the Sub transport into callback invocations,
// per §4.F. INFORMATION/REGISTRY frames bypass the coalescing buffer
// entirely and go straight to a telemetry handler; everything else is
// coalesced and dispatched per-key-then-wildcard.
package subscription

import (
	"reflect"
	"sync"

	"github.com/Kobeeeef/XTABLES/internal/buffer"
	"github.com/Kobeeeef/XTABLES/internal/wire"
	"github.com/Kobeeeef/XTABLES/pkg/logging"
)

// UpdateCallback is a per-key or wildcard subscriber.
type UpdateCallback func(update wire.UpdateRecord)

// LogCallback receives LOG-category updates.
type LogCallback func(update wire.UpdateRecord)

// TelemetryHandler is invoked for INFORMATION/REGISTRY frames, which
// never pass through the coalescing buffer.
type TelemetryHandler func(update wire.UpdateRecord)

// Handle identifies one registered callback, returned by Subscribe and
// required by Unsubscribe to remove exactly that callback and no other
// sharing the same key.
type Handle uint64

// registration pairs a callback with the handle that names it and the
// identity used to detect a duplicate subscribe, so Unsubscribe can
// remove one entry out of several registered for the same key.
type registration struct {
	id       uint64
	identity uintptr
	cb       UpdateCallback
}

// FuncIdentity returns a comparable value identifying a func by its
// underlying code pointer, for callers that want to dedupe repeated
// Subscribe calls. It must be computed from the caller's own handler
// value, not from a closure built around it: every closure built from
// the same wrapping literal shares one code pointer regardless of what
// it captures, so wrapping first and identifying second would make
// every subscription look identical.
func FuncIdentity(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Router owns the subscription table and the Intake/Dispatch goroutines.
type Router struct {
	logger logging.Logger
	ring   *buffer.Coalescing[wire.UpdateRecord]

	mu            sync.Mutex
	nextHandle    uint64
	byKey         map[string][]registration
	wildcard      []registration
	logConsumers  []LogCallback
	telemetryFunc TelemetryHandler
}

// New builds a Router with a coalescing ring of the given capacity. The
// equivalence predicate treats two updates as equivalent iff their keys
// are equal, matching §4.E's "newest value per key" contract.
func New(capacity int, logger logging.Logger) *Router {
	r := &Router{
		logger: logger,
		byKey:  make(map[string][]registration),
	}
	r.ring = buffer.New(capacity, func(latest, current wire.UpdateRecord) bool {
		return latest.Key == current.Key
	})
	return r
}

// SetTelemetryHandler installs the callback invoked for solicitation
// frames (INFORMATION/REGISTRY). Must be called before Intake starts
// receiving frames to avoid dropping an early solicitation.
func (r *Router) SetTelemetryHandler(h TelemetryHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telemetryFunc = h
}

// Intake is called once per frame arriving on the Sub transport (already
// prefix-filtered by the transport layer). INFORMATION/REGISTRY frames
// go straight to the telemetry handler; everything else is written into
// the coalescing ring.
func (r *Router) Intake(raw []byte) {
	update, err := wire.DecodeUpdate(raw)
	if err != nil {
		if r.logger != nil {
			r.logger.WithField("error", err).Debug("subscription: dropping malformed frame")
		}
		return
	}
	if update.Category == wire.CategoryInformation || update.Category == wire.CategoryRegistry {
		r.mu.Lock()
		handler := r.telemetryFunc
		r.mu.Unlock()
		if handler != nil {
			handler(update)
		}
		return
	}
	r.ring.Write(update)
}

// RunDispatch loops on ReadLatestCoalescing until Close is called,
// dispatching each update to per-key then wildcard callbacks (for
// UPDATE/PUBLISH) or to log consumers (for LOG). Intended to run in its
// own goroutine for the lifetime of the client.
func (r *Router) RunDispatch() {
	for {
		update, ok := r.ring.ReadLatestCoalescing()
		if !ok {
			return
		}
		r.dispatch(update)
	}
}

func (r *Router) dispatch(update wire.UpdateRecord) {
	if update.Category == wire.CategoryLog {
		r.mu.Lock()
		consumers := append([]LogCallback{}, r.logConsumers...)
		r.mu.Unlock()
		for _, cb := range consumers {
			r.safeInvoke(func() { cb(update) })
		}
		return
	}

	r.mu.Lock()
	perKey := append([]registration{}, r.byKey[update.Key]...)
	wildcard := append([]registration{}, r.wildcard...)
	r.mu.Unlock()

	for _, reg := range perKey {
		cb := reg.cb
		r.safeInvoke(func() { cb(update) })
	}
	for _, reg := range wildcard {
		cb := reg.cb
		r.safeInvoke(func() { cb(update) })
	}
}

// safeInvoke isolates a consumer panic so one bad callback can't take
// down the dispatch loop.
func (r *Router) safeInvoke(fn func()) {
	defer func() {
		if rec := recover(); rec != nil && r.logger != nil {
			r.logger.WithField("panic", rec).Error("subscription: callback panicked")
		}
	}()
	fn()
}

// Subscribe registers cb for key (empty string subscribes to the
// wildcard) and returns a Handle identifying the registration. identity
// should be FuncIdentity computed from the caller's original handler
// (before any wrapping); calling Subscribe again with the same key and
// the same identity returns the existing Handle instead of adding a
// second entry, per §3's "no duplicate callback for the same key"
// invariant.
func (r *Router) Subscribe(key string, identity uintptr, cb UpdateCallback) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.wildcard
	if key != "" {
		existing = r.byKey[key]
	}
	for _, reg := range existing {
		if reg.identity == identity {
			return Handle(reg.id)
		}
	}

	r.nextHandle++
	reg := registration{id: r.nextHandle, identity: identity, cb: cb}
	if key == "" {
		r.wildcard = append(r.wildcard, reg)
	} else {
		r.byKey[key] = append(r.byKey[key], reg)
	}
	return Handle(reg.id)
}

// SubscribeLog registers a LOG-category consumer.
func (r *Router) SubscribeLog(cb LogCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logConsumers = append(r.logConsumers, cb)
}

// HasSubscriptions reports whether any callback is registered for key
// ("" for the wildcard), used by the caller to decide whether a prefix
// filter still needs to stay installed on the Sub transport.
func (r *Router) HasSubscriptions(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key == "" {
		return len(r.wildcard) > 0
	}
	return len(r.byKey[key]) > 0
}

// Unsubscribe removes exactly the callback identified by h from key,
// leaving any other callback registered for the same key untouched, per
// spec.md §4.F ("unsubscribing a specific callback removes only that
// callback").
func (r *Router) Unsubscribe(key string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key == "" {
		r.wildcard = removeHandle(r.wildcard, h)
		return
	}
	remaining := removeHandle(r.byKey[key], h)
	if len(remaining) == 0 {
		delete(r.byKey, key)
		return
	}
	r.byKey[key] = remaining
}

// UnsubscribeAll removes every callback registered for key.
func (r *Router) UnsubscribeAll(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key == "" {
		r.wildcard = nil
		return
	}
	delete(r.byKey, key)
}

func removeHandle(regs []registration, h Handle) []registration {
	if len(regs) == 0 {
		return regs
	}
	out := make([]registration, 0, len(regs))
	for _, reg := range regs {
		if reg.id != uint64(h) {
			out = append(out, reg)
		}
	}
	return out
}

// BufferStats reports current occupancy and capacity, for telemetry.
func (r *Router) BufferStats() (occupancy, capacity int) {
	return r.ring.Size(), r.ring.Capacity()
}

// Close unblocks RunDispatch; idempotent.
func (r *Router) Close() {
	r.ring.Close()
}
