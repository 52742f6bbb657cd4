package xtables

import (
	"github.com/Kobeeeef/XTABLES/internal/subscription"
	"github.com/Kobeeeef/XTABLES/internal/wire"
)

// SubscriptionHandle identifies one registered callback, returned by
// Subscribe and required by Unsubscribe to remove exactly that callback
// and no other sharing the same key.
type SubscriptionHandle = subscription.Handle

// UpdateHandler receives a decoded UPDATE/PUBLISH record for a
// subscribed key.
type UpdateHandler func(key string, value []byte, valueType wire.Type)

// LogHandler receives a decoded LOG-category record.
type LogHandler func(key string, value []byte)

func wrapUpdate(h UpdateHandler) func(wire.UpdateRecord) {
	return func(u wire.UpdateRecord) { h(u.Key, u.Value, u.Type) }
}

// Subscribe registers cb for key ("" subscribes to every key, i.e. the
// wildcard) and, if this is the first subscriber for key, installs the
// matching prefix filter on the Sub transport. Subscribing the same cb
// value again for the same key returns the previously issued handle
// instead of registering a second, duplicate callback, per §3's "no
// duplicate callback for the same key" invariant. The always-installed
// wildcard prefix that admits telemetry solicitations is independent of
// this bookkeeping (see Unsubscribe/UnsubscribeAll).
func (c *Client) Subscribe(key string, cb UpdateHandler) (SubscriptionHandle, error) {
	if key != "" {
		if err := validateKey(key); err != nil {
			return 0, err
		}
	}
	identity := subscription.FuncIdentity(cb)
	handle := c.router.Subscribe(key, identity, wrapUpdate(cb))
	c.sub.Subscribe(key)
	return handle, nil
}

// SubscribeLog registers cb for LOG-category records.
func (c *Client) SubscribeLog(cb LogHandler) {
	c.router.SubscribeLog(func(u wire.UpdateRecord) { cb(u.Key, u.Value) })
}

// Unsubscribe removes exactly the callback identified by handle (as
// returned from Subscribe), leaving any other callback registered for
// the same key in place, per spec.md §4.F ("unsubscribing a specific
// callback removes only that callback"). It never removes the Sub
// transport's own wildcard prefix (installed once at construction to
// admit telemetry solicitations, which carry an empty key) — that
// prefix is independent of any caller's "" subscription and outlives it.
func (c *Client) Unsubscribe(key string, handle SubscriptionHandle) {
	c.router.Unsubscribe(key, handle)
	if key == "" {
		return
	}
	if !c.router.HasSubscriptions(key) {
		c.sub.Unsubscribe(key)
	}
}

// UnsubscribeAll removes every callback registered for key, regardless
// of how many were subscribed. Unlike Unsubscribe it needs no handle.
func (c *Client) UnsubscribeAll(key string) {
	c.router.UnsubscribeAll(key)
	if key == "" {
		return
	}
	c.sub.Unsubscribe(key)
}
