// Package discovery implements the endpoint resolver chain: an explicit
// address takes priority, then the cached address from a previous run,
// then a plain DNS A-record lookup of the well-known hostname, then an
// mDNS service browse — each step only attempted if the previous one
// came up empty.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Kobeeeef/XTABLES/pkg/clients"
	"github.com/Kobeeeef/XTABLES/pkg/config"
	"github.com/Kobeeeef/XTABLES/pkg/logging"
)

// Endpoint is a resolved server address along with which step of the
// chain produced it, useful for logging and tests.
type Endpoint struct {
	Host   string
	Source string
}

// Resolver runs the chain described in §4.A. It is safe for concurrent
// use; Resolve reruns the whole chain on every call (cheap, since the
// cache and explicit-address steps are fast, and DNS/mDNS are only
// reached when those fail).
type Resolver struct {
	explicit     string
	serviceType  string
	instanceName string
	hostname     string
	cache        *CacheFile
	mdnsTimeout  time.Duration
	logger       logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExplicitAddress short-circuits the chain to always return host.
func WithExplicitAddress(host string) Option {
	return func(r *Resolver) { r.explicit = host }
}

// WithMDNSTimeout overrides the default mDNS browse window.
func WithMDNSTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.mdnsTimeout = d }
}

// WithLogger attaches a logger for chain-step diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver builds a Resolver using the well-known XTABLES hostname
// and mDNS service name from pkg/config.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		serviceType:  config.MDNSServiceType,
		instanceName: config.MDNSInstanceName,
		hostname:     config.XTablesHostname,
		cache:        NewCacheFile(),
		mdnsTimeout:  3 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the explicit -> cache -> DNS -> mDNS chain once.
func (r *Resolver) Resolve(ctx context.Context) (Endpoint, error) {
	if r.explicit != "" {
		return Endpoint{Host: r.explicit, Source: "explicit"}, nil
	}

	if host, ok := r.cache.Get(); ok {
		return Endpoint{Host: host, Source: "cache"}, nil
	}

	if ips, err := net.DefaultResolver.LookupHost(ctx, r.hostname); err == nil && len(ips) > 0 {
		r.cache.Set(ips[0])
		return Endpoint{Host: ips[0], Source: "dns"}, nil
	}

	mdnsCtx, cancel := context.WithTimeout(ctx, r.mdnsTimeout)
	defer cancel()
	host, _, err := BrowseMDNS(mdnsCtx, r.serviceType, r.instanceName)
	if err != nil {
		return Endpoint{}, fmt.Errorf("discovery: all resolution strategies failed: %w", err)
	}
	r.cache.Set(host)
	return Endpoint{Host: host, Source: "mdns"}, nil
}

// ResolveUntilFound retries Resolve at a flat interval until it succeeds
// or ctx is cancelled, per §4.A's "retry until found" option.
func (r *Resolver) ResolveUntilFound(ctx context.Context, interval time.Duration) (Endpoint, error) {
	return clients.Retry(ctx, clients.FlatRetryConfig{Interval: interval}, func() (Endpoint, error) {
		ep, err := r.Resolve(ctx)
		if err != nil && r.logger != nil {
			r.logger.WithField("error", err).Debug("endpoint resolution attempt failed")
		}
		return ep, err
	})
}

// InvalidateCache drops the cached address, forcing the next Resolve to
// fall through to DNS/mDNS. Nothing in the client calls it: a cached
// address that turns out to be unreachable stays cached until this is
// called.
func (r *Resolver) InvalidateCache() {
	r.cache.Invalidate()
}
