package xtables

import (
	"time"

	"github.com/Kobeeeef/XTABLES/pkg/logging"
)

// config holds the resolved construction-time configuration, built from
// pkg/config defaults and overridden by Options.
type config struct {
	explicitAddress       string
	pushPort, reqPort     int
	subPort               int
	bufferCapacity        int
	ghostMode             bool
	debug                 bool
	versionSuffix         string
	retryUntilFound       bool
	dedicatedRegistryPush string
	logger                logging.Logger
	mdnsTimeout           time.Duration
}

// Option configures a Client at construction.
type Option func(*config)

// WithExplicitAddress skips the Endpoint Resolver chain entirely and
// always connects to addr (a bare host, no port).
func WithExplicitAddress(addr string) Option {
	return func(c *config) { c.explicitAddress = addr }
}

// WithPorts overrides the push/req/sub ports (defaults: 48800/48801/48802).
func WithPorts(push, req, sub int) Option {
	return func(c *config) { c.pushPort, c.reqPort, c.subPort = push, req, sub }
}

// WithBufferCapacity overrides the coalescing ring's capacity.
func WithBufferCapacity(n int) Option {
	return func(c *config) { c.bufferCapacity = n }
}

// WithGhostMode disables the Telemetry Responder: solicitations are
// still received but never answered.
func WithGhostMode(on bool) Option {
	return func(c *config) { c.ghostMode = on }
}

// WithDebug enables verbose logging of decode errors and internal
// exceptions that are otherwise only logged at a lower severity.
func WithDebug(on bool) Option {
	return func(c *config) { c.debug = on }
}

// WithVersionSuffix appends suffix to the client version string reported
// in telemetry.
func WithVersionSuffix(suffix string) Option {
	return func(c *config) { c.versionSuffix = suffix }
}

// WithRetryUntilFound makes construction block, retrying the resolver
// chain at a flat one-second interval, until an address is found or the
// constructor's context is cancelled.
func WithRetryUntilFound(on bool) Option {
	return func(c *config) { c.retryUntilFound = on }
}

// WithDedicatedRegistryPush gives the Telemetry Responder its own Push
// endpoint at addr, so a saturated primary Push socket cannot delay
// solicitation replies (§4.D).
func WithDedicatedRegistryPush(addr string) Option {
	return func(c *config) { c.dedicatedRegistryPush = addr }
}

// WithLogger overrides the default logrus logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMDNSTimeout overrides the per-attempt mDNS browse window used by
// the Endpoint Resolver's fallback strategy.
func WithMDNSTimeout(d time.Duration) Option {
	return func(c *config) { c.mdnsTimeout = d }
}
