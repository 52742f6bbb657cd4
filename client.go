// Package xtables is a client library for the XTABLES network-table
// protocol: a hub-and-spoke pub/sub/request service used to share
// typed key/value state between cooperating processes. A Client opens
// three logical TCP connections to the server (push, req, sub) and
// exposes typed Put/Get/Publish/Subscribe/Ping operations on top of
// them.
package xtables

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Kobeeeef/XTABLES/internal/discovery"
	"github.com/Kobeeeef/XTABLES/internal/monitor"
	"github.com/Kobeeeef/XTABLES/internal/subscription"
	"github.com/Kobeeeef/XTABLES/internal/telemetry"
	"github.com/Kobeeeef/XTABLES/internal/transport"
	"github.com/Kobeeeef/XTABLES/internal/wire"
	xconfig "github.com/Kobeeeef/XTABLES/pkg/config"
	"github.com/Kobeeeef/XTABLES/pkg/logging"
	"github.com/Kobeeeef/XTABLES/pkg/monitoring"
)

// baseVersion is the library's own version; WithVersionSuffix appends to
// it for the string reported in telemetry.
const baseVersion = "1.0.0"

// Client is the user-visible surface of the library. A Client owns its
// own goroutines and must be closed with Shutdown.
type Client struct {
	id      uuid.UUID
	version string
	cfg     config
	logger  logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	monitor *monitor.Monitor
	metrics *monitoring.ClientMetrics

	push         *transport.Push
	req          *transport.Req
	sub          *transport.Sub
	registryPush *transport.Push

	router    *subscription.Router
	telemetry *telemetry.Responder
	resolver  *discovery.Resolver

	nextCorrelationID int64

	shutdownOnce sync.Once
}

// New resolves a server endpoint, opens the three logical sockets, and
// starts the client's background goroutines.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := config{
		explicitAddress: xconfig.ServerAddress(),
		pushPort:        xconfig.PushPort(),
		reqPort:         xconfig.ReqPort(),
		subPort:         xconfig.SubPort(),
		bufferCapacity:  xconfig.BufferCapacity(),
		ghostMode:       xconfig.GhostMode(),
		debug:           xconfig.Debug(),
		versionSuffix:   xconfig.VersionSuffix(),
		retryUntilFound: xconfig.GetEnvBool(xconfig.EnvRetryUntilFound, false),
		mdnsTimeout:     3 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewLogger()
	}
	if cfg.debug {
		cfg.logger.SetLevel(logging.DebugLevel)
	}

	id := uuid.New()
	version := baseVersion
	if cfg.versionSuffix != "" {
		version = baseVersion + "-" + cfg.versionSuffix
	}

	resolver := discovery.NewResolver(
		discovery.WithExplicitAddress(cfg.explicitAddress),
		discovery.WithMDNSTimeout(cfg.mdnsTimeout),
		discovery.WithLogger(cfg.logger),
	)

	var endpoint discovery.Endpoint
	var err error
	if cfg.retryUntilFound {
		endpoint, err = resolver.ResolveUntilFound(ctx, transport.ReconnectInterval)
	} else {
		endpoint, err = resolver.Resolve(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	host := endpoint.Host

	clientCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(clientCtx)

	metrics := monitoring.NewClientMetrics(id.String())
	mon := monitor.New(metrics)

	router := subscription.New(cfg.bufferCapacity, cfg.logger)

	c := &Client{
		id:       id,
		version:  version,
		cfg:      cfg,
		logger:   cfg.logger,
		ctx:      clientCtx,
		cancel:   cancel,
		group:    group,
		monitor:  mon,
		metrics:  metrics,
		router:   router,
		resolver: resolver,
	}

	c.push = transport.NewPush("push", addrFunc(host, cfg.pushPort), mon, cfg.logger)
	c.req = transport.NewReq("req", addrFunc(host, cfg.reqPort), mon, cfg.logger)
	c.sub = transport.NewSub("sub", addrFunc(host, cfg.subPort), mon, cfg.logger, router.Intake)
	c.sub.Subscribe("") // always admit solicitations, which are sent with an empty key

	if cfg.dedicatedRegistryPush != "" {
		c.registryPush = transport.NewPush("registry-push", addrConst(cfg.dedicatedRegistryPush), mon, cfg.logger)
	}

	c.telemetry = telemetry.NewResponder(id, version, router.BufferStats, cfg.ghostMode)
	router.SetTelemetryHandler(c.onSolicitation)

	// Every supervisor goroutine is registered with the errgroup so
	// Shutdown's group.Wait() actually joins them; Close on each
	// transport (called from Shutdown) unblocks their in-flight reads so
	// cancelling groupCtx is enough to make them return promptly.
	group.Go(func() error { return c.push.Run(groupCtx) })
	group.Go(func() error { return c.sub.Run(groupCtx) })
	if c.registryPush != nil {
		group.Go(func() error { return c.registryPush.Run(groupCtx) })
	}
	group.Go(func() error {
		router.RunDispatch()
		return nil
	})

	return c, nil
}

func addrFunc(host string, port int) func() string {
	return func() string { return fmt.Sprintf("%s:%d", host, port) }
}

func addrConst(addr string) func() string {
	return func() string { return addr }
}

// ID returns this client instance's identity, echoed in telemetry.
func (c *Client) ID() uuid.UUID { return c.id }

// Version returns the client library version string (base + suffix).
func (c *Client) Version() string { return c.version }

func (c *Client) nextID() int64 {
	return atomic.AddInt64(&c.nextCorrelationID, 1)
}

// onSolicitation answers an INFORMATION/REGISTRY frame by encoding a
// ClientStatistics snapshot and sending it back on the Push transport
// (or the dedicated registry-push socket, if configured). The reply's
// command mirrors the solicitation's category and it echoes the
// solicitation's key; update records carry no id, so the reply has none.
// Ghost mode suppresses the reply entirely.
func (c *Client) onSolicitation(update wire.UpdateRecord) {
	snap, ok := c.telemetry.Snapshot()
	if !ok {
		return
	}
	value, err := encodeClientStatistics(snap)
	if err != nil {
		c.logger.WithField("error", err).Debug("xtables: failed to encode telemetry snapshot")
		return
	}
	cmd := wire.CommandInformation
	if update.Category == wire.CategoryRegistry {
		cmd = wire.CommandRegistry
	}
	msg := wire.Message{
		Command: cmd,
		HasKey:  update.Key != "",
		Key:     update.Key, // Update records carry no id field; the solicitation's key doubles as the correlation token the reply echoes
		HasVal:  true,
		Value:   value,
		Type:    wire.TypeString,
	}
	payload := wire.EncodeMessage(msg)

	out := c.push
	if c.registryPush != nil {
		out = c.registryPush
	}
	if err := out.Send(payload); err != nil {
		c.logger.WithField("error", err).Debug("xtables: failed to send telemetry reply")
	}
}

// Shutdown stops every background goroutine, closes all transports, and
// releases the coalescing buffer. Idempotent.
//
// Cancelling the client context alone does not wake a supervisor parked
// in a blocking read, so every transport's connection is also closed
// here before waiting on the errgroup — otherwise Push/Sub's read loops
// would only notice shutdown on their next reconnect attempt, or never,
// per §5/§8.
func (c *Client) Shutdown() error {
	var err error
	c.shutdownOnce.Do(func() {
		c.cancel()
		_ = c.push.Close()
		_ = c.sub.Close()
		_ = c.req.Close()
		if c.registryPush != nil {
			_ = c.registryPush.Close()
		}
		c.router.Close()
		err = c.group.Wait()
	})
	return err
}
