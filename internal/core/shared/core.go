// Package shared implements the Node Transport Core (spec.md's
// NodeShared): the per-process singleton owning every network endpoint,
// registry, and the reception loop that multiplexes them (C6–C9),
// backed by internal/core/topicstore (C2), internal/core/handlerstore
// (C3), internal/core/socket (C5), and internal/core/identity (C1).
package shared

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/meshwire/transport/internal/core/handlerstore"
	"github.com/meshwire/transport/internal/core/identity"
	"github.com/meshwire/transport/internal/core/socket"
	"github.com/meshwire/transport/internal/core/topicstore"
	"github.com/meshwire/transport/internal/metrics"
	"github.com/meshwire/transport/internal/util/logger"
	"github.com/meshwire/transport/pkg/interfaces"
	"github.com/meshwire/transport/pkg/types"
	"go.uber.org/multierr"
)

// Lifecycle is the core's state machine (spec §4.10):
// Uninitialized → Running → ShuttingDown → Stopped.
type Lifecycle int32

const (
	Uninitialized Lifecycle = iota
	Running
	ShuttingDown
	Stopped
)

func (l Lifecycle) String() string {
	switch l {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Core is the Node Transport Core: one instance per process, created
// lazily by whatever user-facing facade needs it first (spec §3,
// "Core: singleton per process"). Every exported method is safe for
// concurrent use by any number of caller goroutines; the reception loop
// is the only goroutine permitted to read from sockets (spec §5).
type Core struct {
	cfg       Config
	processID types.ProcessID
	partition string

	sockets    SocketLayer
	discoverer interfaces.Discoverer
	metrics    *metrics.Metrics
	log        *slog.Logger

	// mu guards every registry below. Handler callbacks are invoked
	// after mu is released on a snapshot (spec §5, §9 — the Go
	// substitute for the source's recursive mutex).
	mu sync.Mutex

	localHandlers  *handlerstore.Store[*subscriptionHandler]
	repliers       *handlerstore.Store[*replierHandler]
	pendingByNode  *handlerstore.Store[*pendingRequest]
	pendingByReqID map[types.RequestID]*pendingRequest

	remotePublishers  *topicstore.Store[types.MessagePublisher]
	remoteServices    *topicstore.Store[types.ServicePublisher]
	remoteSubscribers *topicstore.Store[types.RemoteSubscriber]

	shutdownMu sync.Mutex
	shutdown   bool

	state  atomic.Int32
	done   chan struct{}
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs and starts a Core: it binds every socket (spec §4.1),
// registers discovery callbacks, and spawns the reception loop. Socket
// bind failure is the only fatal error (spec §7, transport-init); on
// failure the returned Core is nil and the caller must not use it.
func New(ctx context.Context, discoverer interfaces.Discoverer, opts ...Option) (*Core, error) {
	return NewWithProcessID(ctx, identity.New(), discoverer, opts...)
}

// NewWithProcessID is New with the process identity supplied by the
// caller rather than generated internally — needed when a caller (the
// root facade) must hand the same identity to both the core and an
// external discovery collaborator before either exists.
func NewWithProcessID(ctx context.Context, processID types.ProcessID, discoverer interfaces.Discoverer, opts ...Option) (*Core, error) {
	cfg := NewConfig(opts...)

	host := cfg.HostOverride
	if host == "" {
		resolved, err := identity.HostAddress()
		if err != nil {
			return nil, fmt.Errorf("%w: resolve host address: %v", ErrTransportInit, err)
		}
		host = resolved
	}

	sockets, err := socket.New(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportInit, err)
	}

	c := newCore(ctx, cfg, processID, sockets, discoverer)
	c.log.Info("core started", "process", c.processID, "host", host)
	return c, nil
}

// newCore wires a Core around an already-constructed socket layer,
// shared by New (real ZeroMQ sockets) and the package's own tests (an
// in-memory SocketLayer fake).
func newCore(ctx context.Context, cfg Config, processID types.ProcessID, sockets SocketLayer, discoverer interfaces.Discoverer) *Core {
	loopCtx, cancel := context.WithCancel(ctx)

	c := &Core{
		cfg:               cfg,
		processID:         processID,
		partition:         cfg.Partition,
		sockets:           sockets,
		discoverer:        discoverer,
		metrics:           metrics.New(),
		log:               logger.Logger("shared"),
		localHandlers:     handlerstore.New[*subscriptionHandler](),
		repliers:          handlerstore.New[*replierHandler](),
		pendingByNode:     handlerstore.New[*pendingRequest](),
		pendingByReqID:    make(map[types.RequestID]*pendingRequest),
		remotePublishers:  topicstore.New[types.MessagePublisher](),
		remoteServices:    topicstore.New[types.ServicePublisher](),
		remoteSubscribers: topicstore.New[types.RemoteSubscriber](),
		done:              make(chan struct{}),
		cancel:            cancel,
	}
	c.state.Store(int32(Running))

	discoverer.SetConnectionCallbacks(interfaces.ConnectionCallbacks{
		OnNewConnection:       c.OnNewConnection,
		OnNewDisconnection:    c.OnNewDisconnection,
		OnNewSrvConnection:    c.OnNewSrvConnection,
		OnNewSrvDisconnection: c.OnNewSrvDisconnection,
	})

	c.wg.Add(1)
	go c.receptionLoop(loopCtx)

	return c
}

// ProcessID returns this core's stable process identity.
func (c *Core) ProcessID() types.ProcessID { return c.processID }

// Scope prefixes topic with the active partition (spec §6, IGN_PARTITION).
func (c *Core) Scope(topic string) string {
	return identity.Scope(c.partition, topic)
}

// State reports the core's current lifecycle state.
func (c *Core) State() Lifecycle {
	return Lifecycle(c.state.Load())
}

// isShuttingDown is read by every public operation to fail fast once
// Close has been called (spec §7, shutdown error kind). It is guarded
// by its own mutex, separate from mu, so a concurrent Close never
// contends with it (spec §5).
func (c *Core) isShuttingDown() bool {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()
	return c.shutdown
}

// Close transitions the core through ShuttingDown to Stopped: it sets
// the shutdown flag, cancels every pending request with ErrShutdown,
// joins the reception loop, and releases every socket (spec §4.10,
// §8 property 7).
func (c *Core) Close() error {
	c.shutdownMu.Lock()
	if c.shutdown {
		c.shutdownMu.Unlock()
		return nil
	}
	c.shutdown = true
	c.shutdownMu.Unlock()

	c.state.Store(int32(ShuttingDown))

	var errs error

	c.mu.Lock()
	pending := make([]*pendingRequest, 0, len(c.pendingByReqID))
	for _, pr := range c.pendingByReqID {
		pending = append(pending, pr)
	}
	c.pendingByReqID = make(map[types.RequestID]*pendingRequest)
	c.mu.Unlock()
	for _, pr := range pending {
		pr.Fail(ErrShutdown)
		c.metrics.Pending.Dec()
	}

	c.cancel()
	close(c.done)

	// Close the sockets before joining the reception loop: its reader
	// goroutines are blocked in Recv and only return once the
	// underlying sockets are closed out from under them.
	if err := c.sockets.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	c.wg.Wait()

	if err := c.discoverer.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}

	c.state.Store(int32(Stopped))
	c.log.Info("core stopped", "process", c.processID)
	return errs
}
