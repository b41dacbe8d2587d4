// Package transport is the user-facing facade spec.md treats as an
// external collaborator (§1: "the 'Node' that users construct ... thin
// handles that delegate to the core"). It lazily constructs the
// process-wide Core singleton on first use and hands every Node a thin,
// node-scoped view over it.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/meshwire/transport/internal/core/identity"
	"github.com/meshwire/transport/internal/core/shared"
	"github.com/meshwire/transport/pkg/interfaces"
	"github.com/meshwire/transport/pkg/types"
)

var (
	processOnce   sync.Once
	coreOnce      sync.Once
	selfProcessID types.ProcessID
	coreInstance  *shared.Core
	coreErr       error
)

// ProcessID returns the process identity this package's Core singleton
// uses (or will use, once constructed), generating it on first call.
// A caller building its own Discoverer ahead of Core must use this
// identity so both sides of the discovery boundary agree on who "self"
// is (spec.md §3: every socket role shares the process UUID).
func ProcessID() types.ProcessID {
	processOnce.Do(func() { selfProcessID = identity.New() })
	return selfProcessID
}

// Core returns the process-wide Node Transport Core, constructing it on
// first call (spec §3: "Core: singleton per process. Created lazily on
// first user"). Every subsequent call, regardless of the discoverer or
// options passed, returns the same instance — only the first caller's
// arguments take effect.
func Core(ctx context.Context, discoverer interfaces.Discoverer, opts ...shared.Option) (*shared.Core, error) {
	coreOnce.Do(func() {
		coreInstance, coreErr = shared.NewWithProcessID(ctx, ProcessID(), discoverer, opts...)
	})
	return coreInstance, coreErr
}

// Node is a thin, node-scoped handle onto the shared Core (spec §1,
// §3's "Publisher/subscriber handles"). Users construct one Node per
// logical publisher/subscriber/service identity; many Nodes typically
// share one process-wide Core.
type Node struct {
	core *shared.Core
	id   types.NodeID

	closeOnce sync.Once
}

// NewNode constructs a Node bound to the process-wide Core, creating
// the Core on first call (see Core).
func NewNode(ctx context.Context, discoverer interfaces.Discoverer, opts ...shared.Option) (*Node, error) {
	c, err := Core(ctx, discoverer, opts...)
	if err != nil {
		return nil, err
	}
	return &Node{core: c, id: types.NewNodeID()}, nil
}

// ID returns this node's stable identity.
func (n *Node) ID() types.NodeID { return n.id }

// Advertise announces this node as a publisher of topic.
func (n *Node) Advertise(topic, msgType string) bool {
	return n.core.Advertise(topic, n.id, msgType)
}

// Unadvertise withdraws this node's publisher advertisement for topic.
func (n *Node) Unadvertise(topic string) bool {
	return n.core.Unadvertise(topic, n.id)
}

// Publish sends payload, tagged msgType, to every subscriber of topic.
func (n *Node) Publish(topic string, payload []byte, msgType string) bool {
	return n.core.Publish(topic, payload, msgType)
}

// Subscribe registers a typed handler for topic.
func (n *Node) Subscribe(topic, expectedType string, callback func(payload []byte, msgType string) error) types.HandlerID {
	return n.core.Subscribe(topic, n.id, expectedType, callback)
}

// SubscribeRaw registers a wildcard handler for topic.
func (n *Node) SubscribeRaw(topic string, callback func(payload []byte, msgType string) error) types.HandlerID {
	return n.core.SubscribeRaw(topic, n.id, callback)
}

// Unsubscribe removes a previously registered handler.
func (n *Node) Unsubscribe(topic string, handler types.HandlerID) bool {
	return n.core.Unsubscribe(topic, n.id, handler)
}

// AdvertiseService registers a replier for topic.
func (n *Node) AdvertiseService(topic, reqType, repType string, handle func(reqPayload []byte) ([]byte, error)) bool {
	return n.core.AdvertiseService(topic, n.id, reqType, repType, handle)
}

// UnadvertiseService withdraws this node's replier advertisement.
func (n *Node) UnadvertiseService(topic string) bool {
	return n.core.UnadvertiseService(topic, n.id)
}

// Request issues a synchronous service call. A zero timeout uses the
// core's configured default.
func (n *Node) Request(topic, reqType, repType string, reqPayload []byte, timeout time.Duration) ([]byte, error) {
	return n.core.Request(topic, n.id, reqType, repType, reqPayload, timeout)
}

// TopicPublishers returns every known publisher of topic.
func (n *Node) TopicPublishers(topic string) []types.MessagePublisher {
	return n.core.TopicPublishers(topic)
}

// DiscoverService asks discovery to start looking for repliers of topic.
func (n *Node) DiscoverService(topic string) bool {
	return n.core.DiscoverService(topic)
}

// Close unregisters every handler this node owns from the shared Core.
// It does not stop the Core itself — other Nodes in this process may
// still be using it (spec §3, facade destruction only removes this
// node's own handles).
func (n *Node) Close() error {
	n.closeOnce.Do(func() { n.core.RemoveNode(n.id) })
	return nil
}
