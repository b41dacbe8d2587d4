// Package interfaces defines the small capability interfaces that let the
// core treat typed subscribers, raw subscribers, repliers, and pending
// requesters uniformly wherever spec §4.3/§9 call for a polymorphic
// handler.
package interfaces

import "github.com/meshwire/transport/pkg/types"

// Handler is the capability every entry in handler storage provides: a
// way to deliver an incoming payload, and the metadata needed to decide
// whether a given delivery applies to it.
type Handler interface {
	// ID returns this handler's stable identity within its node.
	ID() types.HandlerID

	// ExpectedType returns the message type this handler was declared
	// against, or types.AnyType for a wildcard (raw) handler.
	ExpectedType() string

	// Accepts reports whether this handler should receive a delivery of
	// the given message type (spec §4.3: exact match or wildcard).
	Accepts(msgType string) bool

	// Deliver hands the handler its payload. The handler decides how to
	// interpret the bytes (deserialize, or pass through raw).
	Deliver(payload []byte, msgType string) error
}

// Discoverer is the narrow surface the core consumes from the external
// discovery collaborator (spec §4.4, §6). The core never depends on how
// discovery finds peers, only on these eight operations.
type Discoverer interface {
	// Advertise announces a pub/sub publisher to the fabric.
	Advertise(pub types.MessagePublisher) bool
	// Unadvertise withdraws a previously advertised publisher.
	Unadvertise(topic string, proc types.ProcessID, node types.NodeID) bool
	// Discover asks the fabric to start looking for publishers of topic.
	Discover(topic string) bool

	// AdvertiseService announces a service replier to the fabric.
	AdvertiseService(pub types.ServicePublisher) bool
	// UnadvertiseService withdraws a previously advertised service.
	UnadvertiseService(topic string, proc types.ProcessID, node types.NodeID) bool
	// DiscoverService asks the fabric to start looking for repliers of topic.
	DiscoverService(topic string) bool

	// SetConnectionCallbacks registers the four callbacks discovery fires
	// into as it learns about publishers and repliers. Implementations
	// must treat them as read-mostly and safe to call concurrently.
	SetConnectionCallbacks(c ConnectionCallbacks)

	// Close releases any resources held by the discovery collaborator.
	Close() error
}

// ConnectionCallbacks are the four events an external discovery
// collaborator fires into the core (spec §4.4).
type ConnectionCallbacks struct {
	OnNewConnection      func(types.MessagePublisher)
	OnNewDisconnection   func(types.MessagePublisher)
	OnNewSrvConnection   func(types.ServicePublisher)
	OnNewSrvDisconnection func(types.ServicePublisher)
}
