// Package types defines the wire-level and in-memory data model shared by
// every layer of the transport core: identities, publisher records, and
// the status and control-op values carried in wire frames.
package types

import "github.com/google/uuid"

// ProcessID identifies one running instance of the core. It is generated
// uniformly at random at core construction and never changes afterwards.
type ProcessID string

// NodeID identifies a user-facing facade bound to a core. A single process
// may host many nodes, each with its own NodeID.
type NodeID string

// HandlerID identifies one registered handler (subscription, replier, or
// pending requester) within a node. It doubles as the wire-level
// correlation key for service requests.
type HandlerID string

// NewProcessID generates a fresh random process identity.
func NewProcessID() ProcessID {
	return ProcessID(uuid.New().String())
}

// NewNodeID generates a fresh random node identity.
func NewNodeID() NodeID {
	return NodeID(uuid.New().String())
}

// NewHandlerID generates a fresh random handler identity.
func NewHandlerID() HandlerID {
	return HandlerID(uuid.New().String())
}

// RequestID correlates a service request with its eventual response.
type RequestID string

// NewRequestID generates a fresh random request identity.
func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}
