// Package handlerstore implements the three-level handler registry
// (spec §3, "Handler Storage" / §4.3): topic → node UUID → handler UUID →
// handler. It backs typed subscriptions, raw subscriptions, service
// repliers, and pending service requesters alike — anything satisfying
// interfaces.Handler.
package handlerstore

import (
	"sync"

	"github.com/meshwire/transport/pkg/interfaces"
	"github.com/meshwire/transport/pkg/types"
)

// byHandler is the innermost map: handler UUID → handler.
type byHandler[H interfaces.Handler] map[types.HandlerID]H

// Store is a generic topic → node → handler registry. The zero value is
// not usable; use New.
type Store[H interfaces.Handler] struct {
	mu sync.RWMutex
	// topic -> node -> handler id -> handler
	byTopic map[string]map[types.NodeID]byHandler[H]
	// node -> set of topics it has handlers on, for RemoveHandlersForNode
	nodeTopics map[types.NodeID]map[string]struct{}
}

// New creates an empty store.
func New[H interfaces.Handler]() *Store[H] {
	return &Store[H]{
		byTopic:    make(map[string]map[types.NodeID]byHandler[H]),
		nodeTopics: make(map[types.NodeID]map[string]struct{}),
	}
}

// AddHandler registers handler under (topic, node). A handler is
// reachable from storage iff it is live (spec §3's liveness invariant):
// destruction must go through RemoveHandler or RemoveHandlersForNode.
func (s *Store[H]) AddHandler(topic string, node types.NodeID, handler H) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byNode, ok := s.byTopic[topic]
	if !ok {
		byNode = make(map[types.NodeID]byHandler[H])
		s.byTopic[topic] = byNode
	}
	handlers, ok := byNode[node]
	if !ok {
		handlers = make(byHandler[H])
		byNode[node] = handlers
	}
	handlers[handler.ID()] = handler

	topics, ok := s.nodeTopics[node]
	if !ok {
		topics = make(map[string]struct{})
		s.nodeTopics[node] = topics
	}
	topics[topic] = struct{}{}
}

// Handlers returns every handler registered for topic, grouped by node.
// The returned map is a snapshot safe to range over without holding the
// store's lock.
func (s *Store[H]) Handlers(topic string) map[types.NodeID][]H {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byNode, ok := s.byTopic[topic]
	if !ok {
		return nil
	}
	out := make(map[types.NodeID][]H, len(byNode))
	for node, handlers := range byNode {
		list := make([]H, 0, len(handlers))
		for _, h := range handlers {
			list = append(list, h)
		}
		out[node] = list
	}
	return out
}

// HasAny reports whether topic has at least one registered handler,
// without allocating the snapshot Handlers would.
func (s *Store[H]) HasAny(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byNode, ok := s.byTopic[topic]
	return ok && len(byNode) > 0
}

// FirstHandler returns the first handler on topic that accepts msgType
// (exact match or wildcard, per spec §4.3), or the zero value and false
// if none does. Used by the service-call path, where exactly one replier
// should exist per (topic, reqType, repType).
func (s *Store[H]) FirstHandler(topic string, msgType string) (H, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero H
	byNode, ok := s.byTopic[topic]
	if !ok {
		return zero, false
	}
	for _, handlers := range byNode {
		for _, h := range handlers {
			if h.Accepts(msgType) {
				return h, true
			}
		}
	}
	return zero, false
}

// HandlersByNode returns every handler registered by node across all
// topics, grouped by topic.
func (s *Store[H]) HandlersByNode(node types.NodeID) map[string][]H {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics, ok := s.nodeTopics[node]
	if !ok {
		return nil
	}
	out := make(map[string][]H, len(topics))
	for topic := range topics {
		handlers := s.byTopic[topic][node]
		list := make([]H, 0, len(handlers))
		for _, h := range handlers {
			list = append(list, h)
		}
		out[topic] = list
	}
	return out
}

// RemoveHandler removes a single handler by (topic, node, handler id).
// Returns whether anything was removed.
func (s *Store[H]) RemoveHandler(topic string, node types.NodeID, handler types.HandlerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeHandlerLocked(topic, node, handler)
}

func (s *Store[H]) removeHandlerLocked(topic string, node types.NodeID, handler types.HandlerID) bool {
	byNode, ok := s.byTopic[topic]
	if !ok {
		return false
	}
	handlers, ok := byNode[node]
	if !ok {
		return false
	}
	if _, ok := handlers[handler]; !ok {
		return false
	}
	delete(handlers, handler)

	if len(handlers) == 0 {
		delete(byNode, node)
		if topics := s.nodeTopics[node]; topics != nil {
			delete(topics, topic)
			if len(topics) == 0 {
				delete(s.nodeTopics, node)
			}
		}
	}
	if len(byNode) == 0 {
		delete(s.byTopic, topic)
	}
	return true
}

// RemoveHandlersForNode removes every handler registered by node across
// all topics, e.g. on facade teardown. Returns the number removed.
func (s *Store[H]) RemoveHandlersForNode(node types.NodeID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := s.nodeTopics[node]
	removed := 0
	for topic := range topics {
		if handlers, ok := s.byTopic[topic][node]; ok {
			removed += len(handlers)
			delete(s.byTopic[topic], node)
			if len(s.byTopic[topic]) == 0 {
				delete(s.byTopic, topic)
			}
		}
	}
	delete(s.nodeTopics, node)
	return removed
}
