// Package topicstore implements the two-level publisher registry
// (spec §3, "Topic Storage" / §4.2): topic → process UUID → publishers
// belonging to that process. It is instantiated once for remote pub/sub
// publishers and once for the remote subscriber registry's sibling
// lookups; the same type also backs service publisher storage.
package topicstore

import (
	"sync"

	"github.com/meshwire/transport/pkg/types"
)

// Record is the constraint satisfied by anything topic storage can hold:
// message publishers and service publishers alike.
type Record interface {
	Key() (topic string, proc types.ProcessID, node types.NodeID)
	Addresses() []string
}

// Store is a generic topic → process → publishers registry. The zero
// value is not usable; use New.
type Store[R Record] struct {
	mu   sync.Mutex
	data map[string]map[types.ProcessID][]R
}

// New creates an empty store.
func New[R Record]() *Store[R] {
	return &Store[R]{data: make(map[string]map[types.ProcessID][]R)}
}

// AddPublisher inserts or replaces a publisher record. Within one
// (topic, process) pair a publisher's node UUID is unique; adding a
// record with a node UUID already present replaces it (spec §9's
// "latest wins" resolution for re-advertisement under a different
// message type).
func (s *Store[R]) AddPublisher(rec R) {
	topic, proc, node := rec.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	byProc, ok := s.data[topic]
	if !ok {
		byProc = make(map[types.ProcessID][]R)
		s.data[topic] = byProc
	}

	pubs := byProc[proc]
	for i, existing := range pubs {
		_, _, existingNode := existing.Key()
		if existingNode == node {
			pubs[i] = rec
			return
		}
	}
	byProc[proc] = append(pubs, rec)
}

// DelPublisherByNode removes the publisher owned by (proc, node) on
// topic, if any. Removing the last publisher of a (topic, process) pair
// removes that inner entry; removing the last process removes the topic
// entry entirely. Returns whether anything was removed.
func (s *Store[R]) DelPublisherByNode(topic string, proc types.ProcessID, node types.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byProc, ok := s.data[topic]
	if !ok {
		return false
	}
	pubs, ok := byProc[proc]
	if !ok {
		return false
	}

	for i, rec := range pubs {
		_, _, recNode := rec.Key()
		if recNode != node {
			continue
		}
		pubs = append(pubs[:i], pubs[i+1:]...)
		if len(pubs) == 0 {
			delete(byProc, proc)
		} else {
			byProc[proc] = pubs
		}
		if len(byProc) == 0 {
			delete(s.data, topic)
		}
		return true
	}
	return false
}

// DelPublishersByProcess removes every publisher owned by proc across
// all topics, e.g. when that process disconnects entirely. Returns the
// number of publishers removed.
func (s *Store[R]) DelPublishersByProcess(proc types.ProcessID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for topic, byProc := range s.data {
		if pubs, ok := byProc[proc]; ok {
			removed += len(pubs)
			delete(byProc, proc)
		}
		if len(byProc) == 0 {
			delete(s.data, topic)
		}
	}
	return removed
}

// Publishers returns every publisher registered for topic. Order is
// unspecified.
func (s *Store[R]) Publishers(topic string) []R {
	s.mu.Lock()
	defer s.mu.Unlock()

	byProc, ok := s.data[topic]
	if !ok {
		return nil
	}
	var out []R
	for _, pubs := range byProc {
		out = append(out, pubs...)
	}
	return out
}

// HasTopic reports whether any publisher is registered for topic.
func (s *Store[R]) HasTopic(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byProc, ok := s.data[topic]
	return ok && len(byProc) > 0
}

// HasPublisher reports whether any stored record exposes address among
// its addresses.
func (s *Store[R]) HasPublisher(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, byProc := range s.data {
		for _, pubs := range byProc {
			for _, rec := range pubs {
				for _, a := range rec.Addresses() {
					if a == address {
						return true
					}
				}
			}
		}
	}
	return false
}

// Topics returns every topic with at least one publisher. Order is
// unspecified.
func (s *Store[R]) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for topic := range s.data {
		out = append(out, topic)
	}
	return out
}
