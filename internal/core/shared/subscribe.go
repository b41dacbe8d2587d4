package shared

import (
	"github.com/meshwire/transport/internal/core/socket"
	"github.com/meshwire/transport/pkg/types"
)

// Subscribe registers a typed handler for topic under node (spec §4.8).
// callback is invoked only for messages whose msgType exactly matches
// expectedType.
func (c *Core) Subscribe(topic string, node types.NodeID, expectedType string, callback func(payload []byte, msgType string) error) types.HandlerID {
	return c.subscribe(topic, node, expectedType, callback)
}

// SubscribeRaw registers a wildcard handler for topic under node (spec
// §4.8): callback is invoked for every message on topic regardless of
// its declared type.
func (c *Core) SubscribeRaw(topic string, node types.NodeID, callback func(payload []byte, msgType string) error) types.HandlerID {
	return c.subscribe(topic, node, types.AnyType, callback)
}

func (c *Core) subscribe(topic string, node types.NodeID, expectedType string, callback func(payload []byte, msgType string) error) types.HandlerID {
	topic = c.Scope(topic)
	h := &subscriptionHandler{id: types.NewHandlerID(), expected: expectedType, callback: callback}

	c.mu.Lock()
	wasEmpty := !c.localHandlers.HasAny(topic)
	c.localHandlers.AddHandler(topic, node, h)
	c.mu.Unlock()

	if wasEmpty {
		c.discoverer.Discover(topic)
	}
	return h.id
}

// Unsubscribe removes a previously registered handler (spec §4.3,
// RemoveHandler). Returns whether anything was removed.
func (c *Core) Unsubscribe(topic string, node types.NodeID, handler types.HandlerID) bool {
	topic = c.Scope(topic)
	c.mu.Lock()
	removed := c.localHandlers.RemoveHandler(topic, node, handler)
	c.mu.Unlock()
	return removed
}

// dispatchTopicMessage is invoked by the reception loop for every
// inbound TopicMessage (spec §4.8). It never runs concurrently with
// another call to itself — the reception loop is single-threaded — but
// it contends with Publish/Subscribe for mu like any other path.
func (c *Core) dispatchTopicMessage(msg socket.TopicMessage) {
	info := c.CheckHandlerInfo(msg.Topic)
	if !info.HaveLocal {
		return
	}
	c.TriggerSubscriberCallbacks(msg.Topic, info, msg.Payload, msg.MsgType)
}
