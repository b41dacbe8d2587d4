package shared

import (
	"github.com/meshwire/transport/internal/core/socket"
	"github.com/meshwire/transport/pkg/types"
)

// HandlerInfo reports which local handlers exist for a topic (spec
// §4.7 step 1).
type HandlerInfo struct {
	Local     map[types.NodeID][]*subscriptionHandler
	HaveLocal bool
}

// SubscriberInfo extends HandlerInfo with remote presence (spec §4.7
// step 2, §9's "model as composition" resolution of SubscriberInfo
// inheriting HandlerInfo).
type SubscriberInfo struct {
	HandlerInfo
	HaveRemote bool
}

// CheckHandlerInfo snapshots the local handlers registered for topic
// under mu, so callers can act on it without holding the lock (spec §9,
// recursive-mutex substitute).
func (c *Core) CheckHandlerInfo(topic string) HandlerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	handlers := c.localHandlers.Handlers(topic)
	return HandlerInfo{Local: handlers, HaveLocal: len(handlers) > 0}
}

// checkSubscriberInfo extends CheckHandlerInfo with whether any remote
// process has announced interest in topic.
func (c *Core) checkSubscriberInfo(topic string) SubscriberInfo {
	info := c.CheckHandlerInfo(topic)
	c.mu.Lock()
	haveRemote := c.remoteSubscribers.HasTopic(topic)
	c.mu.Unlock()
	return SubscriberInfo{HandlerInfo: info, HaveRemote: haveRemote}
}

// Publish sends payload, tagged msgType, to every local and remote
// subscriber of topic (spec §4.7). It never blocks on remote consumers
// beyond the socket's local send buffer, and returns true even when
// nobody is listening — delivery is best-effort, not a contract that
// someone received it.
func (c *Core) Publish(topic string, payload []byte, msgType string) bool {
	if c.isShuttingDown() {
		return false
	}
	topic = c.Scope(topic)
	c.metrics.Published.WithLabelValues(topic).Inc()

	info := c.checkSubscriberInfo(topic)

	if info.HaveLocal {
		c.TriggerSubscriberCallbacks(topic, info.HandlerInfo, payload, msgType)
	}

	if info.HaveRemote {
		err := c.sockets.PublishTopic(socket.TopicMessage{
			Topic:      topic,
			SenderAddr: c.sockets.PubAddr(),
			Payload:    payload,
			MsgType:    msgType,
		})
		if err != nil {
			c.log.Warn("publish send failed", "topic", topic, "err", err)
			c.metrics.Dropped.WithLabelValues("publish-send-error").Inc()
			return false
		}
	}

	return true
}

// TriggerSubscriberCallbacks delivers payload to every local handler
// that accepts msgType (spec §4.7 step 3, §4.8). A handler's expected
// type acts as a pure filter here — payload deserialization of specific
// schemas is the caller's concern, not the core's (spec §1) — so there
// is no decode step to cache across handlers; each accepting handler is
// simply invoked with the same bytes.
//
// A panic inside one handler is recovered and counted as a dropped
// delivery rather than propagated: a misbehaving local handler must not
// make the publisher believe the send itself failed (spec §9, open
// question 2).
func (c *Core) TriggerSubscriberCallbacks(topic string, info HandlerInfo, payload []byte, msgType string) {
	for node, handlers := range info.Local {
		for _, h := range handlers {
			if !h.Accepts(msgType) {
				c.metrics.Dropped.WithLabelValues("type-mismatch").Inc()
				continue
			}
			c.deliverSafely(topic, node, h, payload, msgType)
		}
	}
}

func (c *Core) deliverSafely(topic string, node types.NodeID, h *subscriptionHandler, payload []byte, msgType string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("subscriber callback panicked", "topic", topic, "node", node, "recovered", r)
			c.metrics.Dropped.WithLabelValues("handler-panic").Inc()
		}
	}()
	if err := h.Deliver(payload, msgType); err != nil {
		c.log.Warn("subscriber callback returned error", "topic", topic, "node", node, "err", err)
		c.metrics.Dropped.WithLabelValues("handler-error").Inc()
		return
	}
	c.metrics.Delivered.WithLabelValues(topic, "local").Inc()
}
