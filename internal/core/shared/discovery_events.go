package shared

import (
	"github.com/meshwire/transport/internal/core/socket"
	"github.com/meshwire/transport/pkg/types"
)

// Advertise announces a local publisher to the fabric (spec §6). The
// core fills in the addresses the publisher is actually reachable at;
// callers only need to describe topic, message type, and node.
func (c *Core) Advertise(topic string, node types.NodeID, msgType string) bool {
	if c.isShuttingDown() {
		return false
	}
	topic = c.Scope(topic)
	pub := types.MessagePublisher{
		Topic:          topic,
		MsgType:        msgType,
		ProcessID:      c.processID,
		NodeID:         node,
		DataAddress:    c.sockets.PubAddr(),
		ControlAddress: c.sockets.ControlAddr(),
	}
	return c.discoverer.Advertise(pub)
}

// Unadvertise withdraws a previously advertised publisher.
func (c *Core) Unadvertise(topic string, node types.NodeID) bool {
	topic = c.Scope(topic)
	return c.discoverer.Unadvertise(topic, c.processID, node)
}

// Discover asks the fabric to start looking for publishers of topic.
func (c *Core) Discover(topic string) bool {
	return c.discoverer.Discover(c.Scope(topic))
}

// AdvertiseService registers a local replier and announces it to the
// fabric (spec §4.9, replier side; §6 AdvertiseService).
func (c *Core) AdvertiseService(topic string, node types.NodeID, reqType, repType string, handle func(reqPayload []byte) ([]byte, error)) bool {
	if c.isShuttingDown() {
		return false
	}
	topic = c.Scope(topic)
	h := &replierHandler{id: types.NewHandlerID(), reqType: reqType, repType: repType, invoke: handle}

	c.mu.Lock()
	c.repliers.AddHandler(topic, node, h)
	c.mu.Unlock()

	pub := types.ServicePublisher{
		Topic:            topic,
		ReqType:          reqType,
		RepType:          repType,
		RequesterAddress: c.sockets.ResponseReceiverAddr(),
		ReplierAddress:   c.sockets.ReplierAddr(),
		ProcessID:        c.processID,
		NodeID:           node,
	}
	return c.discoverer.AdvertiseService(pub)
}

// UnadvertiseService removes node's local repliers on topic and
// withdraws node's service advertisement from discovery. Other nodes'
// repliers on topic are left in place.
func (c *Core) UnadvertiseService(topic string, node types.NodeID) bool {
	topic = c.Scope(topic)

	c.mu.Lock()
	for _, h := range c.repliers.Handlers(topic)[node] {
		c.repliers.RemoveHandler(topic, node, h.ID())
	}
	c.mu.Unlock()

	return c.discoverer.UnadvertiseService(topic, c.processID, node)
}

// DiscoverService asks the fabric to start looking for repliers of topic.
func (c *Core) DiscoverService(topic string) bool {
	return c.discoverer.DiscoverService(c.Scope(topic))
}

// TopicPublishers returns every known remote publisher of topic (spec
// supplemented feature, a pass-through to topic storage matching
// NodeShared::TopicPublishers).
func (c *Core) TopicPublishers(topic string) []types.MessagePublisher {
	topic = c.Scope(topic)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remotePublishers.Publishers(topic)
}

// OnNewConnection handles a discovery-reported remote publisher (spec
// §4.4). On first sight of this (topic, process, node) it dials the sub
// socket to the publisher's data address (unless that address is
// already dialed) and announces every locally subscribed node's
// interest on the publisher's control address.
func (c *Core) OnNewConnection(pub types.MessagePublisher) {
	c.mu.Lock()
	dialed := c.remotePublishers.HasPublisher(pub.DataAddress)
	known := false
	for _, p := range c.remotePublishers.Publishers(pub.Topic) {
		if p.ProcessID == pub.ProcessID && p.NodeID == pub.NodeID {
			known = true
		}
	}
	c.remotePublishers.AddPublisher(pub)
	localNodes := c.localHandlers.Handlers(pub.Topic)
	c.mu.Unlock()

	if known {
		return
	}

	if !dialed {
		if err := c.sockets.SubscribeTo(pub.DataAddress); err != nil {
			c.log.Warn("subscribe to new publisher failed", "addr", pub.DataAddress, "err", err)
			return
		}
	}

	for node, handlers := range localNodes {
		for _, h := range handlers {
			ctrl := socket.ControlMessage{
				Topic:     pub.Topic,
				ProcessID: c.processID,
				NodeID:    node,
				MsgType:   h.ExpectedType(),
				Op:        types.ControlSubscribe,
			}
			if err := c.sockets.SendControl(pub.ControlAddress, ctrl); err != nil {
				c.log.Warn("control announce failed", "addr", pub.ControlAddress, "err", err)
			}
		}
	}
}

// OnNewDisconnection handles a discovery-reported publisher departure.
func (c *Core) OnNewDisconnection(pub types.MessagePublisher) {
	c.mu.Lock()
	removed := c.remotePublishers.DelPublisherByNode(pub.Topic, pub.ProcessID, pub.NodeID)
	c.mu.Unlock()

	if !removed {
		return
	}
	c.sockets.DropControlOut(pub.ControlAddress)
}

// OnNewSrvConnection handles a discovery-reported remote replier (spec
// §4.4, §4.9 requester side step 2). On first sight of this (topic,
// process, node) it flushes every pending request now deliverable to
// the replier; the requester-out socket is dialed by the first send.
func (c *Core) OnNewSrvConnection(pub types.ServicePublisher) {
	c.mu.Lock()
	known := false
	for _, p := range c.remoteServices.Publishers(pub.Topic) {
		if p.ProcessID == pub.ProcessID && p.NodeID == pub.NodeID {
			known = true
		}
	}
	c.remoteServices.AddPublisher(pub)
	c.mu.Unlock()

	if known {
		return
	}
	c.sendPendingRemoteReqs(pub)
}

// OnNewSrvDisconnection handles a discovery-reported replier departure.
func (c *Core) OnNewSrvDisconnection(pub types.ServicePublisher) {
	c.mu.Lock()
	c.remoteServices.DelPublisherByNode(pub.Topic, pub.ProcessID, pub.NodeID)
	c.mu.Unlock()
	c.sockets.DropRequesterOut(pub.ReplierAddress)
}
