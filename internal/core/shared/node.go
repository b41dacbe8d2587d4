package shared

import "github.com/meshwire/transport/pkg/types"

// RemoveNode unregisters every local handler a node facade owns —
// subscriptions and advertised repliers — on facade teardown (spec §3,
// "Publisher/subscriber handles ... removal happens on explicit
// unadvertise/unsubscribe or facade destruction").
func (c *Core) RemoveNode(node types.NodeID) {
	c.mu.Lock()
	c.localHandlers.RemoveHandlersForNode(node)
	c.repliers.RemoveHandlersForNode(node)
	c.mu.Unlock()
}
