package shared

import (
	"context"
	"sync"
	"time"

	"github.com/meshwire/transport/internal/core/socket"
	"github.com/meshwire/transport/pkg/types"
)

// receptionLoop is the core's single dedicated dispatcher (spec §4.6).
// Go's ZeroMQ binding has each socket block individually in Recv, so
// rather than one OS-level poll across every file descriptor, one
// reader goroutine per inbound socket blocks on Recv and fans its
// decoded frames into a single channel; this goroutine is the only one
// that ever acts on an event, preserving the spec's single-reader
// invariant at the semantic level even though several goroutines touch
// the network layer. The poll-timeout ticker exists only so the loop
// periodically wakes even when idle, matching the spec's 250ms poll
// cadence; the done channel is what actually drives a prompt exit.
func (c *Core) receptionLoop(ctx context.Context) {
	defer c.wg.Done()

	events := make(chan func(), 256)
	var readers sync.WaitGroup

	spawn := func(recv func() error) {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				if err := recv(); err != nil {
					return
				}
				select {
				case <-c.done:
					return
				default:
				}
			}
		}()
	}

	spawn(func() error { return c.pumpTopic(events) })
	spawn(func() error { return c.pumpControl(events) })
	spawn(func() error { return c.pumpServiceRequest(events) })
	spawn(func() error { return c.pumpServiceResponse(events) })

	ticker := time.NewTicker(c.cfg.PollTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			readers.Wait()
			return
		case <-ctx.Done():
			readers.Wait()
			return
		case dispatch := <-events:
			start := time.Now()
			dispatch()
			c.metrics.LoopLatency.Observe(time.Since(start).Seconds())
		case <-ticker.C:
			// idle wake, matches spec's bounded-poll cadence.
		}
	}
}

func (c *Core) pumpTopic(events chan func()) error {
	raw, err := c.sockets.RecvSub()
	if err != nil {
		return err
	}
	msg, err := socket.DecodeTopicMessage(raw)
	if err != nil {
		c.log.Warn("malformed topic message", "err", err)
		c.metrics.Dropped.WithLabelValues("malformed-frame").Inc()
		return nil
	}
	c.send(events, func() { c.dispatchTopicMessage(msg) })
	return nil
}

func (c *Core) pumpControl(events chan func()) error {
	raw, err := c.sockets.RecvControl()
	if err != nil {
		return err
	}
	msg, err := socket.DecodeControlMessage(raw)
	if err != nil {
		c.log.Warn("malformed control message", "err", err)
		c.metrics.Dropped.WithLabelValues("malformed-frame").Inc()
		return nil
	}
	c.send(events, func() { c.dispatchControlMessage(msg) })
	return nil
}

func (c *Core) pumpServiceRequest(events chan func()) error {
	raw, err := c.sockets.RecvReplierIn()
	if err != nil {
		return err
	}
	msg, err := socket.DecodeServiceRequest(raw)
	if err != nil {
		c.log.Warn("malformed service request", "err", err)
		c.metrics.Dropped.WithLabelValues("malformed-frame").Inc()
		return nil
	}
	c.send(events, func() { c.dispatchServiceRequest(msg) })
	return nil
}

func (c *Core) pumpServiceResponse(events chan func()) error {
	raw, err := c.sockets.RecvResponseIn()
	if err != nil {
		return err
	}
	msg, err := socket.DecodeServiceResponse(raw)
	if err != nil {
		c.log.Warn("malformed service response", "err", err)
		c.metrics.Dropped.WithLabelValues("malformed-frame").Inc()
		return nil
	}
	c.send(events, func() { c.dispatchServiceResponse(msg) })
	return nil
}

func (c *Core) send(events chan func(), dispatch func()) {
	select {
	case events <- dispatch:
	case <-c.done:
	}
}

// dispatchControlMessage applies a remote subscribe/unsubscribe
// announcement to the remote subscriber registry (spec §4.6, control
// update; §4.2's symmetric registry on the publisher's side).
func (c *Core) dispatchControlMessage(msg socket.ControlMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Op {
	case types.ControlSubscribe:
		c.remoteSubscribers.AddPublisher(types.RemoteSubscriber{
			Topic:     msg.Topic,
			ProcessID: msg.ProcessID,
			NodeID:    msg.NodeID,
			MsgType:   msg.MsgType,
		})
	case types.ControlUnsubscribe:
		c.remoteSubscribers.DelPublisherByNode(msg.Topic, msg.ProcessID, msg.NodeID)
	default:
		c.log.Warn("unknown control op", "op", msg.Op)
	}
}
