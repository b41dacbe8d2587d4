package shared

import (
	"time"

	"github.com/meshwire/transport/internal/core/socket"
	"github.com/meshwire/transport/pkg/types"
)

// Request issues a synchronous service call (spec §4.9, requester
// side). A zero timeout uses the core's configured default. If a local
// replier on topic accepts reqType, the call is served in-process
// without touching the wire (spec §4.9, "local shortcut").
func (c *Core) Request(topic string, node types.NodeID, reqType, repType string, reqPayload []byte, timeout time.Duration) ([]byte, error) {
	if c.isShuttingDown() {
		return nil, ErrShutdown
	}
	topic = c.Scope(topic)
	if timeout <= 0 {
		timeout = c.cfg.DefaultReqTimeout
	}

	if resp, err, handled := c.tryLocalShortcut(topic, reqType, reqPayload); handled {
		return resp, err
	}

	pr := newPendingRequest(topic, node, reqType, repType, reqPayload)

	c.mu.Lock()
	c.pendingByNode.AddHandler(topic, node, pr)
	c.pendingByReqID[pr.requestID] = pr
	replier, haveReplier := c.firstServicePublisherLocked(topic, reqType, repType)
	c.mu.Unlock()
	c.metrics.Pending.Inc()

	if haveReplier {
		c.sendRequestTo(pr, replier.ReplierAddress)
	} else {
		c.discoverer.DiscoverService(topic)
	}

	resp, err := pr.Wait(timeout)
	if c.removePending(pr) {
		c.metrics.Pending.Dec()
	}
	return resp, err
}

// tryLocalShortcut serves a request in-process when a local replier
// accepts reqType, bypassing the wire entirely (spec §4.9).
func (c *Core) tryLocalShortcut(topic, reqType string, reqPayload []byte) (resp []byte, err error, handled bool) {
	c.mu.Lock()
	h, ok := c.repliers.FirstHandler(topic, reqType)
	c.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	resp, err = c.invokeReplierSafely(h, reqPayload)
	return resp, err, true
}

// firstServicePublisherLocked returns the first known remote replier
// for (topic, reqType, repType). Callers must hold mu.
func (c *Core) firstServicePublisherLocked(topic, reqType, repType string) (types.ServicePublisher, bool) {
	for _, pub := range c.remoteServices.Publishers(topic) {
		reqMatch := pub.ReqType == types.AnyType || pub.ReqType == reqType
		repMatch := pub.RepType == types.AnyType || pub.RepType == repType
		if reqMatch && repMatch {
			return pub, true
		}
	}
	return types.ServicePublisher{}, false
}

func (c *Core) sendRequestTo(pr *pendingRequest, replierAddr string) {
	pr.trySend(func() {
		req := socket.ServiceRequest{
			Topic:     pr.topic,
			ReplyTo:   c.sockets.ResponseReceiverAddr(),
			NodeID:    pr.node,
			RequestID: pr.requestID,
			ReqType:   pr.reqType,
			RepType:   pr.repType,
			Payload:   pr.reqPayload,
		}
		if err := c.sockets.SendRequest(replierAddr, req); err != nil {
			c.log.Warn("send service request failed", "topic", pr.topic, "err", err)
			pr.Fail(err)
		}
	})
}

// removePending removes pr from the pending tables if it is still
// there, reporting whether it found (and therefore removed) it — a
// response delivered concurrently on the reception loop may already
// have done so.
func (c *Core) removePending(pr *pendingRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pendingByReqID[pr.requestID]; !ok {
		return false
	}
	delete(c.pendingByReqID, pr.requestID)
	c.pendingByNode.RemoveHandler(pr.topic, pr.node, pr.id)
	return true
}

// sendPendingRemoteReqs flushes every pending request matching pub's
// service triple once a replier for it becomes known (spec §4.4,
// §8 property 4).
func (c *Core) sendPendingRemoteReqs(pub types.ServicePublisher) {
	c.mu.Lock()
	var matches []*pendingRequest
	for _, handlers := range c.pendingByNode.Handlers(pub.Topic) {
		for _, pr := range handlers {
			reqMatch := pub.ReqType == types.AnyType || pub.ReqType == pr.reqType
			repMatch := pub.RepType == types.AnyType || pub.RepType == pr.repType
			if reqMatch && repMatch {
				matches = append(matches, pr)
			}
		}
	}
	c.mu.Unlock()

	for _, pr := range matches {
		c.sendRequestTo(pr, pub.ReplierAddress)
	}
}

// invokeReplierSafely runs a replier handler, recovering any panic as a
// replier error rather than letting it escape the reception loop or
// the calling goroutine (spec §7, recovered-locally policy).
func (c *Core) invokeReplierSafely(h *replierHandler, reqPayload []byte) (resp []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("replier panicked", "recovered", r)
			err = ErrReplierFailed
		}
	}()
	resp, err = h.Invoke(reqPayload)
	if err != nil {
		err = ErrReplierFailed
	}
	return resp, err
}

// dispatchServiceRequest handles an inbound ServiceRequest on the
// reception loop (spec §4.9, replier side).
func (c *Core) dispatchServiceRequest(req socket.ServiceRequest) {
	c.mu.Lock()
	var h *replierHandler
	for _, handlers := range c.repliers.Handlers(req.Topic) {
		for _, cand := range handlers {
			repMatch := cand.repType == types.AnyType || cand.repType == req.RepType
			if h == nil && cand.Accepts(req.ReqType) && repMatch {
				h = cand
			}
		}
	}
	c.mu.Unlock()
	ok := h != nil

	resp := socket.ServiceResponse{
		Dest:      req.ReplyTo,
		Topic:     req.Topic,
		NodeID:    req.NodeID,
		RequestID: req.RequestID,
		RepType:   req.RepType,
	}

	if !ok {
		resp.Status = types.StatusNoReplier
		c.metrics.Dropped.WithLabelValues("no-replier").Inc()
	} else {
		payload, err := c.invokeReplierSafely(h, req.Payload)
		if err != nil {
			resp.Status = types.StatusReplierError
		} else {
			resp.Status = types.StatusOK
			resp.Payload = payload
		}
	}

	if err := c.sockets.SendResponse(req.ReplyTo, resp); err != nil {
		c.log.Warn("send service response failed", "topic", req.Topic, "err", err)
	}
}

// dispatchServiceResponse handles an inbound ServiceResponse on the
// reception loop (spec §4.9, "Response handling"). A response whose
// request is no longer pending (timed out or already completed) is
// dropped silently (spec S4).
func (c *Core) dispatchServiceResponse(resp socket.ServiceResponse) {
	c.mu.Lock()
	pr, ok := c.pendingByReqID[resp.RequestID]
	if ok {
		delete(c.pendingByReqID, resp.RequestID)
		c.pendingByNode.RemoveHandler(resp.Topic, pr.node, pr.id)
	}
	c.mu.Unlock()

	if !ok {
		c.metrics.Dropped.WithLabelValues("late-response").Inc()
		return
	}
	c.metrics.Pending.Dec()

	switch resp.Status {
	case types.StatusOK:
		pr.Deliver(resp.Payload, resp.RepType)
	case types.StatusNoReplier:
		pr.Fail(ErrNoReplier)
	default:
		pr.Fail(ErrReplierFailed)
	}
}
