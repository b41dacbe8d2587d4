package shared

import (
	"sync"
	"time"

	"github.com/meshwire/transport/pkg/types"
)

// subscriptionHandler backs both typed and raw pub/sub subscriptions
// (spec §4.3 — the same capability shape serves both roles; a raw
// subscription is simply one whose expected type is types.AnyType).
type subscriptionHandler struct {
	id       types.HandlerID
	expected string
	callback func(payload []byte, msgType string) error
}

func (h *subscriptionHandler) ID() types.HandlerID  { return h.id }
func (h *subscriptionHandler) ExpectedType() string { return h.expected }

func (h *subscriptionHandler) Accepts(msgType string) bool {
	return h.expected == types.AnyType || h.expected == msgType
}

func (h *subscriptionHandler) Deliver(payload []byte, msgType string) error {
	return h.callback(payload, msgType)
}

// replierHandler backs a service replier (spec §4.9, replier side). Its
// ExpectedType is the request type it was advertised with; Invoke runs
// the user-supplied function synchronously, on whichever goroutine the
// core chooses to call it from (the reception loop for remote requests,
// the calling goroutine for the same-process shortcut).
type replierHandler struct {
	id      types.HandlerID
	reqType string
	repType string
	invoke  func(reqPayload []byte) ([]byte, error)
}

func (h *replierHandler) ID() types.HandlerID  { return h.id }
func (h *replierHandler) ExpectedType() string { return h.reqType }

func (h *replierHandler) Accepts(reqType string) bool {
	return h.reqType == types.AnyType || h.reqType == reqType
}

// Deliver satisfies interfaces.Handler but is never called on a
// replierHandler; Invoke is the real entry point, reached directly
// since handlerstore.Store is generic over the concrete type.
func (h *replierHandler) Deliver(payload []byte, msgType string) error {
	_, err := h.invoke(payload)
	return err
}

func (h *replierHandler) Invoke(reqPayload []byte) ([]byte, error) {
	return h.invoke(reqPayload)
}

// pendingRequest backs one in-flight Request call (spec §3, "Pending
// Service Request"). It is registered in handlerstore under (topic,
// requesting node) so that sendPendingRemoteReqs can find every request
// pending on a topic, and also indexed by request ID in
// Core.pendingByReqID for O(1) response correlation. RemoveNode does
// not touch pending requests; each one ends on response, timeout, or
// Close.
type pendingRequest struct {
	id         types.HandlerID // == types.HandlerID(requestID)
	requestID  types.RequestID
	node       types.NodeID
	topic      string
	reqType    string
	repType    string
	reqPayload []byte

	sendOnce sync.Once

	once sync.Once
	done chan struct{}
	resp []byte
	err  error
}

func newPendingRequest(topic string, node types.NodeID, reqType, repType string, reqPayload []byte) *pendingRequest {
	id := types.NewRequestID()
	return &pendingRequest{
		id:         types.HandlerID(id),
		requestID:  id,
		node:       node,
		topic:      topic,
		reqType:    reqType,
		repType:    repType,
		reqPayload: reqPayload,
		done:       make(chan struct{}),
	}
}

// trySend runs send exactly once across the lifetime of this pending
// request, even if multiple matching repliers connect concurrently
// (spec §8 property 4: exactly one request frame sent).
func (h *pendingRequest) trySend(send func()) {
	h.sendOnce.Do(send)
}

func (h *pendingRequest) ID() types.HandlerID  { return h.id }
func (h *pendingRequest) ExpectedType() string { return h.repType }

func (h *pendingRequest) Accepts(repType string) bool {
	return h.repType == types.AnyType || h.repType == repType
}

// Deliver completes the pending request with a successful response.
func (h *pendingRequest) Deliver(payload []byte, _ string) error {
	h.complete(payload, nil)
	return nil
}

// Fail completes the pending request with an error instead of a
// response payload.
func (h *pendingRequest) Fail(err error) {
	h.complete(nil, err)
}

func (h *pendingRequest) complete(payload []byte, err error) {
	h.once.Do(func() {
		h.resp = payload
		h.err = err
		close(h.done)
	})
}

// Wait blocks until the request completes or deadline elapses,
// returning ErrTimeout in the latter case.
func (h *pendingRequest) Wait(deadline time.Duration) ([]byte, error) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.resp, h.err
	case <-timer.C:
		return nil, ErrTimeout
	}
}
