package shared

import (
	"github.com/go-zeromq/zmq4"
	"github.com/meshwire/transport/internal/core/socket"
)

// SocketLayer is the surface the core needs from C5 (spec §4.5). The
// production implementation is *socket.Layer, bound to real ZeroMQ
// sockets; tests substitute an in-memory fake so that S1–S6 and the
// universal properties run deterministically without touching the
// network (the real wiring gets its own //go:build !short coverage in
// internal/core/socket, left out when building with -tags short).
type SocketLayer interface {
	PubAddr() string
	ControlAddr() string
	ReplierAddr() string
	ResponseReceiverAddr() string

	SubscribeTo(dataAddr string) error
	PublishTopic(m socket.TopicMessage) error
	SendControl(addr string, m socket.ControlMessage) error
	SendRequest(replierAddr string, m socket.ServiceRequest) error
	SendResponse(replyTo string, m socket.ServiceResponse) error

	DropControlOut(addr string)
	DropRequesterOut(addr string)

	RecvSub() (zmq4.Msg, error)
	RecvControl() (zmq4.Msg, error)
	RecvReplierIn() (zmq4.Msg, error)
	RecvResponseIn() (zmq4.Msg, error)

	Close() error
}
