// Package socket implements C5: the five logical channels the core
// multiplexes (pub out, sub in, control in/out, requester out /
// response-receiver in, replier in/out), built on ZeroMQ-style sockets
// (github.com/go-zeromq/zmq4), and the wire frame shapes they carry
// (spec §4.5, §4.6).
package socket

import (
	"fmt"

	"github.com/go-zeromq/zmq4"
	"github.com/meshwire/transport/pkg/types"
)

// TopicMessage is the four-frame envelope carried on the pub/sub
// channel: [topic][sender address][payload][msg-type].
type TopicMessage struct {
	Topic      string
	SenderAddr string
	Payload    []byte
	MsgType    string
}

// Encode frames a TopicMessage for the wire.
func (m TopicMessage) Encode() zmq4.Msg {
	return zmq4.NewMsgFrom([]byte(m.Topic), []byte(m.SenderAddr), m.Payload, []byte(m.MsgType))
}

// DecodeTopicMessage parses a four-frame topic message. Frames of the
// wrong arity are malformed and must be dropped, never treated as fatal
// (spec §4.6, §7).
func DecodeTopicMessage(msg zmq4.Msg) (TopicMessage, error) {
	if len(msg.Frames) != 4 {
		return TopicMessage{}, fmt.Errorf("malformed topic message: want 4 frames, got %d", len(msg.Frames))
	}
	return TopicMessage{
		Topic:      string(msg.Frames[0]),
		SenderAddr: string(msg.Frames[1]),
		Payload:    msg.Frames[2],
		MsgType:    string(msg.Frames[3]),
	}, nil
}

// ControlMessage is the five-frame envelope announcing subscriber
// presence/absence: [topic][process UUID][node UUID][msg-type][op].
type ControlMessage struct {
	Topic     string
	ProcessID types.ProcessID
	NodeID    types.NodeID
	MsgType   string
	Op        types.ControlOp
}

// Encode frames a ControlMessage for the wire.
func (m ControlMessage) Encode() zmq4.Msg {
	return zmq4.NewMsgFrom(
		[]byte(m.Topic),
		[]byte(m.ProcessID),
		[]byte(m.NodeID),
		[]byte(m.MsgType),
		[]byte(m.Op),
	)
}

// DecodeControlMessage parses a five-frame control message.
func DecodeControlMessage(msg zmq4.Msg) (ControlMessage, error) {
	if len(msg.Frames) != 5 {
		return ControlMessage{}, fmt.Errorf("malformed control message: want 5 frames, got %d", len(msg.Frames))
	}
	return ControlMessage{
		Topic:     string(msg.Frames[0]),
		ProcessID: types.ProcessID(msg.Frames[1]),
		NodeID:    types.NodeID(msg.Frames[2]),
		MsgType:   string(msg.Frames[3]),
		Op:        types.ControlOp(msg.Frames[4]),
	}, nil
}

// ServiceRequest is the seven-frame envelope carrying a service call:
// [topic][reply-to address][node UUID][request UUID][req-type][rep-type]
// [request payload].
type ServiceRequest struct {
	Topic     string
	ReplyTo   string
	NodeID    types.NodeID
	RequestID types.RequestID
	ReqType   string
	RepType   string
	Payload   []byte
}

// Encode frames a ServiceRequest for the wire.
func (m ServiceRequest) Encode() zmq4.Msg {
	return zmq4.NewMsgFrom(
		[]byte(m.Topic),
		[]byte(m.ReplyTo),
		[]byte(m.NodeID),
		[]byte(m.RequestID),
		[]byte(m.ReqType),
		[]byte(m.RepType),
		m.Payload,
	)
}

// DecodeServiceRequest parses a seven-frame service request.
func DecodeServiceRequest(msg zmq4.Msg) (ServiceRequest, error) {
	if len(msg.Frames) != 7 {
		return ServiceRequest{}, fmt.Errorf("malformed service request: want 7 frames, got %d", len(msg.Frames))
	}
	return ServiceRequest{
		Topic:     string(msg.Frames[0]),
		ReplyTo:   string(msg.Frames[1]),
		NodeID:    types.NodeID(msg.Frames[2]),
		RequestID: types.RequestID(msg.Frames[3]),
		ReqType:   string(msg.Frames[4]),
		RepType:   string(msg.Frames[5]),
		Payload:   msg.Frames[6],
	}, nil
}

// ServiceResponse is the seven-frame envelope carrying a service reply:
// [dest][topic][node UUID][request UUID][rep-type]
// [result-payload or empty][status].
type ServiceResponse struct {
	Dest      string
	Topic     string
	NodeID    types.NodeID
	RequestID types.RequestID
	RepType   string
	Payload   []byte
	Status    types.ResponseStatus
}

// Encode frames a ServiceResponse for the wire.
func (m ServiceResponse) Encode() zmq4.Msg {
	return zmq4.NewMsgFrom(
		[]byte(m.Dest),
		[]byte(m.Topic),
		[]byte(m.NodeID),
		[]byte(m.RequestID),
		[]byte(m.RepType),
		m.Payload,
		[]byte(m.Status),
	)
}

// DecodeServiceResponse parses a seven-frame service response.
func DecodeServiceResponse(msg zmq4.Msg) (ServiceResponse, error) {
	if len(msg.Frames) != 7 {
		return ServiceResponse{}, fmt.Errorf("malformed service response: want 7 frames, got %d", len(msg.Frames))
	}
	return ServiceResponse{
		Dest:      string(msg.Frames[0]),
		Topic:     string(msg.Frames[1]),
		NodeID:    types.NodeID(msg.Frames[2]),
		RequestID: types.RequestID(msg.Frames[3]),
		RepType:   string(msg.Frames[4]),
		Payload:   msg.Frames[5],
		Status:    types.ResponseStatus(msg.Frames[6]),
	}, nil
}
