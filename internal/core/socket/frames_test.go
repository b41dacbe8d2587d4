package socket

import (
	"testing"

	"github.com/go-zeromq/zmq4"
	"github.com/meshwire/transport/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMessage_RoundTrip(t *testing.T) {
	want := TopicMessage{
		Topic:      "/chat",
		SenderAddr: "tcp://10.0.0.1:5555",
		Payload:    []byte("hello"),
		MsgType:    "chat.msgs.StringMsg",
	}
	got, err := DecodeTopicMessage(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeTopicMessage_WrongArity(t *testing.T) {
	_, err := DecodeTopicMessage(zmq4.NewMsgFrom([]byte("/chat"), []byte("sender")))
	assert.Error(t, err)
}

func TestControlMessage_RoundTrip(t *testing.T) {
	want := ControlMessage{
		Topic:     "/chat",
		ProcessID: types.ProcessID("p1"),
		NodeID:    types.NodeID("n1"),
		MsgType:   "chat.msgs.StringMsg",
		Op:        types.ControlSubscribe,
	}
	got, err := DecodeControlMessage(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestServiceRequest_RoundTrip(t *testing.T) {
	want := ServiceRequest{
		Topic:     "/echo",
		ReplyTo:   "tcp://10.0.0.1:6000",
		NodeID:    types.NodeID("n1"),
		RequestID: types.NewRequestID(),
		ReqType:   "echo.Req",
		RepType:   "echo.Rep",
		Payload:   []byte("ping"),
	}
	got, err := DecodeServiceRequest(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestServiceResponse_RoundTrip(t *testing.T) {
	want := ServiceResponse{
		Dest:      "tcp://10.0.0.1:6001",
		Topic:     "/echo",
		NodeID:    types.NodeID("n1"),
		RequestID: types.NewRequestID(),
		RepType:   "echo.Rep",
		Payload:   []byte("pong"),
		Status:    types.StatusOK,
	}
	got, err := DecodeServiceResponse(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestServiceResponse_NoReplierHasEmptyPayload(t *testing.T) {
	want := ServiceResponse{
		Dest:      "tcp://10.0.0.1:6001",
		Topic:     "/echo",
		NodeID:    types.NodeID("n1"),
		RequestID: types.NewRequestID(),
		RepType:   types.AnyType,
		Payload:   nil,
		Status:    types.StatusNoReplier,
	}
	got, err := DecodeServiceResponse(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, types.StatusNoReplier, got.Status)
	assert.Empty(t, got.Payload)
}
