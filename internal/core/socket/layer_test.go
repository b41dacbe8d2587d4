//go:build !short

package socket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLayer_PubSub exercises real TCP sockets bound to loopback. This
// file is left out of builds with `-tags short`, since it needs
// functioning loopback ZeroMQ sockets rather than mocks.
func TestLayer_PubSub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSide, err := New(ctx, "127.0.0.1")
	require.NoError(t, err)
	defer pubSide.Close()

	subSide, err := New(ctx, "127.0.0.1")
	require.NoError(t, err)
	defer subSide.Close()

	require.NoError(t, subSide.SubscribeTo(pubSide.PubAddr()))

	// ZeroMQ's subscribe handshake is asynchronous; give it a moment to
	// settle before publishing, or the first message can be lost.
	time.Sleep(100 * time.Millisecond)

	want := TopicMessage{
		Topic:      "/chat",
		SenderAddr: pubSide.PubAddr(),
		Payload:    []byte("hello"),
		MsgType:    "chat.msgs.StringMsg",
	}

	done := make(chan error, 1)
	go func() {
		msg, err := subSide.RecvSub()
		if err != nil {
			done <- err
			return
		}
		got, err := DecodeTopicMessage(msg)
		if err != nil {
			done <- err
			return
		}
		if got.Payload == nil || string(got.Payload) != "hello" {
			t.Errorf("unexpected payload: %q", got.Payload)
		}
		done <- nil
	}()

	require.NoError(t, pubSide.PublishTopic(want))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscriber to receive message")
	}
}

func TestLayer_ControlChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, "127.0.0.1")
	require.NoError(t, err)
	defer a.Close()

	b, err := New(ctx, "127.0.0.1")
	require.NoError(t, err)
	defer b.Close()

	want := ControlMessage{
		Topic:     "/chat",
		ProcessID: "p1",
		NodeID:    "n1",
		MsgType:   "chat.msgs.StringMsg",
		Op:        "subscribe",
	}

	done := make(chan error, 1)
	go func() {
		msg, err := b.RecvControl()
		if err != nil {
			done <- err
			return
		}
		got, err := DecodeControlMessage(msg)
		if err != nil {
			done <- err
			return
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
		done <- nil
	}()

	require.NoError(t, a.SendControl(b.ControlAddr(), want))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for control message")
	}
}
