//go:build !short

package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/meshwire/transport/pkg/interfaces"
	"github.com/meshwire/transport/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests join a real multicast group on loopback. They run by
// default and are excluded by building with `-tags short`, since
// multicast is not guaranteed to work in every sandboxed network
// namespace.

func testConfig(msgPort, srvPort int) Config {
	cfg := DefaultConfig()
	cfg.MsgPort = msgPort
	cfg.SrvPort = srvPort
	cfg.HeartbeatInterval = 200 * time.Millisecond
	cfg.PeerTimeout = time.Second
	return cfg
}

func TestDiscoverer_AdvertiseReachesPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(21317, 21318)

	a, err := New(ctx, cfg, types.NewProcessID(), "")
	require.NoError(t, err)
	defer a.Close()

	b, err := New(ctx, cfg, types.NewProcessID(), "")
	require.NoError(t, err)
	defer b.Close()

	got := make(chan types.MessagePublisher, 1)
	b.SetConnectionCallbacks(interfaces.ConnectionCallbacks{
		OnNewConnection: func(pub types.MessagePublisher) { got <- pub },
	})

	pub := types.MessagePublisher{
		Topic: "/chat", MsgType: "text",
		ProcessID: a.processID, NodeID: types.NewNodeID(),
		DataAddress: "tcp://127.0.0.1:5000", ControlAddress: "tcp://127.0.0.1:5001",
	}
	require.True(t, a.Advertise(pub))

	select {
	case seen := <-got:
		assert.Equal(t, pub, seen)
	case <-time.After(3 * time.Second):
		t.Fatal("advertisement never reached the peer")
	}
}

func TestDiscoverer_LateSubscriberReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(21319, 21320)

	a, err := New(ctx, cfg, types.NewProcessID(), "")
	require.NoError(t, err)
	defer a.Close()

	pub := types.MessagePublisher{
		Topic: "/chat", MsgType: "text",
		ProcessID: a.processID, NodeID: types.NewNodeID(),
		DataAddress: "tcp://127.0.0.1:5002", ControlAddress: "tcp://127.0.0.1:5003",
	}
	require.True(t, a.Advertise(pub))

	b, err := New(ctx, cfg, types.NewProcessID(), "")
	require.NoError(t, err)
	defer b.Close()

	got := make(chan types.MessagePublisher, 1)
	b.SetConnectionCallbacks(interfaces.ConnectionCallbacks{
		OnNewConnection: func(p types.MessagePublisher) { got <- p },
	})

	require.True(t, b.Discover("/chat"))

	select {
	case seen := <-got:
		assert.Equal(t, pub, seen)
	case <-time.After(3 * time.Second):
		t.Fatal("late subscriber never received a replayed advertisement")
	}
}

func TestDiscoverer_CrossPartitionIsolation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(21321, 21322)

	a, err := New(ctx, cfg, types.NewProcessID(), "partition-a")
	require.NoError(t, err)
	defer a.Close()

	b, err := New(ctx, cfg, types.NewProcessID(), "partition-b")
	require.NoError(t, err)
	defer b.Close()

	got := make(chan types.MessagePublisher, 1)
	b.SetConnectionCallbacks(interfaces.ConnectionCallbacks{
		OnNewConnection: func(p types.MessagePublisher) { got <- p },
	})

	pub := types.MessagePublisher{
		Topic: "/chat", MsgType: "text",
		ProcessID: a.processID, NodeID: types.NewNodeID(),
		DataAddress: "tcp://127.0.0.1:5004", ControlAddress: "tcp://127.0.0.1:5005",
	}
	require.True(t, a.Advertise(pub))

	select {
	case <-got:
		t.Fatal("advertisement from a different partition must never be delivered")
	case <-time.After(500 * time.Millisecond):
	}
}
