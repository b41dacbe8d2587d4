package discovery

import (
	"testing"

	"github.com/meshwire/transport/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacket_AdvertiseMsgRoundTrip(t *testing.T) {
	p := packet{
		op:        opAdvertiseMsg,
		partition: "sim",
		topic:     "/chat",
		processID: types.NewProcessID(),
		nodeID:    types.NewNodeID(),
		msgType:   "text",
		addr1:     "tcp://10.0.0.1:4000",
		addr2:     "tcp://10.0.0.1:4001",
	}
	got, err := decodePacket(p.encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPacket_AdvertiseSrvRoundTrip(t *testing.T) {
	p := packet{
		op:        opAdvertiseSrv,
		partition: "",
		topic:     "/echo",
		processID: types.NewProcessID(),
		nodeID:    types.NewNodeID(),
		msgType:   "req",
		repType:   "rep",
		addr1:     "tcp://10.0.0.1:4002",
		addr2:     "tcp://10.0.0.1:4003",
	}
	got, err := decodePacket(p.encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPacket_SubscribeRoundTrip(t *testing.T) {
	p := packet{op: opSubscribe, partition: "sim", topic: "/chat", processID: types.NewProcessID(), nodeID: types.NewNodeID()}
	got, err := decodePacket(p.encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPacket_HeartbeatRoundTrip(t *testing.T) {
	p := packet{op: opHeartbeat, partition: "sim", processID: types.NewProcessID()}
	got, err := decodePacket(p.encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodePacket_RejectsShort(t *testing.T) {
	_, err := decodePacket([]byte{1})
	assert.Error(t, err)
}

func TestDecodePacket_RejectsUnknownVersion(t *testing.T) {
	_, err := decodePacket([]byte{9, byte(opHeartbeat)})
	assert.Error(t, err)
}

func TestDecodePacket_RejectsTruncatedField(t *testing.T) {
	raw := []byte{wireVersion, byte(opHeartbeat), 0, 5, 'h', 'i'}
	_, err := decodePacket(raw)
	assert.Error(t, err)
}
