// Package discovery is the default implementation of C4's Discoverer
// collaborator (spec.md §4.4, §6): a UDP multicast beacon, independent
// from the rest of the transport core and reachable only through the
// pkg/interfaces.Discoverer surface — exactly the boundary the core
// itself depends on.
package discovery

import (
	"encoding/binary"
	"fmt"

	"github.com/meshwire/transport/pkg/types"
)

// opcode identifies the kind of packet carried on a beacon socket.
type opcode byte

const (
	opAdvertiseMsg opcode = iota + 1
	opUnadvertiseMsg
	opAdvertiseSrv
	opUnadvertiseSrv
	opSubscribe
	opHeartbeat
	opBye
)

const wireVersion byte = 1

// packet is the single-datagram envelope every beacon message is framed
// as. Not every field is meaningful for every opcode; see encode/decode
// below for the per-opcode field list.
type packet struct {
	op        opcode
	partition string
	topic     string
	processID types.ProcessID
	nodeID    types.NodeID
	msgType   string
	repType   string
	addr1     string
	addr2     string
}

// encode serializes p as [version][opcode][len-prefixed strings...].
// Strings are framed the same way the socket package frames zmq
// payloads, just flattened into one buffer since UDP carries a single
// datagram rather than a multi-frame message.
func (p packet) encode() []byte {
	buf := []byte{wireVersion, byte(p.op)}
	for _, s := range p.fields() {
		buf = appendString(buf, s)
	}
	return buf
}

// fields lists p's string fields in wire order for the packet's opcode.
func (p packet) fields() []string {
	switch p.op {
	case opAdvertiseMsg, opUnadvertiseMsg:
		return []string{p.partition, p.topic, string(p.processID), string(p.nodeID), p.msgType, p.addr1, p.addr2}
	case opAdvertiseSrv, opUnadvertiseSrv:
		return []string{p.partition, p.topic, string(p.processID), string(p.nodeID), p.msgType, p.repType, p.addr1, p.addr2}
	case opSubscribe:
		return []string{p.partition, p.topic, string(p.processID), string(p.nodeID)}
	case opHeartbeat, opBye:
		return []string{p.partition, string(p.processID)}
	default:
		return nil
	}
}

func appendString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

// decodePacket parses a datagram built by encode. Malformed datagrams
// are dropped, never treated as fatal (spec §7, malformed-frame).
func decodePacket(raw []byte) (packet, error) {
	if len(raw) < 2 {
		return packet{}, fmt.Errorf("discovery: short packet (%d bytes)", len(raw))
	}
	if raw[0] != wireVersion {
		return packet{}, fmt.Errorf("discovery: unknown wire version %d", raw[0])
	}
	p := packet{op: opcode(raw[1])}
	rest := raw[2:]

	var fields []string
	for len(rest) > 0 {
		if len(rest) < 2 {
			return packet{}, fmt.Errorf("discovery: truncated length prefix")
		}
		n := binary.BigEndian.Uint16(rest)
		rest = rest[2:]
		if int(n) > len(rest) {
			return packet{}, fmt.Errorf("discovery: truncated field (want %d, have %d)", n, len(rest))
		}
		fields = append(fields, string(rest[:n]))
		rest = rest[n:]
	}

	switch p.op {
	case opAdvertiseMsg, opUnadvertiseMsg:
		if len(fields) != 7 {
			return packet{}, fmt.Errorf("discovery: malformed advertise-msg packet: %d fields", len(fields))
		}
		p.partition, p.topic, p.processID, p.nodeID, p.msgType, p.addr1, p.addr2 =
			fields[0], fields[1], types.ProcessID(fields[2]), types.NodeID(fields[3]), fields[4], fields[5], fields[6]
	case opAdvertiseSrv, opUnadvertiseSrv:
		if len(fields) != 8 {
			return packet{}, fmt.Errorf("discovery: malformed advertise-srv packet: %d fields", len(fields))
		}
		p.partition, p.topic, p.processID, p.nodeID, p.msgType, p.repType, p.addr1, p.addr2 =
			fields[0], fields[1], types.ProcessID(fields[2]), types.NodeID(fields[3]), fields[4], fields[5], fields[6], fields[7]
	case opSubscribe:
		if len(fields) != 4 {
			return packet{}, fmt.Errorf("discovery: malformed subscribe packet: %d fields", len(fields))
		}
		p.partition, p.topic, p.processID, p.nodeID = fields[0], fields[1], types.ProcessID(fields[2]), types.NodeID(fields[3])
	case opHeartbeat, opBye:
		if len(fields) != 2 {
			return packet{}, fmt.Errorf("discovery: malformed heartbeat/bye packet: %d fields", len(fields))
		}
		p.partition, p.processID = fields[0], types.ProcessID(fields[1])
	default:
		return packet{}, fmt.Errorf("discovery: unknown opcode %d", p.op)
	}
	return p, nil
}
