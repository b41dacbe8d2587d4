package paramregistry

import (
	"encoding/binary"
	"fmt"
)

// opKind identifies the requested operation. Framed the same
// length-prefixed way internal/discovery frames its beacon packets,
// just carrying a registry operation instead of a discovery event.
type opKind byte

const (
	opList opKind = iota + 1
	opGet
	opSet
)

const (
	// ReqType and RepType are the service's wire type names, exchanged
	// on every AdvertiseService/Request call so a mismatched client
	// never silently talks to the wrong replier.
	ReqType = "paramregistry.Request"
	RepType = "paramregistry.Response"
)

// request is one client call: list takes no argument, get takes a
// name, set takes a full Param.
type request struct {
	op   opKind
	name string
	typ  string
	val  string
}

func (r request) encode() []byte {
	buf := []byte{byte(r.op)}
	switch r.op {
	case opList:
	case opGet:
		buf = appendString(buf, r.name)
	case opSet:
		buf = appendString(buf, r.name)
		buf = appendString(buf, r.typ)
		buf = appendString(buf, r.val)
	}
	return buf
}

func decodeRequest(raw []byte) (request, error) {
	if len(raw) < 1 {
		return request{}, fmt.Errorf("paramregistry: empty request")
	}
	r := request{op: opKind(raw[0])}
	rest := raw[1:]
	switch r.op {
	case opList:
		return r, nil
	case opGet:
		name, _, err := readString(rest)
		if err != nil {
			return request{}, err
		}
		r.name = name
		return r, nil
	case opSet:
		name, rest, err := readString(rest)
		if err != nil {
			return request{}, err
		}
		typ, rest, err := readString(rest)
		if err != nil {
			return request{}, err
		}
		val, _, err := readString(rest)
		if err != nil {
			return request{}, err
		}
		r.name, r.typ, r.val = name, typ, val
		return r, nil
	default:
		return request{}, fmt.Errorf("paramregistry: unknown request op %d", r.op)
	}
}

// response carries zero or more params: list returns every param, get
// returns at most one (none when the name is unknown), and set returns
// the stored param. Failures travel as the replier's own failure status
// (spec §7, no-replier / replier-error), never inside a response.
type response struct {
	params []Param
}

func (r response) encode() []byte {
	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(r.params)))
	buf := append([]byte{}, count[:]...)
	for _, p := range r.params {
		buf = appendString(buf, p.Name)
		buf = appendString(buf, p.Type)
		buf = appendString(buf, p.Value)
	}
	return buf
}

func decodeResponse(raw []byte) (response, error) {
	if len(raw) < 2 {
		return response{}, fmt.Errorf("paramregistry: short response")
	}
	n := binary.BigEndian.Uint16(raw)
	rest := raw[2:]
	params := make([]Param, 0, n)
	for i := uint16(0); i < n; i++ {
		name, r1, err := readString(rest)
		if err != nil {
			return response{}, err
		}
		typ, r2, err := readString(r1)
		if err != nil {
			return response{}, err
		}
		val, r3, err := readString(r2)
		if err != nil {
			return response{}, err
		}
		params = append(params, Param{Name: name, Type: typ, Value: val})
		rest = r3
	}
	return response{params: params}, nil
}

func appendString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, fmt.Errorf("paramregistry: truncated length prefix")
	}
	n := binary.BigEndian.Uint16(buf)
	buf = buf[2:]
	if int(n) > len(buf) {
		return "", nil, fmt.Errorf("paramregistry: truncated field (want %d, have %d)", n, len(buf))
	}
	return string(buf[:n]), buf[n:], nil
}
