package shared

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"
	"github.com/meshwire/transport/internal/core/socket"
)

// memFabric is the shared in-memory network two or more memSocketLayer
// instances dial into, keyed by the address strings each layer hands
// out — exactly as real PUSH/PULL addresses would be, just without a
// socket underneath. Used so S1–S6 and the universal properties run
// without touching a real network (SPEC_FULL.md §8).
type memFabric struct {
	mu      sync.Mutex
	pull    map[string]chan zmq4.Msg // address -> target PULL-like inbox
	subs    map[string][]chan zmq4.Msg
	addrSeq atomic.Int64
}

func newMemFabric() *memFabric {
	return &memFabric{
		pull: make(map[string]chan zmq4.Msg),
		subs: make(map[string][]chan zmq4.Msg),
	}
}

func (f *memFabric) nextAddr(kind string) string {
	return fmt.Sprintf("mem://%s/%d", kind, f.addrSeq.Add(1))
}

func (f *memFabric) registerPull(addr string, ch chan zmq4.Msg) {
	f.mu.Lock()
	f.pull[addr] = ch
	f.mu.Unlock()
}

func (f *memFabric) sendTo(addr string, msg zmq4.Msg) error {
	f.mu.Lock()
	ch, ok := f.pull[addr]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("memFabric: no such address %q", addr)
	}
	ch <- msg
	return nil
}

func (f *memFabric) subscribe(pubAddr string, ch chan zmq4.Msg) {
	f.mu.Lock()
	f.subs[pubAddr] = append(f.subs[pubAddr], ch)
	f.mu.Unlock()
}

func (f *memFabric) publish(pubAddr string, msg zmq4.Msg) {
	f.mu.Lock()
	subs := append([]chan zmq4.Msg{}, f.subs[pubAddr]...)
	f.mu.Unlock()
	for _, ch := range subs {
		ch <- msg
	}
}

// memSocketLayer implements shared.SocketLayer entirely with buffered
// channels routed through a shared memFabric.
type memSocketLayer struct {
	fabric *memFabric

	pubAddr      string
	controlAddr  string
	replierAddr  string
	responseAddr string

	subCh      chan zmq4.Msg
	controlCh  chan zmq4.Msg
	replierCh  chan zmq4.Msg
	responseCh chan zmq4.Msg

	closed chan struct{}
	once   sync.Once
}

func newMemSocketLayer(fabric *memFabric) *memSocketLayer {
	l := &memSocketLayer{
		fabric:       fabric,
		pubAddr:      fabric.nextAddr("pub"),
		controlAddr:  fabric.nextAddr("control"),
		replierAddr:  fabric.nextAddr("replier"),
		responseAddr: fabric.nextAddr("response"),
		subCh:        make(chan zmq4.Msg, 64),
		controlCh:    make(chan zmq4.Msg, 64),
		replierCh:    make(chan zmq4.Msg, 64),
		responseCh:   make(chan zmq4.Msg, 64),
		closed:       make(chan struct{}),
	}
	fabric.registerPull(l.controlAddr, l.controlCh)
	fabric.registerPull(l.replierAddr, l.replierCh)
	fabric.registerPull(l.responseAddr, l.responseCh)
	return l
}

func (l *memSocketLayer) PubAddr() string             { return l.pubAddr }
func (l *memSocketLayer) ControlAddr() string         { return l.controlAddr }
func (l *memSocketLayer) ReplierAddr() string         { return l.replierAddr }
func (l *memSocketLayer) ResponseReceiverAddr() string { return l.responseAddr }

func (l *memSocketLayer) SubscribeTo(dataAddr string) error {
	l.fabric.subscribe(dataAddr, l.subCh)
	return nil
}

func (l *memSocketLayer) PublishTopic(m socket.TopicMessage) error {
	l.fabric.publish(l.pubAddr, m.Encode())
	return nil
}

func (l *memSocketLayer) SendControl(addr string, m socket.ControlMessage) error {
	return l.fabric.sendTo(addr, m.Encode())
}

func (l *memSocketLayer) SendRequest(replierAddr string, m socket.ServiceRequest) error {
	return l.fabric.sendTo(replierAddr, m.Encode())
}

func (l *memSocketLayer) SendResponse(replyTo string, m socket.ServiceResponse) error {
	return l.fabric.sendTo(replyTo, m.Encode())
}

func (l *memSocketLayer) DropControlOut(addr string)   {}
func (l *memSocketLayer) DropRequesterOut(addr string) {}

func (l *memSocketLayer) RecvSub() (zmq4.Msg, error)        { return l.recv(l.subCh) }
func (l *memSocketLayer) RecvControl() (zmq4.Msg, error)    { return l.recv(l.controlCh) }
func (l *memSocketLayer) RecvReplierIn() (zmq4.Msg, error)  { return l.recv(l.replierCh) }
func (l *memSocketLayer) RecvResponseIn() (zmq4.Msg, error) { return l.recv(l.responseCh) }

func (l *memSocketLayer) recv(ch chan zmq4.Msg) (zmq4.Msg, error) {
	select {
	case msg := <-ch:
		return msg, nil
	case <-l.closed:
		return zmq4.Msg{}, fmt.Errorf("memSocketLayer: closed")
	}
}

func (l *memSocketLayer) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
