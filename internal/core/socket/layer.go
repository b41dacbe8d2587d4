package socket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/meshwire/transport/internal/util/logger"
)

// PollTimeout bounds how long the reception loop waits on an idle
// socket set before re-checking its shutdown flag (spec §5, originally
// a 250ms poll interval on a single OS-level poller; this binding reads
// each inbound socket on its own goroutine instead, so the timeout only
// governs the dispatcher's own idle tick).
const PollTimeout = 250 * time.Millisecond

var log = logger.Logger("socket")

// Layer owns every ZeroMQ-style socket the core multiplexes (spec
// §4.5): one bound PUB for outgoing topic data, one SUB dialed out to
// every known publisher, one bound PULL for control announcements with
// a PUSH dialed per remote subscriber's control address, one bound PULL
// for service requests with a PUSH dialed per remote requester's
// reply-to address, one PUSH dialed per remote replier for outgoing
// service requests, and one bound PULL for service responses.
type Layer struct {
	ctx context.Context

	pub          zmq4.Socket
	sub          zmq4.Socket
	controlIn    zmq4.Socket
	replierIn    zmq4.Socket
	responseIn   zmq4.Socket

	mu           sync.Mutex
	controlOut   map[string]zmq4.Socket
	replierOut   map[string]zmq4.Socket
	requesterOut map[string]zmq4.Socket
	subscribed   map[string]struct{} // data addresses already dialed on sub
}

// New binds the pub socket and the three inbound PULL sockets on host,
// each on an OS-assigned ephemeral port, creates the sub socket, and
// prepares the outbound socket pools. Call Close to
// release every socket.
func New(ctx context.Context, host string) (*Layer, error) {
	l := &Layer{
		ctx:          ctx,
		controlOut:   make(map[string]zmq4.Socket),
		replierOut:   make(map[string]zmq4.Socket),
		requesterOut: make(map[string]zmq4.Socket),
		subscribed:   make(map[string]struct{}),
	}

	var err error
	if l.pub, err = bind(ctx, zmq4.NewPub, host); err != nil {
		return nil, fmt.Errorf("bind pub: %w", err)
	}
	if l.controlIn, err = bind(ctx, zmq4.NewPull, host); err != nil {
		l.Close()
		return nil, fmt.Errorf("bind control-in: %w", err)
	}
	if l.replierIn, err = bind(ctx, zmq4.NewPull, host); err != nil {
		l.Close()
		return nil, fmt.Errorf("bind replier-in: %w", err)
	}
	if l.responseIn, err = bind(ctx, zmq4.NewPull, host); err != nil {
		l.Close()
		return nil, fmt.Errorf("bind response-in: %w", err)
	}

	l.sub = zmq4.NewSub(ctx)
	if err := l.sub.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		l.Close()
		return nil, fmt.Errorf("subscribe sub to all topics: %w", err)
	}

	return l, nil
}

func bind(ctx context.Context, newSocket func(context.Context, ...zmq4.Option) zmq4.Socket, host string) (zmq4.Socket, error) {
	sock := newSocket(ctx)
	if err := sock.Listen(fmt.Sprintf("tcp://%s:0", host)); err != nil {
		return nil, err
	}
	return sock, nil
}

// PubAddr is the address remote subscribers dial to receive this
// process's topic data.
func (l *Layer) PubAddr() string { return "tcp://" + l.pub.Addr().String() }

// ControlAddr is the address remote publishers dial to learn about
// this process's subscribers.
func (l *Layer) ControlAddr() string { return "tcp://" + l.controlIn.Addr().String() }

// ReplierAddr is the address remote requesters dial to send this
// process's advertised services a request.
func (l *Layer) ReplierAddr() string { return "tcp://" + l.replierIn.Addr().String() }

// ResponseReceiverAddr is the address remote repliers dial to deliver a
// response to a request this process issued.
func (l *Layer) ResponseReceiverAddr() string { return "tcp://" + l.responseIn.Addr().String() }

// SubscribeTo dials sub to a remote publisher's data address, if not
// already connected. Idempotent.
func (l *Layer) SubscribeTo(dataAddr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subscribed[dataAddr]; ok {
		return nil
	}
	if err := l.sub.Dial(dataAddr); err != nil {
		return fmt.Errorf("dial sub to %s: %w", dataAddr, err)
	}
	l.subscribed[dataAddr] = struct{}{}
	return nil
}

// PublishTopic broadcasts a topic message to every connected
// subscriber.
func (l *Layer) PublishTopic(m TopicMessage) error {
	return l.pub.Send(m.Encode())
}

// SendControl dials (if needed) and sends a control announcement to a
// remote publisher's control address.
func (l *Layer) SendControl(addr string, m ControlMessage) error {
	sock, err := l.dialPush(&l.controlOut, addr)
	if err != nil {
		return fmt.Errorf("dial control-out to %s: %w", addr, err)
	}
	return sock.Send(m.Encode())
}

// SendRequest dials (if needed) and sends a service request to a
// remote replier.
func (l *Layer) SendRequest(replierAddr string, m ServiceRequest) error {
	sock, err := l.dialPush(&l.requesterOut, replierAddr)
	if err != nil {
		return fmt.Errorf("dial requester-out to %s: %w", replierAddr, err)
	}
	return sock.Send(m.Encode())
}

// SendResponse dials (if needed) and sends a service response back to
// the requester that issued the call.
func (l *Layer) SendResponse(replyTo string, m ServiceResponse) error {
	sock, err := l.dialPush(&l.replierOut, replyTo)
	if err != nil {
		return fmt.Errorf("dial replier-out to %s: %w", replyTo, err)
	}
	return sock.Send(m.Encode())
}

func (l *Layer) dialPush(pool *map[string]zmq4.Socket, addr string) (zmq4.Socket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sock, ok := (*pool)[addr]; ok {
		return sock, nil
	}
	sock := zmq4.NewPush(l.ctx)
	if err := sock.Dial(addr); err != nil {
		return nil, err
	}
	(*pool)[addr] = sock
	return sock, nil
}

// DropControlOut closes and forgets the PUSH socket dialed to addr, if
// any. Called when a remote publisher disconnects.
func (l *Layer) DropControlOut(addr string) {
	l.dropPush(&l.controlOut, addr)
}

// DropRequesterOut closes and forgets the PUSH socket dialed to addr,
// if any. Called when a remote replier disconnects.
func (l *Layer) DropRequesterOut(addr string) {
	l.dropPush(&l.requesterOut, addr)
}

func (l *Layer) dropPush(pool *map[string]zmq4.Socket, addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sock, ok := (*pool)[addr]
	if !ok {
		return
	}
	if err := sock.Close(); err != nil {
		log.Warn("close outbound socket", "addr", addr, "err", err)
	}
	delete(*pool, addr)
}

// RecvSub blocks until a topic message arrives on sub.
func (l *Layer) RecvSub() (zmq4.Msg, error) { return l.sub.Recv() }

// RecvControl blocks until a control announcement arrives.
func (l *Layer) RecvControl() (zmq4.Msg, error) { return l.controlIn.Recv() }

// RecvReplierIn blocks until a service request arrives.
func (l *Layer) RecvReplierIn() (zmq4.Msg, error) { return l.replierIn.Recv() }

// RecvResponseIn blocks until a service response arrives.
func (l *Layer) RecvResponseIn() (zmq4.Msg, error) { return l.responseIn.Recv() }

// Close releases every socket the layer owns. Safe to call more than
// once; errors from individual sockets are logged, not returned, since
// shutdown must make a best effort regardless of partial failures.
func (l *Layer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	closeIfSet := func(sock zmq4.Socket) {
		if sock == nil {
			return
		}
		if err := sock.Close(); err != nil {
			log.Warn("close socket", "err", err)
		}
	}
	closeIfSet(l.pub)
	closeIfSet(l.sub)
	closeIfSet(l.controlIn)
	closeIfSet(l.replierIn)
	closeIfSet(l.responseIn)
	for _, pool := range []map[string]zmq4.Socket{l.controlOut, l.replierOut, l.requesterOut} {
		for addr, sock := range pool {
			if err := sock.Close(); err != nil {
				log.Warn("close outbound socket", "addr", addr, "err", err)
			}
		}
	}
	return nil
}
