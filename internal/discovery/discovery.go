package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/meshwire/transport/pkg/interfaces"
	"github.com/meshwire/transport/pkg/types"
	"golang.org/x/sync/errgroup"
)

type remotePub struct {
	pub      types.MessagePublisher
	lastSeen time.Time
}

type remoteSrv struct {
	pub      types.ServicePublisher
	lastSeen time.Time
}

// Discoverer is the UDP multicast beacon implementing
// pkg/interfaces.Discoverer, the default C4 collaborator spec.md treats
// as external to the core (spec §1, §4.4). Every advertised publisher
// or replier is periodically re-broadcast so a peer that joins after
// the original advertisement still converges, and a peer that stops
// heartbeating is pruned and reported as disconnected.
type Discoverer struct {
	cfg       Config
	processID types.ProcessID
	partition string

	msgCh *channel
	srvCh *channel

	cbMu sync.RWMutex
	cbs  interfaces.ConnectionCallbacks

	mu         sync.Mutex
	localPubs  map[string]types.MessagePublisher
	localSrvs  map[string]types.ServicePublisher
	remotePubs map[string]remotePub
	remoteSrvs map[string]remoteSrv

	g      *errgroup.Group
	cancel context.CancelFunc
}

// New binds both multicast channels and starts the listener, heartbeat,
// and peer-expiry loops (spec §4.4). processID identifies this process
// in every packet it sends so its own broadcasts can be ignored on
// receipt (multicast typically loops back to the sender).
func New(ctx context.Context, cfg Config, processID types.ProcessID, partition string) (*Discoverer, error) {
	msgCh, err := newChannel(cfg.Group, cfg.MsgPort)
	if err != nil {
		return nil, err
	}
	srvCh, err := newChannel(cfg.Group, cfg.SrvPort)
	if err != nil {
		msgCh.close()
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)

	d := &Discoverer{
		cfg:        cfg,
		processID:  processID,
		partition:  partition,
		msgCh:      msgCh,
		srvCh:      srvCh,
		localPubs:  make(map[string]types.MessagePublisher),
		localSrvs:  make(map[string]types.ServicePublisher),
		remotePubs: make(map[string]remotePub),
		remoteSrvs: make(map[string]remoteSrv),
		g:          g,
		cancel:     cancel,
	}

	g.Go(func() error { return msgCh.listen(gctx, d.handleMsgPacket) })
	g.Go(func() error { return srvCh.listen(gctx, d.handleSrvPacket) })
	g.Go(func() error { d.heartbeatLoop(gctx); return nil })
	g.Go(func() error { d.expiryLoop(gctx); return nil })

	return d, nil
}

func (d *Discoverer) SetConnectionCallbacks(c interfaces.ConnectionCallbacks) {
	d.cbMu.Lock()
	d.cbs = c
	d.cbMu.Unlock()
}

func pubKey(topic string, proc types.ProcessID, node types.NodeID) string {
	return topic + "\x00" + string(proc) + "\x00" + string(node)
}

func (d *Discoverer) Advertise(pub types.MessagePublisher) bool {
	d.mu.Lock()
	d.localPubs[pubKey(pub.Topic, pub.ProcessID, pub.NodeID)] = pub
	d.mu.Unlock()
	return d.msgCh.send(d.advertisePacket(pub)) == nil
}

func (d *Discoverer) Unadvertise(topic string, proc types.ProcessID, node types.NodeID) bool {
	d.mu.Lock()
	pub, ok := d.localPubs[pubKey(topic, proc, node)]
	delete(d.localPubs, pubKey(topic, proc, node))
	d.mu.Unlock()
	if !ok {
		return false
	}
	p := d.advertisePacket(pub)
	p.op = opUnadvertiseMsg
	return d.msgCh.send(p) == nil
}

func (d *Discoverer) Discover(topic string) bool {
	return d.msgCh.send(packet{
		op:        opSubscribe,
		partition: d.partition,
		topic:     topic,
		processID: d.processID,
	}) == nil
}

func (d *Discoverer) AdvertiseService(pub types.ServicePublisher) bool {
	d.mu.Lock()
	d.localSrvs[pubKey(pub.Topic, pub.ProcessID, pub.NodeID)] = pub
	d.mu.Unlock()
	return d.srvCh.send(d.advertiseSrvPacket(pub)) == nil
}

func (d *Discoverer) UnadvertiseService(topic string, proc types.ProcessID, node types.NodeID) bool {
	d.mu.Lock()
	pub, ok := d.localSrvs[pubKey(topic, proc, node)]
	delete(d.localSrvs, pubKey(topic, proc, node))
	d.mu.Unlock()
	if !ok {
		return false
	}
	p := d.advertiseSrvPacket(pub)
	p.op = opUnadvertiseSrv
	return d.srvCh.send(p) == nil
}

func (d *Discoverer) DiscoverService(topic string) bool {
	return d.srvCh.send(packet{
		op:        opSubscribe,
		partition: d.partition,
		topic:     topic,
		processID: d.processID,
	}) == nil
}

// Close stops every beacon goroutine and releases both sockets.
func (d *Discoverer) Close() error {
	d.cancel()
	_ = d.g.Wait()
	return nil
}

func (d *Discoverer) advertisePacket(pub types.MessagePublisher) packet {
	return packet{
		op:        opAdvertiseMsg,
		partition: d.partition,
		topic:     pub.Topic,
		processID: pub.ProcessID,
		nodeID:    pub.NodeID,
		msgType:   pub.MsgType,
		addr1:     pub.DataAddress,
		addr2:     pub.ControlAddress,
	}
}

func (d *Discoverer) advertiseSrvPacket(pub types.ServicePublisher) packet {
	return packet{
		op:        opAdvertiseSrv,
		partition: d.partition,
		topic:     pub.Topic,
		processID: pub.ProcessID,
		nodeID:    pub.NodeID,
		msgType:   pub.ReqType,
		repType:   pub.RepType,
		addr1:     pub.RequesterAddress,
		addr2:     pub.ReplierAddress,
	}
}

func (d *Discoverer) handleMsgPacket(p packet, src *net.UDPAddr) {
	if p.processID == d.processID || p.partition != d.partition {
		return
	}

	switch p.op {
	case opAdvertiseMsg:
		pub := types.MessagePublisher{
			Topic: p.topic, MsgType: p.msgType, ProcessID: p.processID, NodeID: p.nodeID,
			DataAddress: p.addr1, ControlAddress: p.addr2,
		}
		d.mu.Lock()
		d.remotePubs[pubKey(p.topic, p.processID, p.nodeID)] = remotePub{pub: pub, lastSeen: time.Now()}
		d.mu.Unlock()
		d.fireConnection(pub)

	case opUnadvertiseMsg:
		d.mu.Lock()
		entry, ok := d.remotePubs[pubKey(p.topic, p.processID, p.nodeID)]
		delete(d.remotePubs, pubKey(p.topic, p.processID, p.nodeID))
		d.mu.Unlock()
		if ok {
			d.fireDisconnection(entry.pub)
		}

	case opSubscribe:
		d.mu.Lock()
		var matches []types.MessagePublisher
		for _, pub := range d.localPubs {
			if pub.Topic == p.topic {
				matches = append(matches, pub)
			}
		}
		d.mu.Unlock()
		for _, pub := range matches {
			_ = d.msgCh.sendTo(d.advertisePacket(pub), src)
		}
	}
}

func (d *Discoverer) handleSrvPacket(p packet, src *net.UDPAddr) {
	if p.processID == d.processID || p.partition != d.partition {
		return
	}

	switch p.op {
	case opAdvertiseSrv:
		pub := types.ServicePublisher{
			Topic: p.topic, ReqType: p.msgType, RepType: p.repType, ProcessID: p.processID, NodeID: p.nodeID,
			RequesterAddress: p.addr1, ReplierAddress: p.addr2,
		}
		d.mu.Lock()
		d.remoteSrvs[pubKey(p.topic, p.processID, p.nodeID)] = remoteSrv{pub: pub, lastSeen: time.Now()}
		d.mu.Unlock()
		d.fireSrvConnection(pub)

	case opUnadvertiseSrv:
		d.mu.Lock()
		entry, ok := d.remoteSrvs[pubKey(p.topic, p.processID, p.nodeID)]
		delete(d.remoteSrvs, pubKey(p.topic, p.processID, p.nodeID))
		d.mu.Unlock()
		if ok {
			d.fireSrvDisconnection(entry.pub)
		}

	case opSubscribe:
		d.mu.Lock()
		var matches []types.ServicePublisher
		for _, pub := range d.localSrvs {
			if pub.Topic == p.topic {
				matches = append(matches, pub)
			}
		}
		d.mu.Unlock()
		for _, pub := range matches {
			_ = d.srvCh.sendTo(d.advertiseSrvPacket(pub), src)
		}
	}
}

// heartbeatLoop periodically re-advertises every locally advertised
// publisher and replier, so a peer that starts listening after the
// original advertisement still converges.
func (d *Discoverer) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			pubs := make([]types.MessagePublisher, 0, len(d.localPubs))
			for _, pub := range d.localPubs {
				pubs = append(pubs, pub)
			}
			srvs := make([]types.ServicePublisher, 0, len(d.localSrvs))
			for _, srv := range d.localSrvs {
				srvs = append(srvs, srv)
			}
			d.mu.Unlock()

			for _, pub := range pubs {
				_ = d.msgCh.send(d.advertisePacket(pub))
			}
			for _, srv := range srvs {
				_ = d.srvCh.send(d.advertiseSrvPacket(srv))
			}
		}
	}
}

// expiryLoop prunes remote advertisements that have not been refreshed
// within PeerTimeout and reports each as a disconnection.
func (d *Discoverer) expiryLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PeerTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()

			d.mu.Lock()
			var stalePubs []types.MessagePublisher
			for key, entry := range d.remotePubs {
				if now.Sub(entry.lastSeen) > d.cfg.PeerTimeout {
					stalePubs = append(stalePubs, entry.pub)
					delete(d.remotePubs, key)
				}
			}
			var staleSrvs []types.ServicePublisher
			for key, entry := range d.remoteSrvs {
				if now.Sub(entry.lastSeen) > d.cfg.PeerTimeout {
					staleSrvs = append(staleSrvs, entry.pub)
					delete(d.remoteSrvs, key)
				}
			}
			d.mu.Unlock()

			for _, pub := range stalePubs {
				d.fireDisconnection(pub)
			}
			for _, pub := range staleSrvs {
				d.fireSrvDisconnection(pub)
			}
		}
	}
}

func (d *Discoverer) fireConnection(pub types.MessagePublisher) {
	d.cbMu.RLock()
	cb := d.cbs.OnNewConnection
	d.cbMu.RUnlock()
	if cb != nil {
		cb(pub)
	}
}

func (d *Discoverer) fireDisconnection(pub types.MessagePublisher) {
	d.cbMu.RLock()
	cb := d.cbs.OnNewDisconnection
	d.cbMu.RUnlock()
	if cb != nil {
		cb(pub)
	}
}

func (d *Discoverer) fireSrvConnection(pub types.ServicePublisher) {
	d.cbMu.RLock()
	cb := d.cbs.OnNewSrvConnection
	d.cbMu.RUnlock()
	if cb != nil {
		cb(pub)
	}
}

func (d *Discoverer) fireSrvDisconnection(pub types.ServicePublisher) {
	d.cbMu.RLock()
	cb := d.cbs.OnNewSrvDisconnection
	d.cbMu.RUnlock()
	if cb != nil {
		cb(pub)
	}
}
