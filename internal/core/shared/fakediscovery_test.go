package shared

import (
	"sync"

	"github.com/meshwire/transport/pkg/interfaces"
	"github.com/meshwire/transport/pkg/types"
)

// fakeDiscovery is an in-memory stand-in for the external discovery
// collaborator (spec §4.4, §6). Tests wire two or more fakeDiscovery
// instances to a shared fakeFabric so that Advertise/Discover calls on
// one core surface as OnNewConnection callbacks on another, without any
// real UDP multicast.
type fakeDiscovery struct {
	fabric    *fakeFabric
	partition string

	mu  sync.Mutex
	cbs interfaces.ConnectionCallbacks
}

func newFakeDiscovery(fabric *fakeFabric, partition string) *fakeDiscovery {
	d := &fakeDiscovery{fabric: fabric, partition: partition}
	fabric.register(d)
	return d
}

func (d *fakeDiscovery) SetConnectionCallbacks(c interfaces.ConnectionCallbacks) {
	d.mu.Lock()
	d.cbs = c
	d.mu.Unlock()
}

func (d *fakeDiscovery) Advertise(pub types.MessagePublisher) bool {
	d.fabric.advertise(d, pub)
	return true
}

func (d *fakeDiscovery) Unadvertise(topic string, proc types.ProcessID, node types.NodeID) bool {
	d.fabric.unadvertise(d, topic, proc, node)
	return true
}

func (d *fakeDiscovery) Discover(topic string) bool {
	d.fabric.discover(d, topic)
	return true
}

func (d *fakeDiscovery) AdvertiseService(pub types.ServicePublisher) bool {
	d.fabric.advertiseService(d, pub)
	return true
}

func (d *fakeDiscovery) UnadvertiseService(topic string, proc types.ProcessID, node types.NodeID) bool {
	d.fabric.unadvertiseService(d, topic, proc, node)
	return true
}

func (d *fakeDiscovery) DiscoverService(topic string) bool {
	d.fabric.discoverService(d, topic)
	return true
}

func (d *fakeDiscovery) Close() error { return nil }

func (d *fakeDiscovery) fireConnection(pub types.MessagePublisher) {
	d.mu.Lock()
	cb := d.cbs.OnNewConnection
	d.mu.Unlock()
	if cb != nil {
		cb(pub)
	}
}

func (d *fakeDiscovery) fireDisconnection(pub types.MessagePublisher) {
	d.mu.Lock()
	cb := d.cbs.OnNewDisconnection
	d.mu.Unlock()
	if cb != nil {
		cb(pub)
	}
}

func (d *fakeDiscovery) fireSrvConnection(pub types.ServicePublisher) {
	d.mu.Lock()
	cb := d.cbs.OnNewSrvConnection
	d.mu.Unlock()
	if cb != nil {
		cb(pub)
	}
}

func (d *fakeDiscovery) fireSrvDisconnection(pub types.ServicePublisher) {
	d.mu.Lock()
	cb := d.cbs.OnNewSrvDisconnection
	d.mu.Unlock()
	if cb != nil {
		cb(pub)
	}
}

// fakeFabric is the shared directory every fakeDiscovery in a test
// registers with. It mimics just enough of real discovery's behavior
// (spec §4.4) to drive the core's connection-state machine: advertised
// publishers/services are remembered, and Discover/DiscoverService
// replay every matching advertisement seen so far to the caller,
// partitioned exactly like real discovery would be (spec S6).
type fakeFabric struct {
	mu sync.Mutex

	discoveries []*fakeDiscovery
	pubs        []struct {
		owner *fakeDiscovery
		pub   types.MessagePublisher
	}
	services []struct {
		owner *fakeDiscovery
		pub   types.ServicePublisher
	}
}

func newFakeFabric() *fakeFabric { return &fakeFabric{} }

func (f *fakeFabric) register(d *fakeDiscovery) {
	f.mu.Lock()
	f.discoveries = append(f.discoveries, d)
	f.mu.Unlock()
}

func (f *fakeFabric) samePartition(a, b *fakeDiscovery) bool {
	return a.partition == b.partition
}

func (f *fakeFabric) advertise(owner *fakeDiscovery, pub types.MessagePublisher) {
	f.mu.Lock()
	f.pubs = append(f.pubs, struct {
		owner *fakeDiscovery
		pub   types.MessagePublisher
	}{owner, pub})
	peers := append([]*fakeDiscovery{}, f.discoveries...)
	f.mu.Unlock()

	for _, peer := range peers {
		if peer == owner || !f.samePartition(owner, peer) {
			continue
		}
		peer.fireConnection(pub)
	}
}

func (f *fakeFabric) unadvertise(owner *fakeDiscovery, topic string, proc types.ProcessID, node types.NodeID) {
	f.mu.Lock()
	var removed types.MessagePublisher
	for i, entry := range f.pubs {
		if entry.owner == owner && entry.pub.Topic == topic && entry.pub.ProcessID == proc && entry.pub.NodeID == node {
			removed = entry.pub
			f.pubs = append(f.pubs[:i], f.pubs[i+1:]...)
			break
		}
	}
	peers := append([]*fakeDiscovery{}, f.discoveries...)
	f.mu.Unlock()

	for _, peer := range peers {
		if peer == owner || !f.samePartition(owner, peer) {
			continue
		}
		peer.fireDisconnection(removed)
	}
}

func (f *fakeFabric) discover(requester *fakeDiscovery, topic string) {
	f.mu.Lock()
	var matches []types.MessagePublisher
	for _, entry := range f.pubs {
		if entry.pub.Topic == topic && f.samePartition(requester, entry.owner) {
			matches = append(matches, entry.pub)
		}
	}
	f.mu.Unlock()

	for _, pub := range matches {
		requester.fireConnection(pub)
	}
}

func (f *fakeFabric) advertiseService(owner *fakeDiscovery, pub types.ServicePublisher) {
	f.mu.Lock()
	f.services = append(f.services, struct {
		owner *fakeDiscovery
		pub   types.ServicePublisher
	}{owner, pub})
	peers := append([]*fakeDiscovery{}, f.discoveries...)
	f.mu.Unlock()

	for _, peer := range peers {
		if peer == owner || !f.samePartition(owner, peer) {
			continue
		}
		peer.fireSrvConnection(pub)
	}
}

func (f *fakeFabric) unadvertiseService(owner *fakeDiscovery, topic string, proc types.ProcessID, node types.NodeID) {
	f.mu.Lock()
	var removed types.ServicePublisher
	for i, entry := range f.services {
		if entry.owner == owner && entry.pub.Topic == topic && entry.pub.ProcessID == proc && entry.pub.NodeID == node {
			removed = entry.pub
			f.services = append(f.services[:i], f.services[i+1:]...)
			break
		}
	}
	peers := append([]*fakeDiscovery{}, f.discoveries...)
	f.mu.Unlock()

	for _, peer := range peers {
		if peer == owner || !f.samePartition(owner, peer) {
			continue
		}
		peer.fireSrvDisconnection(removed)
	}
}

func (f *fakeFabric) discoverService(requester *fakeDiscovery, topic string) {
	f.mu.Lock()
	var matches []types.ServicePublisher
	for _, entry := range f.services {
		if entry.pub.Topic == topic && f.samePartition(requester, entry.owner) {
			matches = append(matches, entry.pub)
		}
	}
	f.mu.Unlock()

	for _, pub := range matches {
		requester.fireSrvConnection(pub)
	}
}
