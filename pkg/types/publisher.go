package types

// MessagePublisher describes where and how to reach a publisher of a
// pub/sub topic. It is the unit of information exchanged with the
// discovery collaborator and stored in topic storage (spec §3,
// "Publisher Record").
type MessagePublisher struct {
	Topic          string
	MsgType        string
	ProcessID      ProcessID
	NodeID         NodeID
	DataAddress    string
	ControlAddress string
}

// Key returns the (topic, process, node) triple that uniquely identifies
// this publisher within topic storage.
func (p MessagePublisher) Key() (topic string, proc ProcessID, node NodeID) {
	return p.Topic, p.ProcessID, p.NodeID
}

// Addresses returns every address this publisher can be reached at, used
// by topic storage's HasPublisher lookup.
func (p MessagePublisher) Addresses() []string {
	return []string{p.DataAddress, p.ControlAddress}
}

// ServicePublisher describes where and how to reach a service replier.
type ServicePublisher struct {
	Topic            string
	ReqType          string
	RepType          string
	RequesterAddress string
	ReplierAddress   string
	ProcessID        ProcessID
	NodeID           NodeID
}

// Key returns the (topic, process, node) triple that uniquely identifies
// this service publisher within topic storage.
func (p ServicePublisher) Key() (topic string, proc ProcessID, node NodeID) {
	return p.Topic, p.ProcessID, p.NodeID
}

// Addresses returns every address this service publisher can be reached
// at, used by topic storage's HasPublisher lookup.
func (p ServicePublisher) Addresses() []string {
	return []string{p.RequesterAddress, p.ReplierAddress}
}

// RemoteSubscriber records a remote node's interest in a topic so that
// local publishers can decide whether to pay the cost of serialization
// and a network send (spec §3, "Remote Subscriber Registry").
type RemoteSubscriber struct {
	Topic          string
	ProcessID      ProcessID
	NodeID         NodeID
	MsgType        string
	ControlAddress string
}

// Key returns the (topic, process, node) triple that uniquely identifies
// this subscriber within the remote subscriber registry.
func (s RemoteSubscriber) Key() (topic string, proc ProcessID, node NodeID) {
	return s.Topic, s.ProcessID, s.NodeID
}

// Addresses returns the single address a remote subscriber is reachable
// at, so topic storage's HasPublisher lookup can find it too.
func (s RemoteSubscriber) Addresses() []string {
	return []string{s.ControlAddress}
}
