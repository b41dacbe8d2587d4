package paramregistry

import "time"

// DefaultTopic is the service topic a Registry advertises itself on
// when the caller doesn't need a second, independently-namespaced
// registry in the same process.
const DefaultTopic = "/param_registry"

// Replier is the subset of transport.Node a Service needs to advertise
// itself as a replier. Accepting the interface rather than the
// concrete facade keeps this package independent of the root module.
type Replier interface {
	AdvertiseService(topic, reqType, repType string, handle func(reqPayload []byte) ([]byte, error)) bool
	UnadvertiseService(topic string) bool
}

// Service binds a Registry to a topic and advertises it as a replier.
type Service struct {
	topic string
	node  Replier
	reg   *Registry
}

// Serve advertises reg as a replier on topic over node, returning the
// bound Service. The caller should hold onto it and call Stop on
// shutdown.
func Serve(node Replier, topic string, reg *Registry) (*Service, error) {
	s := &Service{topic: topic, node: node, reg: reg}
	if !node.AdvertiseService(topic, ReqType, RepType, s.handle) {
		return nil, errAdvertiseFailed
	}
	return s, nil
}

// Stop withdraws the replier advertisement.
func (s *Service) Stop() bool {
	return s.node.UnadvertiseService(s.topic)
}

func (s *Service) handle(reqPayload []byte) ([]byte, error) {
	req, err := decodeRequest(reqPayload)
	if err != nil {
		return nil, err
	}

	switch req.op {
	case opList:
		return response{params: s.reg.List()}.encode(), nil
	case opGet:
		p, ok := s.reg.Get(req.name)
		if !ok {
			return response{}.encode(), nil
		}
		return response{params: []Param{p}}.encode(), nil
	case opSet:
		s.reg.Set(Param{Name: req.name, Type: req.typ, Value: req.val})
		p, _ := s.reg.Get(req.name)
		return response{params: []Param{p}}.encode(), nil
	default:
		return nil, errUnknownOp
	}
}

// clientTimeout is the default deadline a Client waits for a reply.
const clientTimeout = 5 * time.Second
