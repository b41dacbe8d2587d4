package paramregistry

import "time"

// Requester is the subset of transport.Node a Client needs to issue
// service calls.
type Requester interface {
	Request(topic, reqType, repType string, reqPayload []byte, timeout time.Duration) ([]byte, error)
}

// Client issues parameter calls against a Service advertised on topic,
// reachable over node (typically a *transport.Node).
type Client struct {
	node    Requester
	topic   string
	timeout time.Duration
}

// NewClient constructs a Client. A zero timeout uses clientTimeout.
func NewClient(node Requester, topic string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = clientTimeout
	}
	return &Client{node: node, topic: topic, timeout: timeout}
}

// List returns every parameter known to the registry.
func (c *Client) List() ([]Param, error) {
	resp, err := c.call(request{op: opList})
	if err != nil {
		return nil, err
	}
	return resp.params, nil
}

// Get returns the named parameter, or ErrNotFound if it has no value.
func (c *Client) Get(name string) (Param, error) {
	resp, err := c.call(request{op: opGet, name: name})
	if err != nil {
		return Param{}, err
	}
	if len(resp.params) == 0 {
		return Param{}, ErrNotFound
	}
	return resp.params[0], nil
}

// Set stores name as typ/value, returning the stored parameter.
func (c *Client) Set(name, typ, value string) (Param, error) {
	resp, err := c.call(request{op: opSet, name: name, typ: typ, val: value})
	if err != nil {
		return Param{}, err
	}
	if len(resp.params) == 0 {
		return Param{}, ErrNotFound
	}
	return resp.params[0], nil
}

func (c *Client) call(req request) (response, error) {
	raw, err := c.node.Request(c.topic, ReqType, RepType, req.encode(), c.timeout)
	if err != nil {
		return response{}, err
	}
	return decodeResponse(raw)
}
