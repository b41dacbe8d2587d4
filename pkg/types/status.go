package types

// ResponseStatus reports the outcome of a service call on the wire, per
// spec §4.6's service-response frame.
type ResponseStatus string

const (
	// StatusOK means the replier ran and produced a payload.
	StatusOK ResponseStatus = "ok"
	// StatusNoReplier means no replier was registered for the
	// (topic, reqType, repType) triple.
	StatusNoReplier ResponseStatus = "no_replier"
	// StatusReplierError means the replier ran and returned an error.
	StatusReplierError ResponseStatus = "replier_error"
)

// ControlOp is the operation carried by a control-channel frame: a remote
// node announcing or withdrawing its interest in a topic (spec §4.6).
type ControlOp string

const (
	// ControlSubscribe announces subscriber presence for a topic.
	ControlSubscribe ControlOp = "subscribe"
	// ControlUnsubscribe announces subscriber absence for a topic.
	ControlUnsubscribe ControlOp = "unsubscribe"
)

// AnyType is the wildcard message type accepted by raw/any-type handlers.
const AnyType = ""
