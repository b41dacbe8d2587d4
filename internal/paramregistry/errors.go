package paramregistry

import "errors"

var (
	// errAdvertiseFailed means the core rejected the service
	// advertisement outright (spec §7, discovery-unavailable is a
	// false return, not a panic — this wraps that into an error for
	// callers that want one).
	errAdvertiseFailed = errors.New("paramregistry: advertise service failed")

	// errUnknownOp means a decoded request carried an opcode this
	// version of the service doesn't recognize.
	errUnknownOp = errors.New("paramregistry: unknown request op")

	// ErrNotFound is returned by Client.Get when the name has no value.
	ErrNotFound = errors.New("paramregistry: parameter not found")
)
