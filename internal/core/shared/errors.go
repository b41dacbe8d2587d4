package shared

import "errors"

// Error kinds (spec §7). transport-init is the only fatal one; every
// other kind is recovered locally by the reception loop or surfaced on
// the return value of the originating call.
var (
	// ErrTransportInit wraps a socket bind failure at construction.
	ErrTransportInit = errors.New("shared: transport init failed")

	// ErrNoReplier completes a pending request when no replier was
	// registered for the requested (topic, reqType, repType).
	ErrNoReplier = errors.New("shared: no replier for service")

	// ErrTimeout completes a pending request whose deadline elapsed
	// before a response arrived.
	ErrTimeout = errors.New("shared: request timed out")

	// ErrShutdown completes every pending request when the core is
	// closed, and is returned by calls made after Close.
	ErrShutdown = errors.New("shared: core is shutting down")

	// ErrReplierFailed wraps the error a local replier handler returned.
	ErrReplierFailed = errors.New("shared: replier returned an error")
)
