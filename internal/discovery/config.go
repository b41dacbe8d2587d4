package discovery

import "time"

// Config configures the UDP multicast beacon (spec §6).
type Config struct {
	// Group is the multicast group address shared by both channels.
	Group string
	// MsgPort carries pub/sub advertisements (spec §6: 11317).
	MsgPort int
	// SrvPort carries service advertisements (spec §6: 11318).
	SrvPort int
	// HeartbeatInterval controls how often locally advertised publishers
	// and repliers are re-announced, so a peer that joined late and
	// missed the original advertisement still converges.
	HeartbeatInterval time.Duration
	// PeerTimeout is how long a remote advertisement is considered
	// live without a refresh before it is dropped and a disconnection
	// fires.
	PeerTimeout time.Duration
}

// DefaultConfig returns the beacon configuration matching spec.md §6's
// ports exactly.
func DefaultConfig() Config {
	return Config{
		Group:             "239.255.0.7",
		MsgPort:           11317,
		SrvPort:           11318,
		HeartbeatInterval: 2 * time.Second,
		PeerTimeout:       10 * time.Second,
	}
}
