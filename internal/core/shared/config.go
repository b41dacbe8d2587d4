package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/meshwire/transport/internal/core/socket"
)

// Config gathers the knobs spec.md §6 exposes through environment
// variables, plus a couple of implementation constants (poll timeout,
// default request timeout, discovery ports) that have no env var of
// their own. Populate it with NewConfig, then layer Option overrides on
// top for programmatic construction (tests, embedders).
type Config struct {
	Partition         string
	HostOverride      string
	Verbose           int
	PollTimeout       time.Duration
	DefaultReqTimeout time.Duration
	DiscoveryMsgPort  int
	DiscoverySrvPort  int
}

// Option customizes a Config produced by NewConfig.
type Option func(*Config)

// NewConfig reads IGN_PARTITION, IGN_IP, and IGN_VERBOSE (spec §6),
// applies sane defaults for everything else, and then applies opts.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Partition:         os.Getenv("IGN_PARTITION"),
		HostOverride:      os.Getenv("IGN_IP"),
		Verbose:           parseVerbose(os.Getenv("IGN_VERBOSE")),
		PollTimeout:       socket.PollTimeout,
		DefaultReqTimeout: 3 * time.Second,
		DiscoveryMsgPort:  11317,
		DiscoverySrvPort:  11318,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func parseVerbose(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// WithPartition overrides the partition (IGN_PARTITION) programmatically.
func WithPartition(partition string) Option {
	return func(c *Config) { c.Partition = partition }
}

// WithHost overrides the host address (IGN_IP) programmatically.
func WithHost(host string) Option {
	return func(c *Config) { c.HostOverride = host }
}

// WithDefaultRequestTimeout overrides the timeout used by Request calls
// that don't specify one explicitly.
func WithDefaultRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.DefaultReqTimeout = d }
}
