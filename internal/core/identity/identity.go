// Package identity implements C1: process identity generation and host
// address resolution (spec §4.1). It has nothing to do with
// cryptographic identity — the transport core has no authentication
// story (spec §1, Non-goals) — it only hands out random UUIDs and picks
// an address other processes can dial.
package identity

import (
	"fmt"
	"net"
	"os"

	"github.com/meshwire/transport/pkg/types"
)

// New generates a fresh process identity.
func New() types.ProcessID {
	return types.NewProcessID()
}

// HostAddress resolves the address this process should bind its sockets
// to. IGN_IP overrides discovery entirely, per spec §6; otherwise the
// first non-loopback IPv4 address among the host's interface addresses
// is used (interface up/down state is not checked), falling back to
// loopback if there is none.
func HostAddress() (string, error) {
	if override := os.Getenv("IGN_IP"); override != "" {
		return override, nil
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("resolve host address: %w", err)
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}

	return "127.0.0.1", nil
}

// Partition returns the logical isolation prefix applied to every topic
// and service name (spec §6, IGN_PARTITION). An empty partition is valid
// and means "no isolation" — every process with an empty partition can
// talk to every other.
func Partition() string {
	return os.Getenv("IGN_PARTITION")
}

// Scope prefixes topic with the active partition so that two cores in
// different partitions never produce the same on-the-wire topic name
// (spec §6, §8 scenario S6).
func Scope(partition, topic string) string {
	if partition == "" {
		return topic
	}
	return partition + "/" + topic
}
