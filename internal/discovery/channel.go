package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/meshwire/transport/internal/util/logger"
)

var log = logger.Logger("discovery")

const maxDatagram = 8192

// channel is one multicast UDP socket, bound for both sending and
// receiving on a single (group, port) pair (spec §6: 11317 pub/sub,
// 11318 services).
type channel struct {
	conn  *net.UDPConn
	group *net.UDPAddr
}

func newChannel(groupAddr string, port int) (*channel, error) {
	group := &net.UDPAddr{IP: net.ParseIP(groupAddr), Port: port}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, fmt.Errorf("discovery: bind multicast %s:%d: %w", groupAddr, port, err)
	}
	return &channel{conn: conn, group: group}, nil
}

// send broadcasts p to every listener on the channel's group.
func (c *channel) send(p packet) error {
	_, err := c.conn.WriteToUDP(p.encode(), c.group)
	return err
}

// sendTo unicasts p to a single peer, used to answer a subscribe
// request directly rather than re-broadcasting (spec §4.4 Discover
// semantics: a late subscriber gets existing advertisements replayed).
func (c *channel) sendTo(p packet, dst *net.UDPAddr) error {
	_, err := c.conn.WriteToUDP(p.encode(), dst)
	return err
}

// listen blocks reading datagrams until ctx is done, handing each
// successfully decoded packet to handle. Malformed datagrams are logged
// and dropped (spec §7).
func (c *channel) listen(ctx context.Context, handle func(packet, *net.UDPAddr)) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])

		p, err := decodePacket(raw)
		if err != nil {
			log.Debug("dropping malformed discovery packet", "src", src, "err", err)
			continue
		}
		handle(p, src)
	}
}

func (c *channel) close() error {
	return c.conn.Close()
}
