// Package multicast implements the push-mode transport: a server that
// beacons and broadcasts over an IP multicast group, and a client that
// joins the group, discovers the server from its beacon, and requests
// the first full project list.
package multicast

import (
	"net"

	"golang.org/x/net/ipv4"

	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/netiface"
)

// multicastTTL matches the spec's fixed TTL of 255.
const multicastTTL = 255

// joinedSocket bundles a UDP connection already joined to the configured
// multicast group on every usable local interface.
type joinedSocket struct {
	conn       *net.UDPConn
	packetConn *ipv4.PacketConn
	group      *net.UDPAddr
}

// bindAndJoin binds a UDP socket to bindAddr and joins group on every
// non-loopback, up interface found locally that has an IPv4 address.
// No IPv6 group is joined. TTL is fixed at 255. SO_REUSEADDR is not set:
// net.ListenUDP sets it only when the bind address is itself a multicast
// address, not for a wildcard such as 0.0.0.0.
func bindAndJoin(bindAddr string, group *net.UDPAddr) (*joinedSocket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", bindAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "multicast: resolve bind address %s", bindAddr)
	}

	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "multicast: bind %s", bindAddr)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "multicast: set ttl")
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		logger.Warnw("multicast: set loopback failed, continuing", "error", err)
	}

	ifaces, err := netiface.Enumerate()
	if err != nil {
		logger.Warnw("multicast: interface enumeration failed, joining default interface only", "error", err)
	}

	joined := 0
	for _, candidate := range ifaces {
		if len(candidate.IPv4) == 0 {
			continue
		}
		ni, err := net.InterfaceByName(candidate.Name)
		if err != nil {
			continue
		}
		if err := pc.JoinGroup(ni, group); err != nil {
			logger.Warnw("multicast: join group failed on interface", "interface", candidate.Name, "error", err)
			continue
		}
		joined++
	}
	if joined == 0 {
		// Fall back to the default interface so single-NIC hosts (and
		// test environments without gopsutil-visible adapters) still work.
		if err := pc.JoinGroup(nil, group); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "multicast: join group failed on default interface")
		}
	}

	return &joinedSocket{conn: conn, packetConn: pc, group: group}, nil
}

func (s *joinedSocket) Close() error {
	return s.conn.Close()
}

func resolveGroup(groupAddr string) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "multicast: resolve group %s", groupAddr)
	}
	return addr, nil
}
