// Package netiface enumerates local network interfaces suitable for
// joining a multicast group: non-loopback and operationally up, with
// their IPv4 and IPv6 addresses. transport/multicast joins its group
// only on interfaces that have an IPv4 address; the IPv6 addresses are
// reported but not used for any join.
package netiface

import (
	"strings"

	gopsnet "github.com/shirou/gopsutil/v3/net"

	"github.com/xsparkiex/buildmonitor/errors"
)

// Interface is a local network interface candidate for multicast join.
type Interface struct {
	Name string
	IPv4 []string
	IPv6 []string
}

// Enumerate returns every non-loopback, up interface with at least one
// assigned address.
func Enumerate() ([]Interface, error) {
	ifaces, err := gopsnet.Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "netiface: enumerate interfaces")
	}

	var out []Interface
	for _, iface := range ifaces {
		if !isUpNonLoopback(iface.Flags) {
			continue
		}

		candidate := Interface{Name: iface.Name}
		for _, addr := range iface.Addrs {
			ip := stripCIDR(addr.Addr)
			switch {
			case strings.Contains(ip, ":"):
				candidate.IPv6 = append(candidate.IPv6, ip)
			case ip != "":
				candidate.IPv4 = append(candidate.IPv4, ip)
			}
		}

		if len(candidate.IPv4) > 0 || len(candidate.IPv6) > 0 {
			out = append(out, candidate)
		}
	}

	return out, nil
}

func isUpNonLoopback(flags []string) bool {
	up, loopback := false, false
	for _, f := range flags {
		switch strings.ToLower(f) {
		case "up":
			up = true
		case "loopback":
			loopback = true
		}
	}
	return up && !loopback
}

func stripCIDR(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return addr[:i]
	}
	return addr
}
