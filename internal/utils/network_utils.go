package utils

import (
	"net"
	"strings"
)

// Carrier-grade NAT range used by WARP, Tailscale and mobile carriers.
var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp", "utun", "tailscale"}

type netInterface struct {
	name  string
	flags net.Flags
	ips   []net.IP
}

// ShouldForceRelay reports whether the host is likely behind a VPN or CGNAT,
// where direct candidates rarely work and TURN should be forced.
func ShouldForceRelay() bool {
	ok, _ := RelayReason()
	return ok
}

// RelayReason is ShouldForceRelay with the interface that triggered it.
func RelayReason() (bool, string) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false, ""
	}

	var list []netInterface
	for _, iface := range ifaces {
		ni := netInterface{name: iface.Name, flags: iface.Flags}
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				switch v := addr.(type) {
				case *net.IPNet:
					ni.ips = append(ni.ips, v.IP)
				case *net.IPAddr:
					ni.ips = append(ni.ips, v.IP)
				}
			}
		}
		list = append(list, ni)
	}
	return detectRelay(list)
}

func detectRelay(ifaces []netInterface) (bool, string) {
	for _, iface := range ifaces {
		if iface.flags&net.FlagUp == 0 || iface.flags&net.FlagLoopback != 0 {
			continue
		}

		name := strings.ToLower(iface.name)
		for _, t := range tunnelNames {
			if strings.Contains(name, t) {
				return true, iface.name
			}
		}

		for _, ip := range iface.ips {
			if cgnatBlock.Contains(ip) {
				return true, iface.name
			}
		}
	}
	return false, ""
}
