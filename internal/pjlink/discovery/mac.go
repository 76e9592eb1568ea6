package discovery

import (
	"net"
)

// zeroMAC is substituted when no usable interface MAC address is found.
const zeroMAC = "00:00:00:00:00:00"

// primaryMACOrZero returns the formatted MAC address (lowercase,
// colon-separated) of the first network interface that is up, is not a
// loopback, and carries a non-empty hardware address. There is no portable
// way to ask the OS "which interface is primary" in the general case, so
// the first qualifying interface stands in for it.
func primaryMACOrZero() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return zeroMAC
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if len(iface.HardwareAddr) != 6 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return zeroMAC
}
