package camrtsp

import (
	"net"
)

// LinkChecker reports the health of the network link.
type LinkChecker interface {
	LinkUp() bool
}

// InterfaceLinkChecker is a LinkChecker that checks the flags of a network interface.
type InterfaceLinkChecker struct {
	// name of the interface, for instance "eth0" or "wlan0".
	Name string
}

// LinkUp implements LinkChecker.
// The link is up when the interface exists, is up and is running.
func (c InterfaceLinkChecker) LinkUp() bool {
	iface, err := net.InterfaceByName(c.Name)
	if err != nil {
		return false
	}
	return (iface.Flags&net.FlagUp) != 0 && (iface.Flags&net.FlagRunning) != 0
}
