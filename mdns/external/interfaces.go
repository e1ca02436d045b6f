package external

import (
	"errors"
	"net"
)

// InterfaceAddresses is a reference InterfaceAddressProvider that reports
// the non-loopback unicast addresses of a single net.Interface.
type InterfaceAddresses struct {
	Iface *net.Interface
}

// Addresses implements InterfaceAddressProvider.
func (a *InterfaceAddresses) Addresses() ([]net.IP, error) {
	addrs, err := a.Iface.Addrs()
	if err != nil {
		return nil, err
	}

	var out []net.IP
	for _, addr := range addrs {
		ipn, ok := addr.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		out = append(out, ipn.IP)
	}
	return out, nil
}

// DefaultInterface returns the network interface used to reach the
// public internet, on the assumption that whatever interface routes to a
// well-known external address is the one worth advertising mDNS records
// on. It opens no multicast socket; the UDP dial below is only used to
// ask the kernel for a route, and the connection is closed immediately.
func DefaultInterface() (*net.Interface, error) {
	candidates, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	conn, err := net.Dial("udp4", "8.8.8.8:53")
	if err != nil {
		return nil, err
	}
	ip := conn.LocalAddr().(*net.UDPAddr).IP
	conn.Close()

	for _, iface := range candidates {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return &iface, nil
			}
		}
	}

	return nil, errors.New("mdns: could not determine default network interface")
}
