// Package external defines the seams between the socket-free repository
// core and the outside world — interface addresses, packet I/O, and the
// upward notifications spec.md section 4.6 describes — plus Driver, a
// reference implementation wiring them together on a single owner
// goroutine.
package external

import (
	"net"

	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/repository"
)

// InterfaceAddressProvider exposes the current set of link addresses
// (A/AAAA) the driver should advertise, per spec.md section 4.6. Address
// changes invalidate per-host A/AAAA records and bump authority for
// announcement; Driver observes this by re-polling and calling
// Repository.UpdateAddresses.
type InterfaceAddressProvider interface {
	Addresses() ([]net.IP, error)
}

// PacketTransport sends and receives raw mDNS packets. It is the only
// seam at which a real multicast socket enters the system: the repository
// itself never binds one, per spec.md section 1's scope boundary.
type PacketTransport interface {
	Send(pkt *mdns.Packet, dest *net.UDPAddr) error
	Receive() (*mdns.Packet, *net.UDPAddr, error)
	Close() error
}

// ConflictObserver receives the upward conflict signal: Driver invokes
// GetConflictingServices on every received packet and forwards any
// non-empty result, since the repository itself never pushes.
type ConflictObserver interface {
	OnConflict(conflicts map[registry.ServiceID]repository.ConflictKind)
}

// StopNotifier is raised, upward, when RequestStopWhenInactive becomes
// true after a registration's exit sequence completes.
type StopNotifier interface {
	OnStopRequested()
}
