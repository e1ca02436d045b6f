package mdns

import (
	"net"
	"time"
)

// Port is the mDNS port number.
const Port = 5353

var (
	// IPv4Group is the multicast group used for mDNS over IPv4.
	//
	// See https://tools.ietf.org/html/rfc6762#section-3.
	IPv4Group = net.ParseIP("224.0.0.251")

	// IPv4Address is the address to which mDNS queries are sent over IPv4.
	IPv4Address = &net.UDPAddr{IP: IPv4Group, Port: Port}

	// IPv6Group is the multicast group used for mDNS over IPv6.
	//
	// See https://tools.ietf.org/html/rfc6762#section-3.
	IPv6Group = net.ParseIP("ff02::fb")

	// IPv6Address is the address to which mDNS queries are sent over IPv6.
	IPv6Address = &net.UDPAddr{IP: IPv6Group, Port: Port}
)

// ShortTTL is the default TTL for address, SRV, and NSEC records.
const ShortTTL = 120 * time.Second

// LongTTL is the default TTL for PTR and TXT records.
const LongTTL = 4500 * time.Second

// MinNonPrivilegedTTL and MaxNonPrivilegedTTL bound the TTL override
// accepted from a non-privileged caller.
const (
	MinNonPrivilegedTTL = 30 * time.Second
	MaxNonPrivilegedTTL = 36000 * time.Second
)

// MaxListenersPerClient is the maximum number of active discover/register/
// resolve listeners a single client identity may hold.
const MaxListenersPerClient = 200

// MaxInstanceNameBytes is the maximum length, in UTF-8 bytes, of a service
// instance name before truncation is applied.
const MaxInstanceNameBytes = 63

// ProbeRepeatCount is the number of probe queries sent during the probing
// phase, per RFC 6762 section 8.1.
const ProbeRepeatCount = 3

// ProbeSpacing is the delay between successive probe queries.
const ProbeSpacing = 250 * time.Millisecond

// AnnouncementsForActive is the number of successfully sent announcement
// packets required before a registration transitions from Announcing to
// Active.
const AnnouncementsForActive = 2
