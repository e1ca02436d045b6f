// Package repository implements the mDNS record repository core: the
// probing/announcement/exit packet builders, the query-to-reply
// synthesizer, and the conflict detector described in spec.md section 4.4.
//
// A Repository holds no locks and performs no I/O; every method is a pure
// transformation of its in-memory state plus whatever Packet it returns.
// Callers (an external probe/announce timer, a packet receive loop) must
// serialize access on a single owner thread, per spec.md section 5.
package repository

import (
	"net"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// Config holds the feature flags and policy knobs that parameterize a
// Repository. It is supplied once, at construction, following the
// teacher library's functional-options pattern generalized to a plain
// struct since a Repository owns no network resource that needs guarding.
type Config struct {
	// IncludeHostInProbing adds the host-owning name and its A/AAAA
	// records to the probe packet's question/authority sections.
	IncludeHostInProbing bool

	// KnownAnswerSuppression enables RFC 6762 section 7.1 known-answer
	// suppression in GetReply.
	KnownAnswerSuppression bool

	// UnicastReply enables honouring the per-question unicast-response
	// bit in GetReply. When false, every reply is multicast.
	UnicastReply bool
}

// ProbingInfo is returned by SetServiceProbing: the probe packet to
// (re-)transmit, driven externally per spec.md section 4.4.1.
type ProbingInfo struct {
	ServiceID registry.ServiceID
	Packet    mdns.Packet
}

// AnnouncementInfo is returned by OnProbingSucceeded: the announcement
// packet to transmit, driven externally per spec.md section 4.4.2.
type AnnouncementInfo struct {
	ServiceID registry.ServiceID
	Packet    mdns.Packet
}

// Repository is the mDNS record repository core.
type Repository struct {
	Table     *registry.Table
	Config    Config
	Logger    logging.Logger
	addresses []net.IP
}

// New returns a Repository backed by table.
func New(table *registry.Table, cfg Config, logger logging.Logger) *Repository {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Repository{Table: table, Config: cfg, Logger: logger}
}

// UpdateAddresses replaces the repository's current snapshot of local
// interface addresses, per the InterfaceAddressProvider contract in
// spec.md section 4.6. It copies addrs; the caller's slice is not
// retained.
func (r *Repository) UpdateAddresses(addrs []net.IP) {
	r.addresses = append([]net.IP{}, addrs...)
}

// Addresses returns the repository's current interface address snapshot.
func (r *Repository) Addresses() []net.IP {
	return append([]net.IP{}, r.addresses...)
}

// AddService registers a new service; see registry.Table.AddService.
func (r *Repository) AddService(id registry.ServiceID, info registry.ServiceInfo, ttlOverride *time.Duration) (registry.ServiceID, error) {
	return r.Table.AddService(id, info, ttlOverride)
}

// UpdateService replaces a registration's subtype set.
func (r *Repository) UpdateService(id registry.ServiceID, subtypes []string) error {
	return r.Table.UpdateService(id, subtypes)
}

// RemoveService erases a registration's records.
func (r *Repository) RemoveService(id registry.ServiceID) {
	r.Table.RemoveService(id)
}

// RequestStopWhenInactive reports whether the repository has no tracked
// registrations and no pending exits, per the upward signal described in
// spec.md section 4.6.
func (r *Repository) RequestStopWhenInactive() bool {
	return r.Table.ServicesCount() == 0 && !r.Table.HasPendingExits()
}

// effectiveAddresses returns the address set a registration should
// advertise: its own, if it declares a custom host, or the repository's
// current interface snapshot otherwise.
func (r *Repository) effectiveAddresses(svc *registry.Service) []net.IP {
	if svc.IsCustomHost {
		return svc.Addresses
	}
	return r.addresses
}

// OffloadAddresses implements offload.AddressSource, letting
// offload.GetOffloadPacket reuse the repository's own address resolution
// instead of duplicating the custom-host-vs-interface-snapshot logic.
func (r *Repository) OffloadAddresses(svc *registry.Service) []net.IP {
	return r.effectiveAddresses(svc)
}

func splitByFamily(addrs []net.IP) (v4, v6 []net.IP) {
	for _, ip := range addrs {
		if ip4 := ip.To4(); ip4 != nil {
			v4 = append(v4, ip4)
		} else if ip.To16() != nil {
			v6 = append(v6, ip.To16())
		}
	}
	return
}
