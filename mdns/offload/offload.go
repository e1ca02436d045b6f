// Package offload flattens a single registration into the canonical
// response packet hardware/firmware mDNS offload engines expect, per
// spec.md section 4.5.
package offload

import (
	"net"

	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// AddressSource supplies the address set a registration advertises,
// mirroring repository.Repository.effectiveAddresses without introducing a
// dependency on the repository package.
type AddressSource interface {
	OffloadAddresses(svc *registry.Service) []net.IP
}

// GetOffloadPacket returns the canonical offload snapshot for id: the type
// PTR, SRV, TXT, and then each A/AAAA for the host, in that order. It
// carries no subtype PTRs, no service-type enumeration PTR, and no NSEC
// records, since offload engines answer only what is asked of them
// verbatim.
func GetOffloadPacket(table *registry.Table, addrs AddressSource, id registry.ServiceID) (*mdns.Packet, error) {
	svc, ok := table.Get(id)
	if !ok {
		return nil, mdns.NewError(mdns.NoTransaction, "unknown service id %d", id)
	}

	instanceName := svc.InstanceNameLabels(table.Domain)
	typeName := names.Join(svc.ServiceType, table.Domain)
	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	longTTL := svc.EffectiveTTL(mdns.LongTTL)

	p := &mdns.Packet{
		Header: mdns.Header{Flags: mdns.FlagResponse},
	}

	p.Answers = append(p.Answers, mdns.NewPTR(typeName, instanceName, false, longTTL))
	p.Answers = append(p.Answers, mdns.NewSRV(instanceName, 0, 0, svc.Port, svc.Hostname, true, shortTTL))
	p.Answers = append(p.Answers, mdns.NewTXT(instanceName, svc.TXT, true, longTTL))

	for _, ip := range addrs.OffloadAddresses(svc) {
		if ip.To4() != nil {
			p.Answers = append(p.Answers, mdns.NewA(svc.Hostname, ip, true, shortTTL))
		} else {
			p.Answers = append(p.Answers, mdns.NewAAAA(svc.Hostname, ip, true, shortTTL))
		}
	}

	return p, nil
}
