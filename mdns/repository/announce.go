package repository

import (
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// servicesEnumerationName is the DNS-SD service type enumeration domain,
// queried to discover which service types are advertised in a domain.
//
// See https://tools.ietf.org/html/rfc6763#section-9.
func servicesEnumerationName(domain names.Labels) names.Labels {
	return names.Join(names.Labels{"_services", "_dns-sd", "_udp"}, domain)
}

// OnProbingSucceeded transitions id from Probing to Announcing and builds
// its announcement packet, per spec.md section 4.4.2.
//
// It returns an error if id is unknown or is not currently Probing.
func (r *Repository) OnProbingSucceeded(id registry.ServiceID) (*AnnouncementInfo, error) {
	svc, ok := r.Table.Get(id)
	if !ok {
		return nil, mdns.NewError(mdns.NoTransaction, "unknown service id %d", id)
	}
	if svc.State != registry.Probing {
		return nil, mdns.NewError(mdns.OperationNotRunning, "service %d is not probing", id)
	}

	svc.State = registry.Announcing

	p := r.buildAnnouncement(svc)
	return &AnnouncementInfo{ServiceID: id, Packet: p}, nil
}

// buildAnnouncement constructs the full announcement packet for svc, per
// spec.md section 4.4.2. It does not mutate svc.
func (r *Repository) buildAnnouncement(svc *registry.Service) mdns.Packet {
	p := mdns.Packet{
		Header:  mdns.Header{Flags: mdns.FlagResponse},
		Answers: r.serviceAnswerRecords(svc),
	}

	instanceName := svc.InstanceNameLabels(r.Table.Domain)
	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	longTTL := svc.EffectiveTTL(mdns.LongTTL)

	v4, v6 := splitByFamily(r.effectiveAddresses(svc))

	for _, ip := range v4 {
		if rev, ok := names.ReverseDNSName(ip); ok {
			p.Additional = append(p.Additional, mdns.NewNSEC(rev, []mdns.RRType{mdns.TypePTR}, true, shortTTL))
		}
	}
	for _, ip := range v6 {
		if rev, ok := names.ReverseDNSName(ip); ok {
			p.Additional = append(p.Additional, mdns.NewNSEC(rev, []mdns.RRType{mdns.TypePTR}, true, shortTTL))
		}
	}

	p.Additional = append(p.Additional, mdns.NewNSEC(svc.Hostname, r.hostNSECBitmap(svc), true, shortTTL))
	p.Additional = append(p.Additional, mdns.NewNSEC(instanceName, []mdns.RRType{mdns.TypeTXT, mdns.TypeSRV}, true, longTTL))

	return p
}

// AnnouncementPacket rebuilds id's announcement packet without mutating
// its lifecycle state, for re-transmission while still Announcing (the
// driver calls this for every repeat beyond the first, which
// OnProbingSucceeded already returned).
func (r *Repository) AnnouncementPacket(id registry.ServiceID) (*AnnouncementInfo, error) {
	svc, ok := r.Table.Get(id)
	if !ok {
		return nil, mdns.NewError(mdns.NoTransaction, "unknown service id %d", id)
	}
	return &AnnouncementInfo{ServiceID: id, Packet: r.buildAnnouncement(svc)}, nil
}

// OnAdvertisementSent records that sentCount announcement packets have
// been transmitted for id and transitions Announcing to Active once at
// least AnnouncementsForActive have been sent.
func (r *Repository) OnAdvertisementSent(id registry.ServiceID, sentCount int) error {
	svc, ok := r.Table.Get(id)
	if !ok {
		return mdns.NewError(mdns.NoTransaction, "unknown service id %d", id)
	}

	svc.SentPacketCount = sentCount
	if svc.State == registry.Announcing && sentCount >= mdns.AnnouncementsForActive {
		svc.State = registry.Active
	}
	return nil
}
