package repository

import (
	"github.com/dogmatiq/dodeca/logging"
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// ConflictKind classifies a detected name conflict, per spec.md
// section 4.4.5.
type ConflictKind int

const (
	// Service conflict: an incoming SRV or TXT record collides with one
	// of our own at the same instance name but differs in rdata or TTL.
	Service ConflictKind = iota
	// Host conflict: an incoming A/AAAA record set for one of our custom
	// hosts includes an address we do not own for that host.
	Host
)

func (k ConflictKind) String() string {
	switch k {
	case Service:
		return "SERVICE"
	case Host:
		return "HOST"
	default:
		return "UNKNOWN"
	}
}

// GetConflictingServices reports, for every registration whose SRV/TXT or
// custom-host A/AAAA records the incoming packet contradicts, the kind of
// conflict found. Identical records (matching name, rdata, and our
// configured TTL) are never conflicts. It never errors: malformed or
// irrelevant input simply yields no conflicts.
//
// Tie-breaking for who wins a probing-time conflict (RFC 6762 section 8.2)
// is left to the caller; this only surfaces that a conflict exists.
func (r *Repository) GetConflictingServices(pkt *mdns.Packet) map[registry.ServiceID]ConflictKind {
	if pkt == nil {
		return nil
	}

	incoming := make([]mdns.Record, 0, len(pkt.Answers)+len(pkt.Authority)+len(pkt.Additional))
	incoming = append(incoming, pkt.Answers...)
	incoming = append(incoming, pkt.Authority...)
	incoming = append(incoming, pkt.Additional...)

	hostAddrs := map[string][]mdns.Record{}
	for _, rec := range incoming {
		if rec.Type == mdns.TypeA || rec.Type == mdns.TypeAAAA {
			key := names.FoldString(rec.Name.FQDN())
			hostAddrs[key] = append(hostAddrs[key], rec)
		}
	}

	conflicts := map[registry.ServiceID]ConflictKind{}
	for _, svc := range r.Table.All() {
		if kind, ok := r.serviceConflict(svc, incoming); ok {
			logging.Log(r.Logger, "mdns: service %d (%s.%s) conflicts with an incoming record", int(svc.ID), svc.InstanceName, svc.ServiceType)
			conflicts[svc.ID] = kind
			continue
		}
		if svc.IsCustomHost && hostConflict(svc, hostAddrs) {
			logging.Log(r.Logger, "mdns: custom host %s used by service %d conflicts with an incoming address", svc.Hostname, int(svc.ID))
			conflicts[svc.ID] = Host
		}
	}

	return conflicts
}

// serviceConflict compares incoming against svc's own SRV and TXT
// records, per spec.md section 4.4.5.
func (r *Repository) serviceConflict(svc *registry.Service, incoming []mdns.Record) (ConflictKind, bool) {
	instanceName := svc.InstanceNameLabels(r.Table.Domain)
	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	longTTL := svc.EffectiveTTL(mdns.LongTTL)

	ours := map[mdns.RRType]mdns.Record{
		mdns.TypeSRV: mdns.NewSRV(instanceName, 0, 0, svc.Port, svc.Hostname, true, shortTTL),
		mdns.TypeTXT: mdns.NewTXT(instanceName, svc.TXT, true, longTTL),
	}

	for _, rec := range incoming {
		own, ok := ours[rec.Type]
		if !ok || !names.LabelsEqual(rec.Name, instanceName) {
			continue
		}
		if !rec.SameRdata(own) || rec.TTL != own.TTL {
			return Service, true
		}
	}

	return 0, false
}

// hostConflict reports whether any incoming address recorded against
// svc's hostname is not one svc itself advertises for that host.
func hostConflict(svc *registry.Service, hostAddrs map[string][]mdns.Record) bool {
	key := names.FoldString(svc.Hostname.FQDN())
	recs, ok := hostAddrs[key]
	if !ok {
		return false
	}

	owned := map[string]bool{}
	for _, ip := range svc.Addresses {
		owned[ip.String()] = true
	}

	for _, rec := range recs {
		if !owned[rec.IP.String()] {
			return true
		}
	}

	return false
}
