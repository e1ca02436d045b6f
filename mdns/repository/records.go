package repository

import (
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// hostRecords returns the reverse-DNS PTR and forward A/AAAA records for
// svc's host addresses.
func (r *Repository) hostRecords(svc *registry.Service) []mdns.Record {
	var out []mdns.Record
	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	v4, v6 := splitByFamily(r.effectiveAddresses(svc))

	for _, ip := range v4 {
		if rev, ok := names.ReverseDNSName(ip); ok {
			out = append(out, mdns.NewPTR(rev, svc.Hostname, true, shortTTL))
		}
		out = append(out, mdns.NewA(svc.Hostname, ip, true, shortTTL))
	}
	for _, ip := range v6 {
		if rev, ok := names.ReverseDNSName(ip); ok {
			out = append(out, mdns.NewPTR(rev, svc.Hostname, true, shortTTL))
		}
		out = append(out, mdns.NewAAAA(svc.Hostname, ip, true, shortTTL))
	}
	return out
}

// hostAddressRecords returns just the forward A/AAAA records svc's host
// advertises, without any reverse-DNS PTRs or DNS-SD registration records.
func (r *Repository) hostAddressRecords(svc *registry.Service) []mdns.Record {
	var out []mdns.Record
	v4, v6 := splitByFamily(r.effectiveAddresses(svc))
	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	for _, ip := range v4 {
		out = append(out, mdns.NewA(svc.Hostname, ip, true, shortTTL))
	}
	for _, ip := range v6 {
		out = append(out, mdns.NewAAAA(svc.Hostname, ip, true, shortTTL))
	}
	return out
}

// serviceRegistrationRecords returns svc's DNS-SD registration records:
// the type PTR, one PTR per subtype, the SRV, the TXT, and the service-type
// enumeration PTR. It excludes host address and reverse-DNS records.
func (r *Repository) serviceRegistrationRecords(svc *registry.Service) []mdns.Record {
	var out []mdns.Record

	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	longTTL := svc.EffectiveTTL(mdns.LongTTL)
	instanceName := svc.InstanceNameLabels(r.Table.Domain)
	typeName := names.Join(svc.ServiceType, r.Table.Domain)

	out = append(out, mdns.NewPTR(typeName, instanceName, false, longTTL))
	for _, subtypeName := range svc.SubtypeNames(r.Table.Domain) {
		out = append(out, mdns.NewPTR(subtypeName, instanceName, false, longTTL))
	}

	out = append(out, mdns.NewSRV(instanceName, 0, 0, svc.Port, svc.Hostname, true, shortTTL))
	out = append(out, mdns.NewTXT(instanceName, svc.TXT, true, longTTL))
	out = append(out, mdns.NewPTR(servicesEnumerationName(r.Table.Domain), typeName, false, longTTL))

	return out
}

// serviceAnswerRecords returns every answer-capable record svc owns: its
// host records plus its DNS-SD registration records. It is the shared
// basis for the announcement packet, query matching, and conflict
// detection, so all three agree on exactly what a registration advertises.
func (r *Repository) serviceAnswerRecords(svc *registry.Service) []mdns.Record {
	out := r.hostRecords(svc)
	return append(out, r.serviceRegistrationRecords(svc)...)
}

// hostNSECBitmap returns the NSEC type bitmap advertised at svc's
// hostname: the subset of {A, AAAA} for which svc actually has addresses.
func (r *Repository) hostNSECBitmap(svc *registry.Service) []mdns.RRType {
	v4, v6 := splitByFamily(r.effectiveAddresses(svc))
	var bitmap []mdns.RRType
	if len(v4) > 0 {
		bitmap = append(bitmap, mdns.TypeA)
	}
	if len(v6) > 0 {
		bitmap = append(bitmap, mdns.TypeAAAA)
	}
	return bitmap
}
