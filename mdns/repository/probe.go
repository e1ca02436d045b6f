package repository

import (
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// SetServiceProbing builds the probe packet for id, per spec.md
// section 4.4.1. The caller is responsible for (re-)transmitting it
// ProbeRepeatCount times, ProbeSpacing apart.
//
// It returns an error if id is unknown.
func (r *Repository) SetServiceProbing(id registry.ServiceID) (*ProbingInfo, error) {
	svc, ok := r.Table.Get(id)
	if !ok {
		return nil, mdns.NewError(mdns.NoTransaction, "unknown service id %d", id)
	}

	instanceName := svc.InstanceNameLabels(r.Table.Domain)

	p := mdns.Packet{
		Header: mdns.Header{Flags: mdns.FlagQuery},
	}

	p.Questions = append(p.Questions, mdns.Question{
		Type: mdns.TypeANY,
		Name: instanceName,
	})

	p.Authority = append(p.Authority, mdns.NewSRV(
		instanceName,
		0, 0, svc.Port,
		svc.Hostname,
		true,
		svc.EffectiveTTL(mdns.ShortTTL),
	))

	if r.Config.IncludeHostInProbing {
		p.Questions = append(p.Questions, mdns.Question{
			Type: mdns.TypeANY,
			Name: svc.Hostname,
		})

		v4, v6 := splitByFamily(r.effectiveAddresses(svc))
		for _, ip := range v4 {
			p.Authority = append(p.Authority, mdns.NewA(svc.Hostname, ip, true, svc.EffectiveTTL(mdns.ShortTTL)))
		}
		for _, ip := range v6 {
			p.Authority = append(p.Authority, mdns.NewAAAA(svc.Hostname, ip, true, svc.EffectiveTTL(mdns.ShortTTL)))
		}
	}

	return &ProbingInfo{ServiceID: id, Packet: p}, nil
}
