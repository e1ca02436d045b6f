package repository

import (
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// ExitService builds the goodbye (exit announcement) packet for id, per
// spec.md section 4.4.3: every PTR record the registration advertised
// (type, subtype, and enumeration PTRs), each with TTL 0, and no other
// section populated.
//
// It is emitted once, the first time ExitService is called after at least
// one announcement has been sent; further calls are idempotent no-ops
// returning (nil, nil). RemoveService is expected to follow.
func (r *Repository) ExitService(id registry.ServiceID) (*mdns.Packet, error) {
	svc, ok := r.Table.Get(id)
	if !ok {
		return nil, mdns.NewError(mdns.NoTransaction, "unknown service id %d", id)
	}

	if err := r.Table.ExitService(id); err != nil {
		return nil, err
	}

	if svc.ExitAnnounced {
		return nil, nil
	}
	if svc.SentPacketCount == 0 {
		// No announcement has gone out yet; there is nothing to
		// retract. The caller should simply call RemoveService.
		return nil, nil
	}

	svc.ExitAnnounced = true

	p := &mdns.Packet{Header: mdns.Header{Flags: mdns.FlagResponse}}
	for _, rec := range r.serviceRegistrationRecords(svc) {
		if rec.Type == mdns.TypePTR {
			goodbye := rec
			goodbye.TTL = 0
			p.Answers = append(p.Answers, goodbye)
		}
	}

	return p, nil
}
