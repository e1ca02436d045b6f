package repository

import (
	"net"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
)

// Reply is the result of answering an incoming mDNS query, per spec.md
// section 4.4.4.
type Reply struct {
	// Destination is where the reply should be sent: the packet's
	// source for a unicast reply, or the mDNS group address matching
	// the source's address family for a multicast reply.
	Destination *net.UDPAddr
	Unicast     bool

	Answers           []mdns.Record
	AdditionalAnswers []mdns.Record

	// KnownAnswers echoes the known-answer records from the query that
	// matched an answer but had too little TTL left to suppress it.
	KnownAnswers []mdns.Record
}

// GetReply synthesizes a reply to an incoming mDNS packet received from
// src at now, per spec.md section 4.4.4. It returns (nil, false) when no
// reply should be sent: no question matched any registration, every
// matching answer was known-answer-suppressed, or the packet is a
// truncated, question-less known-answer continuation (spec.md section 9,
// Open Question (a): treated conservatively as "no reply now", with no
// state cached across packets).
func (r *Repository) GetReply(pkt *mdns.Packet, src *net.UDPAddr, now time.Time) (*Reply, bool) {
	if pkt == nil {
		return nil, false
	}

	if pkt.Header.Truncated && len(pkt.Questions) == 0 && len(pkt.Answers) > 0 {
		logging.Debug(r.Logger, "mdns: dropping truncated known-answer-only continuation from %s", src)
		return nil, false
	}

	var (
		matchedAnswers  []mdns.Record
		knownAnswers    []mdns.Record
		matchedUnicast  []bool
	)

	for _, q := range pkt.Questions {
		var qAnswers []mdns.Record
		for _, svc := range r.Table.All() {
			qAnswers = append(qAnswers, r.matchQuestion(svc, q)...)
		}
		if len(qAnswers) == 0 {
			continue
		}
		matchedUnicast = append(matchedUnicast, q.Unicast)

		for _, a := range qAnswers {
			ka, found := r.matchingKnownAnswer(pkt, a)
			if found {
				if ka.RemainingTTL(now) >= a.TTL/2 {
					// Suppressed: the querier already has a
					// sufficiently fresh copy.
					continue
				}
				// Retained: produce the answer and echo the
				// known-answer record that nearly suppressed it.
				knownAnswers = append(knownAnswers, ka)
			}
			matchedAnswers = append(matchedAnswers, a)
		}
	}

	if len(matchedUnicast) == 0 {
		logging.Debug(r.Logger, "mdns: no question in packet from %s matched a registration", src)
		return nil, false
	}

	matchedAnswers = dedupRecords(matchedAnswers)
	if len(matchedAnswers) == 0 {
		logging.Debug(r.Logger, "mdns: every matched answer to %s was known-answer-suppressed", src)
		return nil, false
	}

	additional := r.synthesizeAdditional(matchedAnswers)
	additional = subtractRecords(dedupRecords(additional), matchedAnswers)

	reply := &Reply{
		Answers:           matchedAnswers,
		AdditionalAnswers: additional,
		KnownAnswers:      dedupRecords(knownAnswers),
	}

	allUnicast := true
	for _, u := range matchedUnicast {
		if !u {
			allUnicast = false
			break
		}
	}

	if r.Config.UnicastReply && allUnicast {
		reply.Unicast = true
		reply.Destination = src
	} else {
		reply.Unicast = false
		reply.Destination = groupAddressFor(src)
	}

	return reply, true
}

// matchingKnownAnswer returns the record in pkt's answer section that
// shares a's (name, type, rdata) identity, if known-answer suppression is
// enabled and one exists.
func (r *Repository) matchingKnownAnswer(pkt *mdns.Packet, a mdns.Record) (mdns.Record, bool) {
	if !r.Config.KnownAnswerSuppression {
		return mdns.Record{}, false
	}
	for _, ka := range pkt.Answers {
		if ka.Type != a.Type || !names.LabelsEqual(ka.Name, a.Name) || !ka.SameRdata(a) {
			continue
		}
		return ka, true
	}
	return mdns.Record{}, false
}

// groupAddressFor returns the mDNS multicast group address matching src's
// address family.
func groupAddressFor(src *net.UDPAddr) *net.UDPAddr {
	if src != nil && src.IP.To4() != nil {
		return mdns.IPv4Address
	}
	return mdns.IPv6Address
}

// matchQuestion returns the records svc contributes as an answer to q. It
// returns nothing for a registration that is still Probing, per spec.md
// section 4.4.4 step 1 ("probing states are skipped").
func (r *Repository) matchQuestion(svc *registry.Service, q mdns.Question) []mdns.Record {
	if svc.State == registry.Probing {
		return nil
	}

	wants := func(t mdns.RRType) bool { return q.Type == mdns.TypeANY || q.Type == t }

	var out []mdns.Record
	instanceName := svc.InstanceNameLabels(r.Table.Domain)
	typeName := names.Join(svc.ServiceType, r.Table.Domain)
	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	longTTL := svc.EffectiveTTL(mdns.LongTTL)

	if wants(mdns.TypePTR) {
		if names.LabelsEqual(q.Name, typeName) || isDeclaredSubtypeQuery(svc, r.Table.Domain, q.Name) {
			out = append(out, mdns.NewPTR(q.Name, instanceName, false, longTTL))
		}

		if names.LabelsEqual(q.Name, servicesEnumerationName(r.Table.Domain)) {
			out = append(out, mdns.NewPTR(q.Name, typeName, false, longTTL))
		}

		for _, ip := range r.effectiveAddresses(svc) {
			if rev, ok := names.ReverseDNSName(ip); ok && names.LabelsEqual(q.Name, rev) {
				out = append(out, mdns.NewPTR(q.Name, svc.Hostname, true, shortTTL))
			}
		}
	}

	if names.LabelsEqual(q.Name, instanceName) {
		if wants(mdns.TypeSRV) {
			out = append(out, mdns.NewSRV(instanceName, 0, 0, svc.Port, svc.Hostname, true, shortTTL))
		}
		if wants(mdns.TypeTXT) {
			out = append(out, mdns.NewTXT(instanceName, svc.TXT, true, longTTL))
		}
	}

	if names.LabelsEqual(q.Name, svc.Hostname) {
		v4, v6 := splitByFamily(r.effectiveAddresses(svc))
		if wants(mdns.TypeA) {
			for _, ip := range v4 {
				out = append(out, mdns.NewA(svc.Hostname, ip, true, shortTTL))
			}
		}
		if wants(mdns.TypeAAAA) {
			for _, ip := range v6 {
				out = append(out, mdns.NewAAAA(svc.Hostname, ip, true, shortTTL))
			}
		}
	}

	return out
}

// isDeclaredSubtypeQuery reports whether qName is a selective instance
// enumeration name ("_printer._sub._http._tcp.local") for a subtype svc
// actually declared, using names.TypeEqualsOrIsSubtype for the structural
// check and then verifying registration membership.
func isDeclaredSubtypeQuery(svc *registry.Service, domain, qName names.Labels) bool {
	full := names.Join(svc.ServiceType, domain)
	if len(qName) != len(full)+2 {
		return false
	}
	if !names.TypeEqualsOrIsSubtype(full, qName) {
		return false
	}
	claimed := qName[0]
	for _, st := range svc.Subtypes {
		if names.LabelEqual(st, claimed) {
			return true
		}
	}
	return false
}

// synthesizeAdditional returns the additional-section records that
// pre-empt likely follow-up queries for the given matched answers, per
// spec.md section 4.4.4 step 3.
func (r *Repository) synthesizeAdditional(answers []mdns.Record) []mdns.Record {
	var out []mdns.Record

	for _, a := range answers {
		switch a.Type {
		case mdns.TypePTR:
			if svc := r.findServiceByInstanceName(a.Pointer); svc != nil {
				out = append(out, r.instanceAdditional(svc)...)
			}
		case mdns.TypeSRV:
			if svc := r.findServiceByInstanceName(a.Name); svc != nil {
				out = append(out, r.hostAdditional(svc)...)
			}
		case mdns.TypeA, mdns.TypeAAAA:
			if svc := r.findServiceByHostname(a.Name); svc != nil {
				out = append(out, mdns.NewNSEC(svc.Hostname, r.hostNSECBitmap(svc), true, svc.EffectiveTTL(mdns.ShortTTL)))
			}
		}
	}

	return out
}

func (r *Repository) instanceAdditional(svc *registry.Service) []mdns.Record {
	instanceName := svc.InstanceNameLabels(r.Table.Domain)
	shortTTL := svc.EffectiveTTL(mdns.ShortTTL)
	longTTL := svc.EffectiveTTL(mdns.LongTTL)

	var out []mdns.Record
	out = append(out, mdns.NewSRV(instanceName, 0, 0, svc.Port, svc.Hostname, true, shortTTL))
	out = append(out, mdns.NewTXT(instanceName, svc.TXT, true, longTTL))
	out = append(out, r.hostAddressRecords(svc)...)
	out = append(out, mdns.NewNSEC(instanceName, []mdns.RRType{mdns.TypeTXT, mdns.TypeSRV}, true, longTTL))
	out = append(out, mdns.NewNSEC(svc.Hostname, r.hostNSECBitmap(svc), true, shortTTL))
	return out
}

func (r *Repository) hostAdditional(svc *registry.Service) []mdns.Record {
	var out []mdns.Record
	out = append(out, r.hostAddressRecords(svc)...)
	out = append(out, mdns.NewNSEC(svc.Hostname, r.hostNSECBitmap(svc), true, svc.EffectiveTTL(mdns.ShortTTL)))
	return out
}

func (r *Repository) findServiceByInstanceName(name names.Labels) *registry.Service {
	for _, svc := range r.Table.All() {
		if names.LabelsEqual(svc.InstanceNameLabels(r.Table.Domain), name) {
			return svc
		}
	}
	return nil
}

func (r *Repository) findServiceByHostname(name names.Labels) *registry.Service {
	for _, svc := range r.Table.All() {
		if names.LabelsEqual(svc.Hostname, name) {
			return svc
		}
	}
	return nil
}

// dedupRecords removes records with duplicate (name, type, rdata) identity,
// keeping the first occurrence, per spec.md section 4.4.4 step 3.
func dedupRecords(records []mdns.Record) []mdns.Record {
	seen := map[string]bool{}
	out := make([]mdns.Record, 0, len(records))
	for _, rec := range records {
		k := rec.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, rec)
	}
	return out
}

// subtractRecords removes from records any entry whose identity also
// appears in exclude.
func subtractRecords(records, exclude []mdns.Record) []mdns.Record {
	excluded := map[string]bool{}
	for _, rec := range exclude {
		excluded[rec.Key()] = true
	}
	out := make([]mdns.Record, 0, len(records))
	for _, rec := range records {
		if !excluded[rec.Key()] {
			out = append(out, rec)
		}
	}
	return out
}
