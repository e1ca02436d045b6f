package mdns

import (
	"time"

	"github.com/miekg/dns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
)

// Header carries the packet-level fields outside the four record sections.
type Header struct {
	TransactionID uint16
	// Flags mirrors the raw DNS header flags (QR, Opcode, AA, TC, ...) as
	// packed by RFC 6762 section 18; see the Flags* constants below for
	// the combinations this module produces.
	Flags     uint16
	Truncated bool
}

// FlagQuery is the header flags value for probe queries: all bits zero.
const FlagQuery uint16 = 0

// FlagResponse is the header flags value for announcement/exit/reply
// packets: QR (response) and AA (authoritative) set, per RFC 6762
// section 18.4.
const FlagResponse uint16 = 0x8400

// Question is a single entry in a packet's question section.
type Question struct {
	Type    RRType
	Name    names.Labels
	Unicast bool
}

// Packet is the mDNS message model: a header plus the four RFC 1035
// sections, carried independently of any wire encoding.
type Packet struct {
	Header     Header
	Questions  []Question
	Answers    []Record
	Authority  []Record
	Additional []Record
}

// IsEmpty reports whether p carries no questions or records in any
// section.
func (p *Packet) IsEmpty() bool {
	return len(p.Questions) == 0 && len(p.Answers) == 0 &&
		len(p.Authority) == 0 && len(p.Additional) == 0
}

// ToMsg renders p as a github.com/miekg/dns message ready for packing.
func (p *Packet) ToMsg() (*dns.Msg, error) {
	m := &dns.Msg{}
	m.Id = p.Header.TransactionID
	m.Response = p.Header.Flags&0x8000 != 0
	m.Authoritative = p.Header.Flags&0x0400 != 0
	m.Truncated = p.Header.Truncated
	m.Opcode = dns.OpcodeQuery
	m.Compress = true

	for _, q := range p.Questions {
		dnsType, ok := rrTypeToDNS(q.Type)
		if !ok {
			return nil, NewError(InternalError, "question has unrecognised type %d", q.Type)
		}
		class := uint16(dns.ClassINET)
		if q.Unicast {
			class |= UnicastQuestionBit
		}
		m.Question = append(m.Question, dns.Question{
			Name:   q.Name.FQDN(),
			Qtype:  dnsType,
			Qclass: class,
		})
	}

	for _, sec := range []struct {
		records []Record
		out     *[]dns.RR
	}{
		{p.Answers, &m.Answer},
		{p.Authority, &m.Ns},
		{p.Additional, &m.Extra},
	} {
		for _, r := range sec.records {
			rr, err := r.ToRR()
			if err != nil {
				return nil, err
			}
			*sec.out = append(*sec.out, rr)
		}
	}

	return m, nil
}

// PacketFromMsg decodes a github.com/miekg/dns message, received at
// receiptTime, into a Packet. Resource records of an unrecognised type are
// silently skipped rather than causing an error, matching this module's
// "malformed/unknown input is dropped, never propagated" error policy.
func PacketFromMsg(m *dns.Msg, receiptTime time.Time) *Packet {
	p := &Packet{
		Header: Header{
			TransactionID: m.Id,
			Truncated:     m.Truncated,
		},
	}

	if m.Response {
		p.Header.Flags |= 0x8000
	}
	if m.Authoritative {
		p.Header.Flags |= 0x0400
	}

	for _, q := range m.Question {
		dnsType := q.Qtype
		unicast := q.Qclass&UnicastQuestionBit != 0
		qtype, ok := dnsTypeToRRType(dnsType)
		if !ok {
			continue
		}
		p.Questions = append(p.Questions, Question{
			Type:    qtype,
			Name:    names.Parse(q.Name),
			Unicast: unicast,
		})
	}

	for _, sec := range []struct {
		in  []dns.RR
		out *[]Record
	}{
		{m.Answer, &p.Answers},
		{m.Ns, &p.Authority},
		{m.Extra, &p.Additional},
	} {
		for _, rr := range sec.in {
			r, ok := RecordFromRR(rr, receiptTime)
			if ok {
				*sec.out = append(*sec.out, r)
			}
		}
	}

	return p
}
