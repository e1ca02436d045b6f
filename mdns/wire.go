package mdns

import (
	"sort"
	"time"

	"github.com/miekg/dns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
)

// UniqueRecordBit is the top bit of the class field used, per RFC 6762
// section 10.2, to mark a resource record as belonging to a "unique"
// (cache-flush) RRSet.
const UniqueRecordBit = 1 << 15

// UnicastQuestionBit is the top bit of the qclass field used, per
// RFC 6762 section 18.12, to request a unicast response to a question.
const UnicastQuestionBit = 1 << 15

func rrTypeToDNS(t RRType) (uint16, bool) {
	switch t {
	case TypePTR:
		return dns.TypePTR, true
	case TypeSRV:
		return dns.TypeSRV, true
	case TypeTXT:
		return dns.TypeTXT, true
	case TypeA:
		return dns.TypeA, true
	case TypeAAAA:
		return dns.TypeAAAA, true
	case TypeNSEC:
		return dns.TypeNSEC, true
	case TypeANY:
		return dns.TypeANY, true
	default:
		return 0, false
	}
}

func dnsTypeToRRType(t uint16) (RRType, bool) {
	switch t {
	case dns.TypePTR:
		return TypePTR, true
	case dns.TypeSRV:
		return TypeSRV, true
	case dns.TypeTXT:
		return TypeTXT, true
	case dns.TypeA:
		return TypeA, true
	case dns.TypeAAAA:
		return TypeAAAA, true
	case dns.TypeNSEC:
		return TypeNSEC, true
	case dns.TypeANY:
		return TypeANY, true
	default:
		return 0, false
	}
}

// ToRR converts r into its github.com/miekg/dns wire representation. It
// returns an error if r's Type has no answer-record form (TypeANY).
func (r Record) ToRR() (dns.RR, error) {
	dnsType, ok := rrTypeToDNS(r.Type)
	if !ok {
		return nil, NewError(InternalError, "record has unrecognised type %d", r.Type)
	}

	class := uint16(dns.ClassINET)
	if r.CacheFlush {
		class |= UniqueRecordBit
	}

	hdr := dns.RR_Header{
		Name:   r.Name.FQDN(),
		Rrtype: dnsType,
		Class:  class,
		Ttl:    uint32(r.TTL / time.Second),
	}

	switch r.Type {
	case TypePTR:
		return &dns.PTR{Hdr: hdr, Ptr: r.Pointer.FQDN()}, nil

	case TypeSRV:
		return &dns.SRV{
			Hdr:      hdr,
			Priority: r.Priority,
			Weight:   r.Weight,
			Port:     r.Port,
			Target:   r.Target.FQDN(),
		}, nil

	case TypeTXT:
		txt := &dns.TXT{Hdr: hdr}
		for _, e := range r.Entries {
			if e.HasValue {
				txt.Txt = append(txt.Txt, e.Key+"="+string(e.Value))
			} else {
				txt.Txt = append(txt.Txt, e.Key)
			}
		}
		if len(txt.Txt) == 0 {
			// RFC 6763 section 6.1: a TXT record with no entries is
			// encoded as a single zero-length string.
			txt.Txt = []string{""}
		}
		return txt, nil

	case TypeA:
		return &dns.A{Hdr: hdr, A: r.IP}, nil

	case TypeAAAA:
		return &dns.AAAA{Hdr: hdr, AAAA: r.IP}, nil

	case TypeNSEC:
		hdr.Rrtype = dns.TypeNSEC
		bitmap := make([]uint16, 0, len(r.TypeBitmap))
		for t := range r.TypeBitmap {
			dt, ok := rrTypeToDNS(t)
			if ok {
				bitmap = append(bitmap, dt)
			}
		}
		sort.Slice(bitmap, func(i, j int) bool { return bitmap[i] < bitmap[j] })
		return &dns.NSEC{
			Hdr:        hdr,
			NextDomain: r.NextDomain.FQDN(),
			TypeBitMap: bitmap,
		}, nil

	default:
		return nil, NewError(InternalError, "record type %s has no wire answer form", r.Type)
	}
}

// RecordFromRR converts a wire resource record, received at receiptTime,
// into a Record. It returns (Record{}, false) for record types the
// repository does not model (everything but PTR/SRV/TXT/A/AAAA/NSEC).
func RecordFromRR(rr dns.RR, receiptTime time.Time) (Record, bool) {
	hdr := rr.Header()
	cacheFlush := hdr.Class&UniqueRecordBit != 0
	ttl := time.Duration(hdr.Ttl) * time.Second
	name := names.Parse(hdr.Name)

	base := Record{
		Name:        name,
		CacheFlush:  cacheFlush,
		TTL:         ttl,
		ReceiptTime: receiptTime,
	}

	switch v := rr.(type) {
	case *dns.PTR:
		base.Type = TypePTR
		base.Pointer = names.Parse(v.Ptr)
		return base, true

	case *dns.SRV:
		base.Type = TypeSRV
		base.Priority = v.Priority
		base.Weight = v.Weight
		base.Port = v.Port
		base.Target = names.Parse(v.Target)
		return base, true

	case *dns.TXT:
		base.Type = TypeTXT
		seen := map[string]bool{}
		for _, s := range v.Txt {
			if s == "" {
				// RFC 6763 section 6.1: a zero-length string carries no
				// entry (it is how an empty TXT record is encoded).
				continue
			}
			key, value, hasValue := splitTXT(s)
			if seen[key] {
				// "duplicate keys keep only the first on decode"
				continue
			}
			seen[key] = true
			base.Entries = append(base.Entries, TXTEntry{Key: key, HasValue: hasValue, Value: value})
		}
		return base, true

	case *dns.A:
		base.Type = TypeA
		base.IP = v.A
		return base, true

	case *dns.AAAA:
		base.Type = TypeAAAA
		base.IP = v.AAAA
		return base, true

	case *dns.NSEC:
		base.Type = TypeNSEC
		base.NextDomain = names.Parse(v.NextDomain)
		base.TypeBitmap = map[RRType]struct{}{}
		for _, t := range v.TypeBitMap {
			if rt, ok := dnsTypeToRRType(t); ok {
				base.TypeBitmap[rt] = struct{}{}
			}
		}
		return base, true

	default:
		return Record{}, false
	}
}

// splitTXT splits a single TXT character-string into its key, value, and
// whether an "=" was present at all.
func splitTXT(s string) (key string, value []byte, hasValue bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], []byte(s[i+1:]), true
		}
	}
	return s, nil, false
}

