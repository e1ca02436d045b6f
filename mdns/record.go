package mdns

import (
	"bytes"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
)

// RRType is the discriminant of a Record's variant.
type RRType int

const (
	TypePTR RRType = iota
	TypeSRV
	TypeTXT
	TypeA
	TypeAAAA
	TypeNSEC
	// TypeANY matches any record type; it is only meaningful in a
	// Question, never in an answer.
	TypeANY
)

func (t RRType) String() string {
	switch t {
	case TypePTR:
		return "PTR"
	case TypeSRV:
		return "SRV"
	case TypeTXT:
		return "TXT"
	case TypeA:
		return "A"
	case TypeAAAA:
		return "AAAA"
	case TypeNSEC:
		return "NSEC"
	case TypeANY:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// TXTEntry is a single key/value pair within a TXT record.
//
// A key with no "=" at all (HasValue == false) is distinct from a key with
// an explicit, possibly zero-length, value ("key=", HasValue == true,
// len(Value) == 0).
type TXTEntry struct {
	Key      string
	HasValue bool
	Value    []byte
}

// Record is a tagged union of the DNS resource record (and ANY-question)
// variants the repository needs. Only the fields relevant to Type are
// meaningful.
type Record struct {
	Type       RRType
	Name       names.Labels
	CacheFlush bool
	TTL        time.Duration

	// ReceiptTime is the time this record was received on the wire. It is
	// the zero time.Time for locally-generated records, which never age.
	ReceiptTime time.Time

	// Unicast is set on ANY questions that requested a unicast response.
	Unicast bool

	// PTR
	Pointer names.Labels

	// SRV
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   names.Labels

	// TXT
	Entries []TXTEntry

	// A / AAAA
	IP net.IP

	// NSEC
	NextDomain names.Labels
	TypeBitmap map[RRType]struct{}
}

// NewPTR returns a locally-generated PTR record.
func NewPTR(name, pointer names.Labels, cacheFlush bool, ttl time.Duration) Record {
	return Record{Type: TypePTR, Name: name, Pointer: pointer, CacheFlush: cacheFlush, TTL: ttl}
}

// NewSRV returns a locally-generated SRV record.
func NewSRV(name names.Labels, priority, weight, port uint16, target names.Labels, cacheFlush bool, ttl time.Duration) Record {
	return Record{
		Type: TypeSRV, Name: name, Priority: priority, Weight: weight,
		Port: port, Target: target, CacheFlush: cacheFlush, TTL: ttl,
	}
}

// NewTXT returns a locally-generated TXT record.
func NewTXT(name names.Labels, entries []TXTEntry, cacheFlush bool, ttl time.Duration) Record {
	return Record{Type: TypeTXT, Name: name, Entries: entries, CacheFlush: cacheFlush, TTL: ttl}
}

// NewA returns a locally-generated A record.
func NewA(name names.Labels, ip net.IP, cacheFlush bool, ttl time.Duration) Record {
	return Record{Type: TypeA, Name: name, IP: ip.To4(), CacheFlush: cacheFlush, TTL: ttl}
}

// NewAAAA returns a locally-generated AAAA record.
func NewAAAA(name names.Labels, ip net.IP, cacheFlush bool, ttl time.Duration) Record {
	return Record{Type: TypeAAAA, Name: name, IP: ip.To16(), CacheFlush: cacheFlush, TTL: ttl}
}

// NewNSEC returns a locally-generated NSEC record asserting that no types
// other than those in bitmap exist at name.
func NewNSEC(name names.Labels, bitmap []RRType, cacheFlush bool, ttl time.Duration) Record {
	m := make(map[RRType]struct{}, len(bitmap))
	for _, t := range bitmap {
		m[t] = struct{}{}
	}
	return Record{Type: TypeNSEC, Name: name, NextDomain: name, TypeBitmap: m, CacheFlush: cacheFlush, TTL: ttl}
}

// NewANYQuestion returns an ANY question record.
func NewANYQuestion(name names.Labels, unicast bool) Record {
	return Record{Type: TypeANY, Name: name, Unicast: unicast}
}

// RemainingTTL returns the time remaining before r expires, as observed at
// now. Locally-generated records (zero ReceiptTime) never age.
func (r Record) RemainingTTL(now time.Time) time.Duration {
	if r.ReceiptTime.IsZero() {
		return r.TTL
	}
	elapsed := now.Sub(r.ReceiptTime)
	remaining := r.TTL - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// rdataKey returns a string uniquely identifying r's rdata, used for
// dedup and conflict comparison. It does not include TTL or cache-flush.
func (r Record) rdataKey() string {
	switch r.Type {
	case TypePTR:
		return names.FoldString(r.Pointer.FQDN())
	case TypeSRV:
		return fmt.Sprintf("%d/%d/%d/%s", r.Priority, r.Weight, r.Port, names.FoldString(r.Target.FQDN()))
	case TypeTXT:
		var b bytes.Buffer
		for _, e := range r.Entries {
			b.WriteString(e.Key)
			if e.HasValue {
				b.WriteByte('=')
				b.Write(e.Value)
			}
			b.WriteByte(0)
		}
		return b.String()
	case TypeA, TypeAAAA:
		return r.IP.String()
	case TypeNSEC:
		types := make([]string, 0, len(r.TypeBitmap))
		for t := range r.TypeBitmap {
			types = append(types, t.String())
		}
		sort.Strings(types)
		return names.FoldString(r.NextDomain.FQDN()) + "|" + strings.Join(types, ",")
	default:
		return ""
	}
}

// Key identifies a record's (name, type, rdata) identity for deduplication
// purposes, folded to DNS lowercase per RFC 6762.
func (r Record) Key() string {
	return fmt.Sprintf("%s|%d|%s", names.FoldString(r.Name.FQDN()), r.Type, r.rdataKey())
}

// SameRdata reports whether r and other carry identical rdata (ignoring
// TTL, cache-flush, and receipt time). Names are not compared.
func (r Record) SameRdata(other Record) bool {
	return r.Type == other.Type && r.rdataKey() == other.rdataKey()
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	c.Name = r.Name.Clone()
	c.Pointer = r.Pointer.Clone()
	c.Target = r.Target.Clone()
	c.NextDomain = r.NextDomain.Clone()
	if r.IP != nil {
		c.IP = append(net.IP{}, r.IP...)
	}
	if r.Entries != nil {
		c.Entries = make([]TXTEntry, len(r.Entries))
		for i, e := range r.Entries {
			c.Entries[i] = e
			if e.Value != nil {
				c.Entries[i].Value = append([]byte{}, e.Value...)
			}
		}
	}
	if r.TypeBitmap != nil {
		c.TypeBitmap = make(map[RRType]struct{}, len(r.TypeBitmap))
		for t := range r.TypeBitmap {
			c.TypeBitmap[t] = struct{}{}
		}
	}
	return c
}
