package mdns_test

import (
	"net"
	"time"

	. "github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ToRR and RecordFromRR", func() {
	now := time.Unix(1700000000, 0)

	It("round-trips a PTR record", func() {
		r := NewPTR(names.Parse("_http._tcp.local"), names.Parse("MyService._http._tcp.local"), false, LongTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.Type).To(Equal(TypePTR))
		Expect(got.Pointer).To(Equal(r.Pointer))
		Expect(got.TTL).To(Equal(LongTTL))
	})

	It("round-trips an SRV record", func() {
		r := NewSRV(names.Parse("MyService._http._tcp.local"), 0, 0, 8080, names.Parse("host.local"), true, ShortTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.Port).To(Equal(uint16(8080)))
		Expect(got.Target).To(Equal(r.Target))
	})

	It("round-trips a TXT record with both valued and bare keys", func() {
		entries := []TXTEntry{
			{Key: "path", HasValue: true, Value: []byte("/index")},
			{Key: "flag"},
		}
		r := NewTXT(names.Parse("MyService._http._tcp.local"), entries, true, LongTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.Entries).To(Equal(entries))
	})

	It("encodes an empty TXT record as a single zero-length string", func() {
		r := NewTXT(names.Parse("MyService._http._tcp.local"), nil, true, LongTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.Entries).To(BeEmpty())
	})

	It("drops a duplicate TXT key, keeping only the first", func() {
		entries := []TXTEntry{
			{Key: "a", HasValue: true, Value: []byte("1")},
			{Key: "a", HasValue: true, Value: []byte("2")},
		}
		r := NewTXT(names.Parse("svc.local"), entries, true, LongTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.Entries).To(HaveLen(1))
		Expect(got.Entries[0].Value).To(Equal([]byte("1")))
	})

	It("round-trips an A record", func() {
		r := NewA(names.Parse("host.local"), net.ParseIP("192.0.2.111"), true, ShortTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.IP.Equal(net.ParseIP("192.0.2.111"))).To(BeTrue())
	})

	It("round-trips an AAAA record", func() {
		r := NewAAAA(names.Parse("host.local"), net.ParseIP("2001:db8::1"), true, ShortTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.IP.Equal(net.ParseIP("2001:db8::1"))).To(BeTrue())
	})

	It("round-trips an NSEC record's type bitmap", func() {
		r := NewNSEC(names.Parse("host.local"), []RRType{TypeA, TypeAAAA}, true, ShortTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())

		got, ok := RecordFromRR(rr, now)
		Expect(ok).To(BeTrue())
		Expect(got.TypeBitmap).To(HaveKey(TypeA))
		Expect(got.TypeBitmap).To(HaveKey(TypeAAAA))
	})

	It("sets the cache-flush bit through the class field", func() {
		r := NewA(names.Parse("host.local"), net.ParseIP("192.0.2.111"), true, ShortTTL)
		rr, err := r.ToRR()
		Expect(err).NotTo(HaveOccurred())
		Expect(rr.Header().Class&UniqueRecordBit).NotTo(BeZero())
	})
})

var _ = Describe("Packet.ToMsg and PacketFromMsg", func() {
	It("round-trips a query packet with a unicast-response question", func() {
		p := &Packet{
			Header: Header{Flags: FlagQuery},
			Questions: []Question{
				{Type: TypePTR, Name: names.Parse("_http._tcp.local"), Unicast: true},
			},
		}

		msg, err := p.ToMsg()
		Expect(err).NotTo(HaveOccurred())

		got := PacketFromMsg(msg, time.Now())
		Expect(got.Questions).To(HaveLen(1))
		Expect(got.Questions[0].Unicast).To(BeTrue())
		Expect(got.Questions[0].Type).To(Equal(TypePTR))
	})

	It("round-trips a response packet's answer section", func() {
		p := &Packet{
			Header:  Header{Flags: FlagResponse},
			Answers: []Record{NewA(names.Parse("host.local"), net.ParseIP("192.0.2.111"), true, ShortTTL)},
		}

		msg, err := p.ToMsg()
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Response).To(BeTrue())
		Expect(msg.Authoritative).To(BeTrue())

		got := PacketFromMsg(msg, time.Now())
		Expect(got.Answers).To(HaveLen(1))
		Expect(got.Header.Flags & 0x8000).NotTo(BeZero())
	})

	It("reports IsEmpty for a packet with no sections populated", func() {
		p := &Packet{}
		Expect(p.IsEmpty()).To(BeTrue())

		p.Answers = append(p.Answers, NewA(names.Parse("host.local"), net.ParseIP("192.0.2.1"), true, ShortTTL))
		Expect(p.IsEmpty()).To(BeFalse())
	})
})
