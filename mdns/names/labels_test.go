package names_test

import (
	"net"

	. "github.com/theSkullX/packages-modules-Connectivity/mdns/names"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parse and Join", func() {
	It("splits a presentation-form name into labels", func() {
		Expect(Parse("MyService._http._tcp.local")).To(Equal(Labels{"MyService", "_http", "_tcp", "local"}))
	})

	It("tolerates a trailing dot", func() {
		Expect(Parse("local.")).To(Equal(Labels{"local"}))
	})

	It("joins label sequences most-significant first", func() {
		got := Join(Labels{"MyService"}, Labels{"_http", "_tcp"}, Labels{"local"})
		Expect(got).To(Equal(Labels{"MyService", "_http", "_tcp", "local"}))
	})

	It("renders FQDN form with a trailing dot", func() {
		Expect(Labels{"_http", "_tcp", "local"}.FQDN()).To(Equal("_http._tcp.local."))
	})
})

var _ = Describe("LabelsEqual", func() {
	It("folds ASCII case", func() {
		Expect(LabelsEqual(Labels{"_TESTSERVICE", "_TCP", "local"}, Labels{"_testservice", "_tcp", "local"})).To(BeTrue())
	})

	It("does not fold accented characters", func() {
		Expect(LabelsEqual(Labels{"café"}, Labels{"café"})).To(BeFalse())
	})

	It("rejects sequences of different length", func() {
		Expect(LabelsEqual(Labels{"a", "b"}, Labels{"a"})).To(BeFalse())
	})
})

var _ = Describe("IsSuffix", func() {
	It("matches a trailing subsequence", func() {
		Expect(IsSuffix(Labels{"_tcp", "local"}, Labels{"_http", "_tcp", "local"})).To(BeTrue())
	})

	It("rejects a sequence longer than the candidate", func() {
		Expect(IsSuffix(Labels{"a", "b", "c"}, Labels{"b", "c"})).To(BeFalse())
	})
})

var _ = Describe("TypeEqualsOrIsSubtype", func() {
	base := Labels{"_http", "_tcp", "local"}

	It("matches the exact type", func() {
		Expect(TypeEqualsOrIsSubtype(base, base)).To(BeTrue())
	})

	It("matches a selective instance enumeration name", func() {
		sub := ConstructSubtype(base, "_printer")
		Expect(TypeEqualsOrIsSubtype(base, sub)).To(BeTrue())
	})

	It("rejects a name of the wrong service type", func() {
		other := Labels{"_ftp", "_tcp", "local"}
		Expect(TypeEqualsOrIsSubtype(base, other)).To(BeFalse())
	})

	It("rejects a subtype-shaped name over a different base type", func() {
		sub := ConstructSubtype(Labels{"_ftp", "_tcp", "local"}, "_printer")
		Expect(TypeEqualsOrIsSubtype(base, sub)).To(BeFalse())
	})
})

var _ = Describe("ReverseDNSName", func() {
	It("builds the in-addr.arpa name for an IPv4 address", func() {
		rev, ok := ReverseDNSName(net.ParseIP("192.0.2.111"))
		Expect(ok).To(BeTrue())
		Expect(rev.String()).To(Equal("111.2.0.192.in-addr.arpa"))
	})

	It("builds the ip6.arpa name for an IPv6 address with uppercase nibbles", func() {
		rev, ok := ReverseDNSName(net.ParseIP("2001:db8::1"))
		Expect(ok).To(BeTrue())
		Expect(rev.String()).To(Equal(
			"1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.B.D.0.1.0.0.2.ip6.arpa",
		))
	})
})

var _ = Describe("TruncateServiceName", func() {
	It("leaves a short name untouched", func() {
		Expect(TruncateServiceName("short", 63)).To(Equal("short"))
	})

	It("truncates on a whole-rune boundary", func() {
		// "café" is 5 bytes in UTF-8 (c,a,f,é=2 bytes); truncating to 4
		// bytes must drop the whole final rune, not split its encoding.
		Expect(TruncateServiceName("café", 4)).To(Equal("caf"))
	})

	It("does not truncate when exactly at the limit", func() {
		Expect(TruncateServiceName("abcde", 5)).To(Equal("abcde"))
	})
})
