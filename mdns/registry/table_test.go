package registry_test

import (
	"net"
	"time"

	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	. "github.com/theSkullX/packages-modules-Connectivity/mdns/registry"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Table", func() {
	var table *Table

	BeforeEach(func() {
		table = New(nil, nil)
	})

	Describe("AddService", func() {
		It("assigns Probing state to a fresh registration", func() {
			_, err := table.AddService(1, ServiceInfo{
				InstanceName: "MyTestService",
				ServiceType:  "_testservice._tcp",
				Port:         12345,
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			svc, ok := table.Get(1)
			Expect(ok).To(BeTrue())
			Expect(svc.State).To(Equal(Probing))
		})

		It("returns the existing id on a case-insensitive collision (P1)", func() {
			_, err := table.AddService(1, ServiceInfo{
				InstanceName: "MyTestService",
				ServiceType:  "_testservice._tcp",
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			existing, err := table.AddService(3, ServiceInfo{
				InstanceName: "MyTESTSERVICE",
				ServiceType:  "_TESTSERVICE._tcp",
			}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(existing).To(Equal(ServiceID(1)))

			_, ok := table.Get(3)
			Expect(ok).To(BeFalse())
		})

		It("rejects a malformed service type", func() {
			_, err := table.AddService(1, ServiceInfo{
				InstanceName: "MyTestService",
				ServiceType:  "not-a-service-type",
			}, nil)
			Expect(err).To(HaveOccurred())
			Expect(err.(*mdns.Error).Kind).To(Equal(mdns.BadParameters))
		})

		It("rejects re-use of an id that is already registered", func() {
			_, err := table.AddService(1, ServiceInfo{InstanceName: "A", ServiceType: "_a._tcp"}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = table.AddService(1, ServiceInfo{InstanceName: "B", ServiceType: "_b._tcp"}, nil)
			Expect(err).To(HaveOccurred())
			Expect(err.(*mdns.Error).Kind).To(Equal(mdns.IllegalArgument))
		})

		It("enforces I2: a shared custom host must declare an identical address set", func() {
			addrs := []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("2001:db8::2")}

			_, err := table.AddService(1, ServiceInfo{
				InstanceName: "A", ServiceType: "_a._tcp",
				CustomHost: "TestHost", Addresses: addrs,
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = table.AddService(2, ServiceInfo{
				InstanceName: "B", ServiceType: "_b._tcp",
				CustomHost: "TestHost", Addresses: []net.IP{net.ParseIP("2001:db8::9")},
			}, nil)
			Expect(err).To(HaveOccurred())

			_, err = table.AddService(3, ServiceInfo{
				InstanceName: "C", ServiceType: "_c._tcp",
				// Same set, different order: I2 compares as a set.
				CustomHost: "TestHost", Addresses: []net.IP{net.ParseIP("2001:db8::2"), net.ParseIP("2001:db8::1")},
			}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a non-privileged TTL override outside the allowed range", func() {
			ttl := 10 * time.Second
			_, err := table.AddService(1, ServiceInfo{InstanceName: "A", ServiceType: "_a._tcp"}, &ttl)
			Expect(err).To(HaveOccurred())
			Expect(err.(*mdns.Error).Kind).To(Equal(mdns.BadParameters))
		})

		It("accepts a non-privileged TTL override within the allowed range", func() {
			ttl := 60 * time.Second
			_, err := table.AddService(1, ServiceInfo{InstanceName: "A", ServiceType: "_a._tcp"}, &ttl)
			Expect(err).NotTo(HaveOccurred())

			svc, _ := table.Get(1)
			Expect(svc.EffectiveTTL(mdns.ShortTTL)).To(Equal(60 * time.Second))
		})
	})

	Describe("ExitService", func() {
		It("transitions a registration to Exiting and is idempotent", func() {
			_, err := table.AddService(1, ServiceInfo{InstanceName: "A", ServiceType: "_a._tcp"}, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(table.ExitService(1)).NotTo(HaveOccurred())
			svc, _ := table.Get(1)
			Expect(svc.State).To(Equal(Exiting))

			Expect(table.ExitService(1)).NotTo(HaveOccurred())
			Expect(svc.State).To(Equal(Exiting))
		})

		It("errors for an unknown id", func() {
			Expect(table.ExitService(99)).To(HaveOccurred())
		})
	})

	Describe("RequestStopWhenInactive-supporting queries", func() {
		It("reports no pending exits and zero services on an empty table", func() {
			Expect(table.ServicesCount()).To(Equal(0))
			Expect(table.HasPendingExits()).To(BeFalse())
		})

		It("reports a pending exit until RemoveService is called", func() {
			_, err := table.AddService(1, ServiceInfo{InstanceName: "A", ServiceType: "_a._tcp"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(table.ExitService(1)).NotTo(HaveOccurred())

			Expect(table.HasPendingExits()).To(BeTrue())
			table.RemoveService(1)
			Expect(table.HasPendingExits()).To(BeFalse())
			Expect(table.ServicesCount()).To(Equal(0))
		})
	})
})

var _ = Describe("DedupSubtypes", func() {
	It("unions two subtype lists case-insensitively without duplicates", func() {
		got := DedupSubtypes([]string{"_printer", "_Scanner"}, []string{"_PRINTER", "_fax"})
		Expect(got).To(ConsistOf("_printer", "_Scanner", "_fax"))
	})
})
