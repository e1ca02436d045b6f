package repository_test

import (
	"net"

	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
	. "github.com/theSkullX/packages-modules-Connectivity/mdns/repository"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("GetConflictingServices", func() {
	var (
		table *registry.Table
		repo  *Repository
	)

	BeforeEach(func() {
		table = registry.New(nil, nil)
		repo = New(table, Config{}, nil)
	})

	It("reports no conflict for a packet that only echoes our own records (P8)", func() {
		_, err := repo.AddService(1, registry.ServiceInfo{
			InstanceName: "MyTestService",
			ServiceType:  "_testservice._tcp",
			Port:         12345,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		svc, _ := table.Get(1)
		instanceName := svc.InstanceNameLabels(table.Domain)

		pkt := &mdns.Packet{
			Answers: []mdns.Record{
				mdns.NewSRV(instanceName, 0, 0, 12345, svc.Hostname, true, mdns.ShortTTL),
				mdns.NewTXT(instanceName, nil, true, mdns.LongTTL),
			},
		}

		Expect(repo.GetConflictingServices(pkt)).To(BeEmpty())
	})

	It("flags a host conflict when an incoming address set holds addresses we do not own (S4)", func() {
		addrs := []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("2001:db8::2")}
		_, err := repo.AddService(45, registry.ServiceInfo{
			InstanceName: "HostOwner", ServiceType: "_testservice._tcp",
			CustomHost: "TestHost", Addresses: addrs,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		svc, _ := table.Get(45)

		pkt := &mdns.Packet{
			Answers: []mdns.Record{
				mdns.NewAAAA(svc.Hostname, net.ParseIP("2001:db8::5"), true, mdns.ShortTTL),
				mdns.NewAAAA(svc.Hostname, net.ParseIP("2001:db8::6"), true, mdns.ShortTTL),
			},
		}

		conflicts := repo.GetConflictingServices(pkt)
		Expect(conflicts).To(HaveKeyWithValue(registry.ServiceID(45), Host))
	})

	It("reports no conflict when the incoming address set is a subset of our own", func() {
		addrs := []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("2001:db8::2")}
		_, err := repo.AddService(45, registry.ServiceInfo{
			InstanceName: "HostOwner", ServiceType: "_testservice._tcp",
			CustomHost: "TestHost", Addresses: addrs,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		svc, _ := table.Get(45)

		pkt := &mdns.Packet{
			Answers: []mdns.Record{
				mdns.NewAAAA(svc.Hostname, net.ParseIP("2001:db8::2"), true, mdns.ShortTTL),
			},
		}

		Expect(repo.GetConflictingServices(pkt)).To(BeEmpty())
	})

	It("flags a service conflict when an incoming SRV disagrees with our port", func() {
		_, err := repo.AddService(1, registry.ServiceInfo{
			InstanceName: "MyTestService", ServiceType: "_testservice._tcp", Port: 12345,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		svc, _ := table.Get(1)
		instanceName := svc.InstanceNameLabels(table.Domain)

		pkt := &mdns.Packet{
			Answers: []mdns.Record{
				mdns.NewSRV(instanceName, 0, 0, 9999, svc.Hostname, true, mdns.ShortTTL),
			},
		}

		conflicts := repo.GetConflictingServices(pkt)
		Expect(conflicts).To(HaveKeyWithValue(registry.ServiceID(1), Service))
	})

	It("ignores address records for a non-custom host", func() {
		_, err := repo.AddService(1, registry.ServiceInfo{
			InstanceName: "MyTestService", ServiceType: "_testservice._tcp", Port: 12345,
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		svc, _ := table.Get(1)
		pkt := &mdns.Packet{
			Answers: []mdns.Record{
				mdns.NewA(svc.Hostname, net.ParseIP("192.0.2.200"), true, mdns.ShortTTL),
			},
		}

		Expect(repo.GetConflictingServices(pkt)).To(BeEmpty())
	})
})
