package registry

import (
	"net"
	"sort"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
)

// Table is the in-memory service registration table. It holds no locks;
// callers must serialize access, per spec.md section 5.
type Table struct {
	Domain   names.Labels
	Hostname names.Labels
	Logger   logging.Logger

	// IsPrivileged reports whether the caller making the current request
	// may use the extended TTL-override range. It defaults to "never
	// privileged" when nil.
	IsPrivileged func() bool

	services   map[ServiceID]*Service
	instances  map[string]ServiceID  // instanceKey -> owning service id
	hostOwners map[string][]net.IP   // hostKey -> addresses, for custom hosts
	hostUsers  map[string][]ServiceID // hostKey -> services using that host
}

// New returns an empty registration table. If domain is empty, "local" is
// used, matching the typical mDNS deployment domain.
func New(domain names.Labels, logger logging.Logger) *Table {
	if len(domain) == 0 {
		domain = names.Labels{"local"}
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Table{
		Domain:     domain,
		Hostname:   defaultHostname(domain),
		Logger:     logger,
		services:   map[ServiceID]*Service{},
		instances:  map[string]ServiceID{},
		hostOwners: map[string][]net.IP{},
		hostUsers:  map[string][]ServiceID{},
	}
}

func (t *Table) privileged() bool {
	return t.IsPrivileged != nil && t.IsPrivileged()
}

// validateTTLOverride checks ttl against the bounds in spec.md section 6,
// relaxing them for privileged callers.
func (t *Table) validateTTLOverride(ttl *time.Duration) error {
	if ttl == nil {
		return nil
	}
	if t.privileged() {
		if *ttl < 1*time.Second {
			return mdns.NewError(mdns.BadParameters, "ttl override %s is out of range for a privileged caller", *ttl)
		}
		return nil
	}
	if *ttl < mdns.MinNonPrivilegedTTL || *ttl > mdns.MaxNonPrivilegedTTL {
		return mdns.NewError(mdns.BadParameters, "ttl override %s is out of range [%s, %s]", *ttl, mdns.MinNonPrivilegedTTL, mdns.MaxNonPrivilegedTTL)
	}
	return nil
}

// AddService registers a new service. It returns registry.NotFound (-1) on
// success. If an existing active registration already owns the same
// (instanceName, serviceType) under DNS-case-insensitive comparison, it
// returns that registration's id instead of adding anything, which is not
// an error — it lets callers detect "re-add during exit". A structural
// problem (bad service type, id already present, bad TTL override,
// inconsistent custom host) is reported as an error.
func (t *Table) AddService(id ServiceID, info ServiceInfo, ttlOverride *time.Duration) (ServiceID, error) {
	base, subtypes, err := validateServiceType(info.ServiceType)
	if err != nil {
		return NotFound, err
	}
	subtypes = DedupSubtypes(subtypes, info.Subtypes)

	if err := t.validateTTLOverride(ttlOverride); err != nil {
		return NotFound, err
	}

	key := instanceKey(info.InstanceName, base)
	if existing, ok := t.instances[key]; ok {
		if svc, ok := t.services[existing]; ok && svc.State != Removed {
			return existing, nil
		}
	}

	if _, exists := t.services[id]; exists {
		return NotFound, mdns.NewError(mdns.IllegalArgument, "service id %d is already registered", id)
	}

	svc := &Service{
		ID:           id,
		InstanceName: names.TruncateServiceName(info.InstanceName, mdns.MaxInstanceNameBytes),
		ServiceType:  base,
		Subtypes:     subtypes,
		Port:         info.Port,
		TXT:          info.TXT,
		State:        Probing,
		TTLOverride:  ttlOverride,
	}

	if info.CustomHost != "" {
		svc.IsCustomHost = true
		svc.Hostname = names.Join(names.Labels{info.CustomHost}, t.Domain)

		hk := hostKey(svc.Hostname.String())
		if existingAddrs, ok := t.hostOwners[hk]; ok {
			if !sameAddressSet(existingAddrs, info.Addresses) {
				return NotFound, mdns.NewError(mdns.BadParameters, "custom host %q already registered with a different address set", info.CustomHost)
			}
		} else {
			t.hostOwners[hk] = info.Addresses
		}
		svc.Addresses = info.Addresses
		t.hostUsers[hk] = append(t.hostUsers[hk], id)
	} else {
		svc.Hostname = t.Hostname
	}

	t.services[id] = svc
	t.instances[key] = id

	logging.Debug(t.Logger, "mdns: registered service %d (%s.%s) in Probing state", int(id), svc.InstanceName, svc.ServiceType)

	return NotFound, nil
}

// sameAddressSet reports whether a and b contain the same IP addresses,
// irrespective of order or duplicates.
func sameAddressSet(a, b []net.IP) bool {
	as := ipSet(a)
	bs := ipSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if !bs[k] {
			return false
		}
	}
	return true
}

func ipSet(ips []net.IP) map[string]bool {
	s := make(map[string]bool, len(ips))
	for _, ip := range ips {
		s[ip.String()] = true
	}
	return s
}

// UpdateService replaces the subtype set of an existing registration.
func (t *Table) UpdateService(id ServiceID, subtypes []string) error {
	svc, ok := t.services[id]
	if !ok {
		return mdns.NewError(mdns.IllegalArgument, "unknown service id %d", id)
	}
	svc.Subtypes = DedupSubtypes(subtypes, nil)
	return nil
}

// RemoveService erases all records for id. It is a no-op if id is unknown.
func (t *Table) RemoveService(id ServiceID) {
	svc, ok := t.services[id]
	if !ok {
		return
	}

	delete(t.instances, instanceKey(svc.InstanceName, svc.ServiceType))
	delete(t.services, id)

	if svc.IsCustomHost {
		hk := hostKey(svc.Hostname.String())
		users := t.hostUsers[hk]
		for i, u := range users {
			if u == id {
				users = append(users[:i], users[i+1:]...)
				break
			}
		}
		if len(users) == 0 {
			delete(t.hostUsers, hk)
			delete(t.hostOwners, hk)
		} else {
			t.hostUsers[hk] = users
		}
	}

	logging.Debug(t.Logger, "mdns: removed service %d", int(id))
}

// ExitService marks id as Exiting so that a goodbye packet will be built
// for it. It is idempotent: calling it again after the goodbye has already
// been announced is a no-op.
func (t *Table) ExitService(id ServiceID) error {
	svc, ok := t.services[id]
	if !ok {
		return mdns.NewError(mdns.IllegalArgument, "unknown service id %d", id)
	}
	if svc.State == Exiting || svc.State == Removed {
		return nil
	}
	svc.State = Exiting
	return nil
}

// ClearServices removes every registration and returns the ids that were
// cleared, in ascending order, for use during shutdown.
func (t *Table) ClearServices() []ServiceID {
	ids := make([]ServiceID, 0, len(t.services))
	for id := range t.services {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		t.RemoveService(id)
	}

	return ids
}

// Get returns the registration for id, if any.
func (t *Table) Get(id ServiceID) (*Service, bool) {
	svc, ok := t.services[id]
	return svc, ok
}

// All returns every registration, in ascending id order.
func (t *Table) All() []*Service {
	ids := make([]ServiceID, 0, len(t.services))
	for id := range t.services {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*Service, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.services[id])
	}
	return out
}

// HasActiveService reports whether any registration is not Removed.
func (t *Table) HasActiveService() bool {
	return len(t.services) > 0
}

// IsProbing reports whether id exists and is currently in the Probing
// state.
func (t *Table) IsProbing(id ServiceID) bool {
	svc, ok := t.services[id]
	return ok && svc.State == Probing
}

// ServicesCount returns the number of registrations currently tracked
// (any state other than Removed, which is never stored).
func (t *Table) ServicesCount() int {
	return len(t.services)
}

// HasPendingExits reports whether any registration is Exiting.
func (t *Table) HasPendingExits() bool {
	for _, svc := range t.services {
		if svc.State == Exiting {
			return true
		}
	}
	return false
}

// CustomHostAddresses returns the addresses registered for a custom host
// name, if any registration uses it.
func (t *Table) CustomHostAddresses(hostname names.Labels) ([]net.IP, bool) {
	addrs, ok := t.hostOwners[hostKey(hostname.String())]
	return addrs, ok
}

// ServicesUsingHost returns the ids of registrations whose hostname is
// hostname (custom or default).
func (t *Table) ServicesUsingHost(hostname names.Labels) []ServiceID {
	var out []ServiceID
	for _, svc := range t.services {
		if names.LabelsEqual(svc.Hostname, hostname) {
			out = append(out, svc.ID)
		}
	}
	return out
}
