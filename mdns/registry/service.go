// Package registry implements the service registration table: per-service
// record bundles, their probing/announcing/active/exiting lifecycle, and
// the uniqueness invariants that govern adding, updating, and removing
// them.
package registry

import (
	"crypto/rand"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/names"
)

// ServiceID identifies a registration. It is supplied by the caller and is
// never reused once a registration is removed.
type ServiceID int

// NotFound is returned in place of a ServiceID when a lookup or add
// operation does not resolve to an existing registration.
const NotFound ServiceID = -1

// State is a registration's position in its probe/announce/active/exit
// lifecycle. States only move forward; see spec.md section 3 "Lifecycle".
type State int

const (
	Probing State = iota
	Announcing
	Active
	Exiting
	Removed
)

func (s State) String() string {
	switch s {
	case Probing:
		return "Probing"
	case Announcing:
		return "Announcing"
	case Active:
		return "Active"
	case Exiting:
		return "Exiting"
	case Removed:
		return "Removed"
	default:
		return "Unknown"
	}
}

// serviceTypeRe matches "_proto._tcp" or "_proto._udp", case-insensitively,
// per spec.md section 6's grammar.
var serviceTypeRe = regexp.MustCompile(`(?i)^_[A-Za-z0-9-]+\._(?:tcp|udp)$`)

// subtypeRe matches a single bare subtype label, e.g. "_printer".
var subtypeRe = regexp.MustCompile(`(?i)^_[A-Za-z0-9-]+$`)

// ServiceInfo is the caller-supplied description of a service to register.
// ServiceType may be a bare "_proto._tcp"/"_proto._udp" string, or that
// form followed by a comma-separated subtype list ("_proto._tcp,_sub1").
type ServiceInfo struct {
	InstanceName string
	ServiceType  string
	Subtypes     []string
	Port         uint16
	TXT          []mdns.TXTEntry

	// CustomHost, if non-empty, names a hostname shared across
	// registrations instead of the default per-process host name.
	CustomHost string
	// Addresses is the explicit address set for a custom host. It is
	// ignored (the repository's interface addresses are used instead)
	// when CustomHost is empty.
	Addresses []net.IP
}

// Service is a single registration's record bundle and lifecycle state.
type Service struct {
	ID ServiceID

	InstanceName string
	ServiceType  names.Labels
	Subtypes     []string
	Port         uint16
	TXT          []mdns.TXTEntry

	IsCustomHost bool
	Hostname     names.Labels
	Addresses    []net.IP

	State               State
	SentPacketCount     int
	RepliedRequestCount int
	ExitAnnounced       bool

	TTLOverride *time.Duration
}

// instanceKey is the DNS-case-insensitive key used to enforce invariant I1
// (instance uniqueness): the fold-cased "instance|servicetype" string.
func instanceKey(instanceName string, serviceType names.Labels) string {
	return names.FoldString(instanceName) + "|" + names.FoldString(serviceType.String())
}

// hostKey is the DNS-case-insensitive key used to enforce invariant I2
// (custom-host identity).
func hostKey(host string) string {
	return names.FoldString(host)
}

// InstanceNameLabels returns the registration's fully qualified instance
// name labels, e.g. ("MyService", "_http", "_tcp", "local").
func (s *Service) InstanceNameLabels(domain names.Labels) names.Labels {
	return names.Join(names.Labels{s.InstanceName}, s.ServiceType, domain)
}

// SubtypeNames returns the full subtype names for each of the service's
// subtypes under domain, e.g. ("_printer", "_sub", "_http", "_tcp", "local").
func (s *Service) SubtypeNames(domain names.Labels) []names.Labels {
	full := names.Join(s.ServiceType, domain)
	out := make([]names.Labels, 0, len(s.Subtypes))
	for _, st := range s.Subtypes {
		out = append(out, names.ConstructSubtype(full, st))
	}
	return out
}

// EffectiveTTL returns the TTL to use for records of the given default
// duration, honouring an override if one was set at registration.
func (s *Service) EffectiveTTL(def time.Duration) time.Duration {
	if s.TTLOverride != nil {
		return *s.TTLOverride
	}
	return def
}

// validateServiceType parses raw (possibly "_type._tcp,_sub1,_sub2") into
// its base type labels and subtype list.
func validateServiceType(raw string) (names.Labels, []string, error) {
	parts := strings.Split(raw, ",")
	base := strings.TrimSpace(parts[0])

	if !serviceTypeRe.MatchString(base) {
		return nil, nil, mdns.NewError(mdns.BadParameters, "invalid service type %q", base)
	}

	var subtypes []string
	for _, st := range parts[1:] {
		st = strings.TrimSpace(st)
		if !subtypeRe.MatchString(st) {
			return nil, nil, mdns.NewError(mdns.BadParameters, "invalid subtype %q", st)
		}
		subtypes = append(subtypes, st)
	}

	return names.Parse(base), subtypes, nil
}

// DedupSubtypes returns the union of a and b with duplicates under DNS
// case-insensitive comparison removed (the first spelling seen is kept),
// sorted in ascending byte order.
func DedupSubtypes(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, st := range append(append([]string{}, a...), b...) {
		k := names.FoldString(st)
		if !seen[k] {
			seen[k] = true
			out = append(out, st)
		}
	}
	sort.Strings(out)
	return out
}

// defaultHostname returns the "Android_<hex>.local" style default host
// name labels for a freshly minted per-process identifier.
func defaultHostname(domain names.Labels) names.Labels {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	hex := fmt.Sprintf("%032X", buf)
	return names.Join(names.Labels{"Android_" + hex}, domain)
}
