// Package names implements DNS label-array handling for the mDNS
// repository: case-insensitive comparison per RFC 6762 section 1.1,
// subtype-suffix matching per RFC 6763 section 7.1, and reverse-DNS name
// construction.
package names

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is the maximum length, in bytes, of a single DNS label.
const MaxLabelLength = 63

// MaxNameLength is the maximum total length, in bytes, of a DNS name
// (labels plus separators).
const MaxNameLength = 255

// Labels is an ordered sequence of DNS labels, most-significant first, as
// they appear left-to-right in presentation form ("instance", "_http",
// "_tcp", "local").
type Labels []string

// Parse splits a dot-separated presentation-form name into its labels. A
// single trailing dot (a fully-qualified name) is tolerated and ignored.
func Parse(s string) Labels {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return nil
	}
	return Labels(strings.Split(s, "."))
}

// Join concatenates two label sequences into a new one, ls most
// significant.
func Join(ls ...Labels) Labels {
	var out Labels
	for _, l := range ls {
		out = append(out, l...)
	}
	return out
}

// String renders the labels in dot-separated presentation form without a
// trailing dot.
func (l Labels) String() string {
	return strings.Join(l, ".")
}

// FQDN renders the labels in fully-qualified presentation form, with a
// trailing dot, as required by github.com/miekg/dns.
func (l Labels) FQDN() string {
	return l.String() + "."
}

// Clone returns a copy of l that does not share storage.
func (l Labels) Clone() Labels {
	if l == nil {
		return nil
	}
	out := make(Labels, len(l))
	copy(out, l)
	return out
}

// Validate returns an error if l violates DNS length bounds.
func (l Labels) Validate() error {
	total := 0
	for _, lbl := range l {
		if lbl == "" {
			return errors.New("names: label must not be empty")
		}
		if len(lbl) > MaxLabelLength {
			return fmt.Errorf("names: label %q exceeds %d bytes", lbl, MaxLabelLength)
		}
		total += len(lbl) + 1
	}
	if total > MaxNameLength {
		return fmt.Errorf("names: name %q exceeds %d bytes", l.String(), MaxNameLength)
	}
	return nil
}

// DNSLowerCase folds a single byte to "DNS lowercase": A-Z maps to a-z,
// every other byte (including accented and non-ASCII bytes) is unchanged.
//
// Per RFC 6762 section 1.1 ("DNS Name Comparison Rules"), accented
// characters are not considered equivalent to their unaccented
// counterparts, so only plain ASCII A-Z is folded.
func DNSLowerCase(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// FoldString returns s with every byte passed through DNSLowerCase,
// suitable for building map keys that must respect RFC 6762 section 1.1's
// ASCII-only comparison rule instead of strings.ToLower's Unicode folding.
func FoldString(s string) string {
	b := []byte(s)
	for i, c := range b {
		b[i] = DNSLowerCase(c)
	}
	return string(b)
}

// foldEqual reports whether a and b are equal after per-byte DNS-lowercase
// folding.
func foldEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if DNSLowerCase(a[i]) != DNSLowerCase(b[i]) {
			return false
		}
	}
	return true
}

// LabelEqual reports whether two individual labels are equal under DNS
// case-insensitive comparison.
func LabelEqual(a, b string) bool {
	return foldEqual(a, b)
}

// LabelsEqual reports whether two label sequences are equal under DNS
// case-insensitive comparison.
func LabelsEqual(a, b Labels) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !foldEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IsSuffix reports whether short's labels equal the trailing labels of
// long, under DNS case-insensitive comparison.
func IsSuffix(short, long Labels) bool {
	if len(short) > len(long) {
		return false
	}
	return LabelsEqual(short, long[len(long)-len(short):])
}

// subtypeLabel is the reserved label used to mark selective instance
// enumeration names, e.g. "_printer._sub._http._tcp.local.".
const subtypeLabel = "_sub"

// TypeEqualsOrIsSubtype reports whether b names the same service type as a,
// or names a subtype of a: b.length == a.length+2, b's second label is
// "_sub", and a is a suffix of b's remaining labels.
func TypeEqualsOrIsSubtype(a, b Labels) bool {
	if LabelsEqual(a, b) {
		return true
	}
	return len(b) == len(a)+2 &&
		LabelEqual(b[1], subtypeLabel) &&
		IsSuffix(a, b[2:])
}

// ConstructSubtype returns the full subtype name for a given base service
// type ("_http", "_tcp") and bare subtype label ("_printer"), producing
// ("_printer", "_sub", "_http", "_tcp").
func ConstructSubtype(serviceType Labels, subtype string) Labels {
	out := make(Labels, 0, len(serviceType)+2)
	out = append(out, subtype, subtypeLabel)
	out = append(out, serviceType...)
	return out
}

// TruncateServiceName truncates s to at most maxBytes UTF-8 bytes,
// greedily including whole code points without ever exceeding maxBytes.
func TruncateServiceName(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}

	n := 0
	for i, r := range s {
		rl := utf8.RuneLen(r)
		if n+rl > maxBytes {
			return s[:i]
		}
		n += rl
	}
	return s
}
